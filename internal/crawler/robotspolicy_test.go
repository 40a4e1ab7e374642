package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

func TestRobotsEnforcer(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	allowAll := NewRobotsEnforcer(false, "portarc-test", logger)
	if !allowAll.Allowed(ctx, "https://example.com/whatever") {
		t.Fatal("allow-all policy should permit URLs")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprintln(w, "User-agent: *\nDisallow: /blocked")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	enforcer := NewRobotsEnforcer(true, "portarc-test", logger)
	if !enforcer.Allowed(ctx, srv.URL+"/allowed") {
		t.Fatal("expected allowed path to pass robots")
	}
	if enforcer.Allowed(ctx, srv.URL+"/blocked") {
		t.Fatal("expected blocked path to be denied")
	}
}

func TestRobotsEnforcerCachesPerOrigin(t *testing.T) {
	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fetches.Add(1)
			fmt.Fprintln(w, "User-agent: *\nAllow: /")
		}
	}))
	defer srv.Close()

	enforcer := NewRobotsEnforcer(true, "portarc-test", zap.NewNop())
	for i := 0; i < 5; i++ {
		if !enforcer.Allowed(context.Background(), fmt.Sprintf("%s/page/%d", srv.URL, i)) {
			t.Fatalf("page %d unexpectedly denied", i)
		}
	}
	if got := fetches.Load(); got != 1 {
		t.Fatalf("expected 1 robots fetch, got %d", got)
	}
}

func TestRobotsEnforcerFailsOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // unreachable on purpose

	enforcer := NewRobotsEnforcer(true, "portarc-test", zap.NewNop())
	if !enforcer.Allowed(context.Background(), srv.URL+"/page") {
		t.Fatal("robots fetch failure must fail open")
	}
	// Second call must hit the cached allow sentinel, not re-fetch.
	if !enforcer.Allowed(context.Background(), srv.URL+"/other") {
		t.Fatal("cached fail-open sentinel must allow subsequent URLs")
	}
}
