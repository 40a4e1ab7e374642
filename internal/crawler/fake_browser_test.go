package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sync"
	"testing"
	"time"
)

// fakeSession is a scripted Session double. Fields may be swapped
// between calls to simulate content appearing after interactions.
type fakeSession struct {
	mu       sync.Mutex
	title    string
	html     string
	location string

	navErr    error
	exportErr error
	clickErr  error

	exports []string
	clicks  []Selector
	scrolls int
	closed  bool

	// onClick, when set, runs after a successful click so tests can
	// mutate the page content the way a real interaction would.
	onClick func(s *fakeSession, sel Selector)
}

func (s *fakeSession) Title(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title, nil
}

func (s *fakeSession) HTML(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.html, nil
}

func (s *fakeSession) Location() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location
}

func (s *fakeSession) ExportPDF(_ context.Context, path string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exportErr != nil {
		return s.exportErr
	}
	s.exports = append(s.exports, path)
	return os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o600)
}

func (s *fakeSession) Click(_ context.Context, sel Selector, _ time.Duration) error {
	s.mu.Lock()
	if s.clickErr != nil {
		err := s.clickErr
		s.mu.Unlock()
		return err
	}
	s.clicks = append(s.clicks, sel)
	hook := s.onClick
	s.mu.Unlock()
	if hook != nil {
		hook(s, sel)
	}
	return nil
}

func (s *fakeSession) ScrollBottom(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrolls++
	return nil
}

func (s *fakeSession) Settle(context.Context, time.Duration) {}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSession) setHTML(html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.html = html
}

func (s *fakeSession) clickCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clicks)
}

// fakeBrowser serves scripted sessions per URL.
type fakeBrowser struct {
	mu       sync.Mutex
	sessions map[string]*fakeSession
	opened   []string
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{sessions: make(map[string]*fakeSession)}
}

func (b *fakeBrowser) addPage(url, title string, links ...string) *fakeSession {
	html := "<html><body>"
	for _, l := range links {
		html += fmt.Sprintf(`<a href=%q>link</a>`, l)
	}
	html += "</body></html>"
	s := &fakeSession{title: title, html: html, location: url}
	b.mu.Lock()
	b.sessions[url] = s
	b.mu.Unlock()
	return s
}

func (b *fakeBrowser) Open(_ context.Context, rawURL string, _ time.Duration) (Session, error) {
	b.mu.Lock()
	b.opened = append(b.opened, rawURL)
	s, ok := b.sessions[rawURL]
	b.mu.Unlock()
	if !ok {
		blank := &fakeSession{location: rawURL}
		return blank, fmt.Errorf("%w: no such page %s", ErrNavigation, rawURL)
	}
	if s.navErr != nil {
		return s, s.navErr
	}
	return s, nil
}

func (b *fakeBrowser) Close() error { return nil }

func (b *fakeBrowser) openCount(url string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, u := range b.opened {
		if u == url {
			n++
		}
	}
	return n
}

var errBoom = errors.New("boom")

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %s: %v", raw, err)
	}
	return u
}
