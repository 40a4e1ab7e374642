package crawler

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCookieDismisserUsesOriginRule(t *testing.T) {
	d := NewCookieDismisser(zap.NewNop())
	sess := &fakeSession{
		location: "https://www.security.com/blogs/some-post",
		html:     `<html><body><div role="dialog" aria-label="Cookies"></div></body></html>`,
	}

	d.Dismiss(context.Background(), sess)

	require.Len(t, sess.clicks, 1)
	require.Equal(t, SelectorCSS, sess.clicks[0].Kind)
	require.Contains(t, sess.clicks[0].Query, "onetrust-close-btn-handler")
}

func TestCookieDismisserFallsBackToTextMatching(t *testing.T) {
	d := NewCookieDismisser(zap.NewNop())
	sess := &fakeSession{
		location: "https://example.test/article",
		html: `<html><body>
			<div class="consent"><button>Accept all</button></div>
		</body></html>`,
	}

	d.Dismiss(context.Background(), sess)

	if len(sess.clicks) == 0 {
		t.Fatal("expected at least one dismissal click")
	}
	for _, sel := range sess.clicks {
		require.Equal(t, SelectorXPath, sel.Kind)
		require.Contains(t, strings.ToLower(sel.Query), "translate")
	}
}

func TestCookieDismisserSkipsAbsentCandidates(t *testing.T) {
	d := NewCookieDismisser(zap.NewNop())
	sess := &fakeSession{
		location: "https://example.test/plain",
		html:     `<html><body><p>no banner here</p></body></html>`,
	}

	d.Dismiss(context.Background(), sess)
	require.Empty(t, sess.clicks, "no candidate text present, no clicks expected")
}

func TestCookieDismisserOriginRuleFailureFallsBack(t *testing.T) {
	d := NewCookieDismisser(zap.NewNop())
	sess := &fakeSession{
		location: "https://www.security.com/blogs/post",
		html:     `<html><body><button>Got it</button></body></html>`,
		clickErr: errBoom,
	}

	// Every click fails; dismissal must stay best-effort and return.
	d.Dismiss(context.Background(), sess)
	require.Empty(t, sess.clicks)
}
