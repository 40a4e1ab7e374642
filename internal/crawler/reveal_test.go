package crawler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRevealNoneAlwaysProgresses(t *testing.T) {
	r := NewRevealDriver(RefreshNone, zap.NewNop())
	sess := &fakeSession{html: `<html><body></body></html>`}

	require.True(t, r.Attempt(context.Background(), sess))
	require.Equal(t, 1, sess.scrolls, "scroll happens in every mode")
	require.Empty(t, sess.clicks)
}

func TestRevealPullClicksLoadMore(t *testing.T) {
	r := NewRevealDriver(RefreshPull, zap.NewNop())
	sess := &fakeSession{
		html: `<html><body><button class="more">Load More Articles</button></body></html>`,
	}

	require.True(t, r.Attempt(context.Background(), sess))
	require.Len(t, sess.clicks, 1)
	require.Equal(t, SelectorXPath, sess.clicks[0].Kind)
}

func TestRevealPullNoCandidate(t *testing.T) {
	r := NewRevealDriver(RefreshPull, zap.NewNop())
	sess := &fakeSession{html: `<html><body><p>end of feed</p></body></html>`}

	require.False(t, r.Attempt(context.Background(), sess))
	require.Empty(t, sess.clicks)
}

func TestRevealPaginationClicksNextByText(t *testing.T) {
	r := NewRevealDriver(RefreshPagination, zap.NewNop())
	sess := &fakeSession{
		html: `<html><body><a href="/page/2">Next</a></body></html>`,
	}

	require.True(t, r.Attempt(context.Background(), sess))
	require.Len(t, sess.clicks, 1)
}

func TestRevealPaginationFallsBackToRelNext(t *testing.T) {
	r := NewRevealDriver(RefreshPagination, zap.NewNop())
	sess := &fakeSession{
		html: `<html><body><a rel="next" href="/p2">more stories</a></body></html>`,
	}

	require.True(t, r.Attempt(context.Background(), sess))
	require.Len(t, sess.clicks, 1)
	require.Equal(t, SelectorCSS, sess.clicks[0].Kind)
	require.Equal(t, `a[rel="next"]`, sess.clicks[0].Query)
}

func TestRevealPaginationExhausted(t *testing.T) {
	r := NewRevealDriver(RefreshPagination, zap.NewNop())
	sess := &fakeSession{
		html: `<html><body><p>last page</p></body></html>`,
	}

	require.False(t, r.Attempt(context.Background(), sess))
}

func TestRevealClickFailureIsSwallowed(t *testing.T) {
	r := NewRevealDriver(RefreshPull, zap.NewNop())
	sess := &fakeSession{
		html:     `<html><body><button>Show more</button></body></html>`,
		clickErr: errBoom,
	}

	require.False(t, r.Attempt(context.Background(), sess))
}
