package crawler

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHistory(t *testing.T) *HistoryStore {
	t.Helper()
	store := NewHistoryStore(filepath.Join(t.TempDir(), "history.json"), zap.NewNop())
	require.NoError(t, store.Load())
	return store
}

func TestLinkFilterAdmitOnce(t *testing.T) {
	f := newLinkFilter(nil, newTestHistory(t))

	norm, ok := f.Admit("https://x.test/a#frag")
	require.True(t, ok)
	require.Equal(t, "https://x.test/a", norm)

	_, ok = f.Admit("https://x.test/a")
	require.False(t, ok, "second discovery of the same URL must be rejected")
	_, ok = f.Admit("https://x.test/a#other")
	require.False(t, ok, "fragment variants share one admission")
}

func TestLinkFilterPrefixAllowList(t *testing.T) {
	f := newLinkFilter([]string{"https://x.test/a/"}, newTestHistory(t))

	_, ok := f.Admit("https://x.test/a/1")
	require.True(t, ok)
	_, ok = f.Admit("https://x.test/b/1")
	require.False(t, ok, "links outside the allow-list must never be admitted")
}

func TestLinkFilterRejectsProcessed(t *testing.T) {
	history := newTestHistory(t)
	url := "https://x.test/done"
	require.NoError(t, history.Add(url, "done.pdf", Fingerprint(url)))

	f := newLinkFilter(nil, history)
	_, ok := f.Admit(url)
	require.False(t, ok, "URLs in history must not be re-enqueued")
}

func TestLinkFilterMarkSeen(t *testing.T) {
	f := newLinkFilter(nil, newTestHistory(t))
	f.MarkSeen("https://x.test/portal#top")
	_, ok := f.Admit("https://x.test/portal")
	require.False(t, ok)
}

func TestLinkExtractor(t *testing.T) {
	f := newLinkFilter([]string{"https://x.test/a/"}, newTestHistory(t))
	e := NewLinkExtractor(f, zap.NewNop())

	sess := &fakeSession{
		location: "https://x.test/a/index",
		html: `<html><body>
			<a href="https://x.test/a/1">one</a>
			<a href="/a/2">relative</a>
			<a href="https://x.test/b/1">outside prefix</a>
			<a href="https://x.test/a/1#section">dup by fragment</a>
			<a href="mailto:nobody@x.test">mail</a>
			<a href="javascript:void(0)">js</a>
			<a href="">empty</a>
		</body></html>`,
	}

	links := e.Extract(context.Background(), sess)
	require.Equal(t, []string{"https://x.test/a/1", "https://x.test/a/2"}, links)

	// Re-extraction of unchanged content yields nothing new.
	require.Empty(t, e.Extract(context.Background(), sess))
}

func TestResolveHref(t *testing.T) {
	base := mustParseURL(t, "https://x.test/dir/page")

	require.Equal(t, "https://x.test/dir/other", resolveHref(base, "other"))
	require.Equal(t, "https://x.test/abs", resolveHref(base, "/abs"))
	require.Equal(t, "https://y.test/", resolveHref(base, "https://y.test/"))
	require.Equal(t, "", resolveHref(base, "ftp://x.test/file"))
	require.Equal(t, "", resolveHref(nil, "/relative-without-base"))
}
