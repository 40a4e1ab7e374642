package crawler

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// linkFilter applies the admission rules for discovered links: prefix
// allow-list, the per-run seen set, and the durable processed set. It
// is shared by every page task in a level, so the seen set is guarded.
type linkFilter struct {
	prefixes []string
	history  *HistoryStore

	mu   sync.Mutex
	seen map[string]struct{}
}

func newLinkFilter(prefixes []string, history *HistoryStore) *linkFilter {
	return &linkFilter{
		prefixes: prefixes,
		history:  history,
		seen:     make(map[string]struct{}),
	}
}

// MarkSeen pre-seeds the seen set, e.g. with the portal URL.
func (f *linkFilter) MarkSeen(rawURL string) {
	norm, err := NormalizeURL(rawURL)
	if err != nil {
		return
	}
	f.mu.Lock()
	f.seen[norm] = struct{}{}
	f.mu.Unlock()
}

// Admit normalizes a discovered link and reports whether it should be
// dispatched. An admitted link is atomically marked seen, so a URL
// discovered by several pages in the same run is emitted exactly once.
func (f *linkFilter) Admit(rawURL string) (string, bool) {
	norm, err := NormalizeURL(rawURL)
	if err != nil || norm == "" {
		return "", false
	}
	if !f.prefixAllowed(norm) {
		return "", false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, dup := f.seen[norm]; dup {
		return "", false
	}
	if f.history.Contains(norm) {
		return "", false
	}
	f.seen[norm] = struct{}{}
	return norm, true
}

func (f *linkFilter) prefixAllowed(u string) bool {
	if len(f.prefixes) == 0 {
		return true
	}
	for _, p := range f.prefixes {
		if strings.HasPrefix(u, p) {
			return true
		}
	}
	return false
}

// SeenCount returns how many URLs were enqueued this run.
func (f *linkFilter) SeenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

// LinkExtractor pulls hyperlink targets out of a rendered page and runs
// them through the shared filter. Extraction failures yield an empty
// result; they never fail the page.
type LinkExtractor struct {
	filter *linkFilter
	logger *zap.Logger
}

// NewLinkExtractor builds an extractor over the shared filter.
func NewLinkExtractor(filter *linkFilter, logger *zap.Logger) *LinkExtractor {
	return &LinkExtractor{filter: filter, logger: logger}
}

// Extract returns the admitted outbound links of the session's page,
// in document order.
func (e *LinkExtractor) Extract(ctx context.Context, sess Session) []string {
	html, err := sess.HTML(ctx)
	if err != nil {
		e.logger.Debug("Failed to read page HTML for link extraction", zap.Error(err))
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.logger.Debug("Failed to parse page HTML", zap.Error(err))
		return nil
	}

	base, err := url.Parse(sess.Location())
	if err != nil {
		base = nil
	}

	var out []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		abs := resolveHref(base, href)
		if abs == "" {
			return
		}
		if norm, admit := e.filter.Admit(abs); admit {
			out = append(out, norm)
		}
	})
	return out
}

// resolveHref turns an anchor target into an absolute http(s) URL, or
// "" when it cannot be dispatched (mailto:, javascript:, bad syntax).
func resolveHref(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	abs := ref
	if base != nil {
		abs = base.ResolveReference(ref)
	}
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	if abs.Host == "" {
		return ""
	}
	return abs.String()
}
