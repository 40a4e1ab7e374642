package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL produces the canonical dedup key for a URL: the fragment
// is dropped, so addresses differing only by #anchor collapse to one key.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}

// Origin returns the scheme://host portion of a URL, used as the key
// for robots policy caching.
func Origin(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q has no origin", rawURL)
	}
	return u.Scheme + "://" + strings.ToLower(u.Host), nil
}

// Host extracts the lowercased host of a URL for per-domain bookkeeping.
// Unparseable URLs share a single bucket rather than failing the caller.
func Host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return strings.ToLower(u.Host)
}
