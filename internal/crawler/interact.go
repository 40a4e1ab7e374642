package crawler

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	xpathUpper = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	xpathLower = "abcdefghijklmnopqrstuvwxyz"
)

// textCandidateXPath matches elements of the given tags whose visible
// text contains the (lowercase) needle, case-insensitively.
func textCandidateXPath(text string, tags ...string) string {
	parts := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag == "input" {
			parts = append(parts, fmt.Sprintf(
				`//input[@type="button" and contains(translate(normalize-space(@value),%q,%q), %q)]`,
				xpathUpper, xpathLower, text))
			continue
		}
		parts = append(parts, fmt.Sprintf(
			`//%s[contains(translate(normalize-space(.),%q,%q), %q)]`,
			tag, xpathUpper, xpathLower, text))
	}
	return strings.Join(parts, " | ")
}

// pageDocument parses the session's rendered HTML. The document is a
// read-only snapshot; clicks still go through the session.
func pageDocument(ctx context.Context, sess Session) (*goquery.Document, error) {
	html, err := sess.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("read page html: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}
	return doc, nil
}

// pageHasText reports whether any element in selector's result set has
// visible text containing the lowercase needle. Used to skip click
// attempts for candidates that cannot possibly be present.
func pageHasText(doc *goquery.Document, cssSelector, text string) bool {
	found := false
	doc.Find(cssSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(strings.TrimSpace(sel.Text())), text) {
			found = true
			return false
		}
		if val, ok := sel.Attr("value"); ok &&
			strings.Contains(strings.ToLower(strings.TrimSpace(val)), text) {
			found = true
			return false
		}
		return true
	})
	return found
}
