package crawler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RefreshMode selects which reveal interactions are attempted when the
// portal stops yielding links.
type RefreshMode string

// Supported refresh modes.
const (
	RefreshPull       RefreshMode = "pull"
	RefreshPagination RefreshMode = "pagination"
	RefreshNone       RefreshMode = "none"
)

// loadMoreTexts label buttons that append content in place.
var loadMoreTexts = []string{
	"load more", "show more", "load more articles", "view more",
	"加载更多", "更多",
}

// nextPageTexts label controls that advance pagination.
var nextPageTexts = []string{
	"next", "next >", ">", "›",
	"后页", "下一页", "下一頁", "下一章", "下一",
}

// RevealDriver surfaces additional content on a page that has stopped
// yielding new links: scrolling for lazy loads, clicking "load more"
// in pull mode, clicking "next" style controls in pagination mode.
// Individual click failures are swallowed and the next candidate tried.
type RevealDriver struct {
	mode         RefreshMode
	clickTimeout time.Duration
	settle       time.Duration
	logger       *zap.Logger
}

// NewRevealDriver builds a driver for the given mode.
func NewRevealDriver(mode RefreshMode, logger *zap.Logger) *RevealDriver {
	return &RevealDriver{
		mode:         mode,
		clickTimeout: 6 * time.Second,
		settle:       time.Second,
		logger:       logger,
	}
}

// Attempt performs one reveal pass and reports whether an interaction
// succeeded. In mode "none" scrolling itself counts as the attempt, so
// the result is always true; the scheduler therefore tracks actual new
// links separately instead of trusting this value alone.
func (r *RevealDriver) Attempt(ctx context.Context, sess Session) bool {
	// Scrolling triggers lazy loading in every mode.
	if err := sess.ScrollBottom(ctx); err != nil {
		r.logger.Debug("Scroll to bottom failed", zap.Error(err))
	} else {
		sess.Settle(ctx, 600*time.Millisecond)
	}

	switch r.mode {
	case RefreshPagination:
		if r.clickFirstByText(ctx, sess, nextPageTexts, "button", "a") {
			return true
		}
		return r.clickRelNext(ctx, sess)
	case RefreshPull:
		return r.clickFirstByText(ctx, sess, loadMoreTexts, "button", "a")
	default:
		return true
	}
}

func (r *RevealDriver) clickFirstByText(ctx context.Context, sess Session, texts []string, tags ...string) bool {
	doc, err := pageDocument(ctx, sess)
	if err != nil {
		r.logger.Debug("Reveal pass skipped; page unreadable", zap.Error(err))
		return false
	}
	for _, text := range texts {
		if !pageHasText(doc, "button, a", text) {
			continue
		}
		sel := Selector{Kind: SelectorXPath, Query: textCandidateXPath(text, tags...)}
		if err := sess.Click(ctx, sel, r.clickTimeout); err != nil {
			r.logger.Debug("Reveal candidate click failed",
				zap.String("text", text), zap.Error(err))
			continue
		}
		r.logger.Info("Clicked reveal control", zap.String("text", text))
		sess.Settle(ctx, r.settle)
		return true
	}
	return false
}

// clickRelNext follows the standard pagination marker as a fallback
// when no textual "next" control matched.
func (r *RevealDriver) clickRelNext(ctx context.Context, sess Session) bool {
	doc, err := pageDocument(ctx, sess)
	if err != nil {
		return false
	}
	if doc.Find(`a[rel="next"]`).Length() == 0 {
		return false
	}
	sel := Selector{Kind: SelectorCSS, Query: `a[rel="next"]`}
	if err := sess.Click(ctx, sel, r.clickTimeout); err != nil {
		r.logger.Debug("rel=next click failed", zap.Error(err))
		return false
	}
	r.logger.Info("Clicked rel=next link")
	sess.Settle(ctx, r.settle)
	return true
}
