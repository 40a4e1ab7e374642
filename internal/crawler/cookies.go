package crawler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// cookieButtonTexts are the generic labels tried when no origin rule
// matches, in priority order. CJK variants cover localized banners.
var cookieButtonTexts = []string{
	"close", "only", "accept", "agree", "i agree", "accept all",
	"accept cookies", "agree and continue", "ok", "allow", "got it",
	"continue", "yes",
	"接受", "同意", "同意并继续", "关闭", "知道了", "允许",
}

// Interaction is one scripted step of a dismissal rule: click the
// selector, then pause for the settle duration.
type Interaction struct {
	Selector Selector
	Settle   time.Duration
}

// CookieDismisser closes consent popups that would otherwise obscure
// pages. Site-specific rules are a data table keyed by origin; origins
// without a rule fall back to generic text matching. Every click is
// best-effort: a failed candidate is skipped, never fatal.
type CookieDismisser struct {
	rules        map[string][]Interaction
	texts        []string
	clickTimeout time.Duration
	logger       *zap.Logger
}

// NewCookieDismisser builds a dismisser with the built-in rule table.
func NewCookieDismisser(logger *zap.Logger) *CookieDismisser {
	return &CookieDismisser{
		rules: map[string][]Interaction{
			// OneTrust banner on security.com: close via the dedicated
			// button inside the Cookies dialog.
			"https://www.security.com": {
				{
					Selector: Selector{
						Kind: SelectorCSS,
						Query: `div[role="dialog"][aria-label="Cookies"] ` +
							`button.onetrust-close-btn-handler.ot-close-icon.banner-close-button[aria-label="Close"]`,
					},
					Settle: 600 * time.Millisecond,
				},
			},
		},
		texts:        cookieButtonTexts,
		clickTimeout: 3 * time.Second,
		logger:       logger,
	}
}

// Dismiss tries to close any consent popup on the session's page.
func (d *CookieDismisser) Dismiss(ctx context.Context, sess Session) {
	if origin, err := Origin(sess.Location()); err == nil {
		if rules, ok := d.rules[origin]; ok && d.runInteractions(ctx, sess, rules) {
			return
		}
	}
	d.dismissByText(ctx, sess)
}

func (d *CookieDismisser) runInteractions(ctx context.Context, sess Session, rules []Interaction) bool {
	for _, ia := range rules {
		if err := sess.Click(ctx, ia.Selector, d.clickTimeout); err != nil {
			d.logger.Debug("Cookie rule click failed",
				zap.String("selector", ia.Selector.Query), zap.Error(err))
			continue
		}
		if ia.Settle > 0 {
			sess.Settle(ctx, ia.Settle)
		}
		d.logger.Debug("Dismissed cookie popup via origin rule",
			zap.String("selector", ia.Selector.Query))
		return true
	}
	return false
}

func (d *CookieDismisser) dismissByText(ctx context.Context, sess Session) {
	doc, err := pageDocument(ctx, sess)
	if err != nil {
		d.logger.Debug("Cookie dismissal skipped; page unreadable", zap.Error(err))
		return
	}
	for _, text := range d.texts {
		if !pageHasText(doc, "button, a, input[type=button]", text) {
			continue
		}
		sel := Selector{Kind: SelectorXPath, Query: textCandidateXPath(text, "button", "input", "a")}
		if err := sess.Click(ctx, sel, d.clickTimeout); err != nil {
			d.logger.Debug("Cookie candidate click failed",
				zap.String("text", text), zap.Error(err))
			continue
		}
		sess.Settle(ctx, 300*time.Millisecond)
	}
}
