package crawler

import (
	"context"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// PageProcessor runs the per-URL pipeline: robots gate, concurrency
// slot, politeness wait, best-effort render, artifact export, history
// record, and link extraction for the next level. Every failure is
// contained to the one URL; sibling tasks in the same level never see it.
type PageProcessor struct {
	browser    Browser
	robots     RobotsPolicy
	politeness *PolitenessController
	slots      *slotLimiter
	history    *HistoryStore
	extractor  *LinkExtractor
	cookies    *CookieDismisser
	outputDir  string
	timeout    time.Duration
	maxDepth   int
	logger     *zap.Logger
}

// Process archives one URL and returns the admitted outbound links for
// the next BFS level (empty at the depth bound or on failure).
func (p *PageProcessor) Process(ctx context.Context, rawURL string, depth int) []string {
	// The robots check happens before a slot is consumed: a denied URL
	// must not hold up admitted ones.
	if !p.robots.Allowed(ctx, rawURL) {
		robotsDenied.Inc()
		p.logger.Info("Robots policy disallows URL", zap.String("url", rawURL))
		return nil
	}

	if err := p.slots.Acquire(ctx); err != nil {
		p.logger.Debug("Slot acquisition aborted", zap.String("url", rawURL), zap.Error(err))
		return nil
	}
	defer p.slots.Release()

	if err := p.politeness.WaitTurn(ctx, rawURL); err != nil {
		p.logger.Debug("Politeness wait aborted", zap.String("url", rawURL), zap.Error(err))
		return nil
	}

	p.logger.Info("Opening page",
		zap.String("url", rawURL),
		zap.Int("depth", depth),
		zap.Duration("timeout", p.timeout),
	)
	sess, err := p.browser.Open(ctx, rawURL, p.timeout)
	if sess == nil {
		navigationErrors.Inc()
		p.logger.Error("Failed to open page", zap.String("url", rawURL), zap.Error(err))
		return nil
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			p.logger.Debug("Failed to close session", zap.String("url", rawURL), zap.Error(cerr))
		}
	}()
	if err != nil {
		// Best-effort session: archive whatever state the page reached.
		navigationErrors.Inc()
		p.logger.Warn("Page load incomplete; continuing with partial state",
			zap.String("url", rawURL), zap.Error(err))
	}

	if p.cookies != nil {
		p.cookies.Dismiss(ctx, sess)
	}

	if !p.archive(ctx, sess, rawURL) {
		p.logger.Warn("Artifact not saved; URL left unrecorded for a future run",
			zap.String("url", rawURL))
	}

	if depth < p.maxDepth {
		return p.extractor.Extract(ctx, sess)
	}
	return nil
}

// archive exports the page as a PDF named from its sanitized title and
// URL fingerprint, then records it in history. Export failure skips
// the record so the URL stays eligible for retry.
func (p *PageProcessor) archive(ctx context.Context, sess Session, rawURL string) bool {
	title, err := sess.Title(ctx)
	if err != nil {
		title = ""
	}
	fingerprint := Fingerprint(rawURL)
	filename := artifactFilename(title, fingerprint)
	path := filepath.Join(p.outputDir, filename)

	if err := sess.ExportPDF(ctx, path, p.timeout); err != nil {
		exportErrors.Inc()
		p.logger.Warn("Failed to export artifact",
			zap.String("url", rawURL), zap.String("path", path), zap.Error(err))
		return false
	}

	// Persist failure is logged by the store and intentionally not
	// propagated; the in-memory set already advanced.
	_ = p.history.Add(rawURL, filename, fingerprint)

	pagesSaved.Inc()
	p.logger.Info("Saved artifact",
		zap.String("url", rawURL), zap.String("filename", filename))
	return true
}
