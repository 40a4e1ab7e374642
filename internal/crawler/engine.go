package crawler

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config holds the settings for one crawl run. It is decoupled from
// Viper so the engine can be constructed and tested independently.
type Config struct {
	StartURL    string
	OutputDir   string
	Concurrency int
	MaxDepth    int
	Timeout     time.Duration
	Delay       time.Duration
	Prefixes    []string
	RefreshMode RefreshMode
	NoNewLimit  int
	DealCookie  bool

	// RevealSettle is the pause after a reveal interaction before
	// re-extracting; EmptyBackoff is the pause after an unproductive
	// cycle. Both default to one second.
	RevealSettle time.Duration
	EmptyBackoff time.Duration
}

// Engine drives the portal loop and the level-synchronous BFS over
// discovered links. Each depth is processed as one batch bounded by
// the concurrency limiter, with a barrier before the next level so the
// shared seen/processed sets reflect every extraction first.
type Engine struct {
	cfg       Config
	browser   Browser
	filter    *linkFilter
	extractor *LinkExtractor
	processor *PageProcessor
	reveal    *RevealDriver
	cookies   *CookieDismisser
	logger    *zap.Logger
}

// NewEngine wires a crawl run. The history store must be loaded before
// Run is called.
func NewEngine(
	cfg Config,
	browser Browser,
	history *HistoryStore,
	robots RobotsPolicy,
	logger *zap.Logger,
) (*Engine, error) {
	startURL, err := NormalizeURL(cfg.StartURL)
	if err != nil || startURL == "" {
		return nil, fmt.Errorf("invalid start url %q: %w", cfg.StartURL, err)
	}
	cfg.StartURL = startURL
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.MaxDepth < 1 {
		cfg.MaxDepth = 1
	}
	if cfg.NoNewLimit < 1 {
		cfg.NoNewLimit = 1
	}
	if cfg.RevealSettle <= 0 {
		cfg.RevealSettle = time.Second
	}
	if cfg.EmptyBackoff <= 0 {
		cfg.EmptyBackoff = time.Second
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o750); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", cfg.OutputDir, err)
	}

	filter := newLinkFilter(cfg.Prefixes, history)
	extractor := NewLinkExtractor(filter, logger)
	var cookies *CookieDismisser
	if cfg.DealCookie {
		cookies = NewCookieDismisser(logger)
	}
	processor := &PageProcessor{
		browser:    browser,
		robots:     robots,
		politeness: NewPolitenessController(cfg.Delay),
		slots:      newSlotLimiter(cfg.Concurrency),
		history:    history,
		extractor:  extractor,
		cookies:    cookies,
		outputDir:  cfg.OutputDir,
		timeout:    cfg.Timeout,
		maxDepth:   cfg.MaxDepth,
		logger:     logger,
	}

	return &Engine{
		cfg:       cfg,
		browser:   browser,
		filter:    filter,
		extractor: extractor,
		processor: processor,
		reveal:    NewRevealDriver(cfg.RefreshMode, logger),
		cookies:   cookies,
		logger:    logger,
	}, nil
}

// Run crawls until the portal is exhausted or the context finishes.
func (e *Engine) Run(ctx context.Context) error {
	portal, err := e.browser.Open(ctx, e.cfg.StartURL, e.cfg.Timeout)
	if portal == nil {
		return fmt.Errorf("open portal %s: %w", e.cfg.StartURL, err)
	}
	defer func() {
		if cerr := portal.Close(); cerr != nil {
			e.logger.Debug("Failed to close portal session", zap.Error(cerr))
		}
	}()
	if err != nil {
		navigationErrors.Inc()
		e.logger.Warn("Portal load incomplete; continuing with partial state",
			zap.String("url", e.cfg.StartURL), zap.Error(err))
	}

	if e.cookies != nil {
		e.cookies.Dismiss(ctx, portal)
	}

	// The portal itself is never dispatched as a page task.
	e.filter.MarkSeen(e.cfg.StartURL)

	consecutiveNoNew := 0
	for round := 1; ; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.logger.Info("Portal collection round", zap.Int("round", round))

		links := e.extractor.Extract(ctx, portal)
		if len(links) == 0 {
			consecutiveNoNew++
			e.logger.Info("No new links on portal",
				zap.Int("consecutive", consecutiveNoNew),
				zap.Int("limit", e.cfg.NoNewLimit),
			)
			// The reveal runs on every empty round, the last included.
			// A reveal that claims success does not reset the counter;
			// only links actually appearing at re-extraction do, so
			// termination stays bounded.
			progressed := e.attemptReveal(ctx, portal)
			if consecutiveNoNew >= e.cfg.NoNewLimit {
				e.logger.Info("Portal appears exhausted; stopping",
					zap.Int("attempts", consecutiveNoNew))
				return nil
			}
			if progressed {
				e.sleep(ctx, e.cfg.RevealSettle)
			} else {
				e.sleep(ctx, e.cfg.EmptyBackoff)
			}
			continue
		}

		consecutiveNoNew = 0
		e.runLevels(ctx, links)

		if e.attemptReveal(ctx, portal) {
			e.sleep(ctx, e.cfg.RevealSettle)
		}
	}
}

// runLevels processes the frontier one depth at a time. All URLs of a
// level run concurrently; the errgroup wait is the level barrier that
// guarantees depth d+1 membership is complete before it starts.
func (e *Engine) runLevels(ctx context.Context, level []string) {
	for depth := 1; len(level) > 0 && depth <= e.cfg.MaxDepth; depth++ {
		e.logger.Info("Processing level",
			zap.Int("depth", depth), zap.Int("urls", len(level)))

		results := make([][]string, len(level))
		g, gctx := errgroup.WithContext(ctx)
		for i, u := range level {
			g.Go(func() error {
				results[i] = e.processor.Process(gctx, u, depth)
				return nil
			})
		}
		// Process never returns an error; Wait is purely the barrier.
		_ = g.Wait()

		var next []string
		for _, links := range results {
			next = append(next, links...)
		}
		level = next
	}
}

func (e *Engine) attemptReveal(ctx context.Context, portal Session) bool {
	progressed := e.reveal.Attempt(ctx, portal)
	if progressed {
		revealAttempts.WithLabelValues("progress").Inc()
	} else {
		revealAttempts.WithLabelValues("no_progress").Inc()
	}
	return progressed
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
