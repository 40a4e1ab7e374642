package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cwhall/portarc/internal/config"
	"github.com/cwhall/portarc/internal/crawler"
	"github.com/cwhall/portarc/internal/logging"
)

// newCrawlCmd creates and configures the 'crawl' subcommand. It runs
// every target declared in the configuration, sequentially, against one
// shared browser instance.
func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawls the configured portals and archives their pages",
		Long: `Loads the configuration, launches headless Chrome, and crawls each
configured target. A target that fails to validate or to run is logged
and skipped; it never aborts the remaining targets.`,

		RunE: runCrawlCommand,
	}
	return cmd
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	logger = logger.With(zap.String("run_id", uuid.NewString()))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr, logger)
	}

	browser, err := crawler.NewChromedpBrowser(crawler.BrowserConfig{
		UserAgent: cfg.Browser.UserAgent,
		Headless:  cfg.Browser.Headless,
	}, logger)
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if cerr := browser.Close(); cerr != nil {
			logger.Warn("Failed to close browser", zap.Error(cerr))
		}
	}()

	started := time.Now()
	failed := 0
	for i, target := range cfg.Targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		tlog := logger.With(
			zap.Int("target", i),
			zap.String("start_url", target.StartURL),
		)
		if err := runTarget(ctx, target, browser, cfg.Browser.UserAgent, tlog); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			failed++
			tlog.Error("Target failed", zap.Error(err))
			continue
		}
		tlog.Info("Target finished")
	}

	logger.Info("Crawl command finished",
		zap.Int("targets", len(cfg.Targets)),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(started)),
	)
	if failed > 0 {
		return fmt.Errorf("%d of %d targets failed", failed, len(cfg.Targets))
	}
	return nil
}

// runTarget validates, normalizes, and crawls one configured target.
func runTarget(ctx context.Context, t config.Target, browser crawler.Browser, userAgent string, logger *zap.Logger) error {
	if err := t.Validate(); err != nil {
		return err
	}
	t = t.Normalize(logger)

	history := crawler.NewHistoryStore(t.HistoryPath, logger)
	if err := history.Load(); err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	robots := crawler.NewRobotsEnforcer(t.ObeyRobots, userAgent, logger)

	engine, err := crawler.NewEngine(crawler.Config{
		StartURL:    t.StartURL,
		OutputDir:   t.OutputDir,
		Concurrency: t.Concurrency,
		MaxDepth:    t.MaxDepth,
		Timeout:     t.Timeout(),
		Delay:       t.Delay(),
		Prefixes:    t.Prefixes,
		RefreshMode: crawler.RefreshMode(t.RefreshMode),
		NoNewLimit:  t.NoNewLimit,
		DealCookie:  t.DealCookie,
	}, browser, history, robots, logger)
	if err != nil {
		return err
	}
	return engine.Run(ctx)
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("Serving metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("Metrics listener stopped", zap.Error(err))
	}
}
