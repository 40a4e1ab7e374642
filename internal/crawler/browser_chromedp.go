package crawler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// BrowserConfig controls the shared headless Chrome instance.
type BrowserConfig struct {
	UserAgent string
	Headless  bool
}

// defaultOpTimeout bounds quick DOM reads (title, HTML, location) so a
// wedged tab cannot stall a task that already survived navigation.
const defaultOpTimeout = 5 * time.Second

// ChromedpBrowser implements Browser on headless Chrome via chromedp.
// One browser process is shared; every Open creates a fresh tab.
type ChromedpBrowser struct {
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	userAgent       string
	logger          *zap.Logger
}

// NewChromedpBrowser launches the browser process and warms it up.
func NewChromedpBrowser(cfg BrowserConfig, logger *zap.Logger) (*ChromedpBrowser, error) {
	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.UserAgent(cfg.UserAgent),
	)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}
	return &ChromedpBrowser{
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		userAgent:       cfg.UserAgent,
		logger:          logger,
	}, nil
}

// Close tears down the browser and allocator contexts.
func (b *ChromedpBrowser) Close() error {
	b.browserCancel()
	b.allocatorCancel()
	return nil
}

// Open navigates a new tab to rawURL. A navigation timeout returns the
// session together with an ErrNavigation-wrapped error so the caller
// can continue against whatever state the page reached.
func (b *ChromedpBrowser) Open(ctx context.Context, rawURL string, timeout time.Duration) (Session, error) {
	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	sess := &chromedpSession{
		tabCtx:    tabCtx,
		cancelTab: cancelTab,
		openedURL: rawURL,
		logger:    b.logger,
	}

	navCtx, cancelNav := context.WithTimeout(tabCtx, timeout)
	defer cancelNav()
	stopForward := forwardCancel(ctx, cancelNav)
	defer stopForward()

	err := chromedp.Run(navCtx,
		emulation.SetUserAgentOverride(b.userAgent),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return sess, fmt.Errorf("%w: open %s: %v", ErrNavigation, rawURL, err)
	}
	return sess, nil
}

// chromedpSession is one open tab.
type chromedpSession struct {
	tabCtx    context.Context
	cancelTab context.CancelFunc
	openedURL string
	logger    *zap.Logger
}

// run executes actions against the tab, bounded by timeout and by the
// caller's context.
func (s *chromedpSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	var opCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		opCtx, cancel = context.WithTimeout(s.tabCtx, timeout)
	} else {
		opCtx, cancel = context.WithCancel(s.tabCtx)
	}
	defer cancel()
	stopForward := forwardCancel(ctx, cancel)
	defer stopForward()
	return chromedp.Run(opCtx, actions...)
}

func (s *chromedpSession) Title(ctx context.Context) (string, error) {
	var title string
	if err := s.run(ctx, defaultOpTimeout, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("read title: %w", err)
	}
	return title, nil
}

func (s *chromedpSession) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, defaultOpTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read outer html: %w", err)
	}
	return html, nil
}

func (s *chromedpSession) Location() string {
	var loc string
	if err := s.run(context.Background(), defaultOpTimeout, chromedp.Location(&loc)); err != nil || loc == "" {
		return s.openedURL
	}
	return loc
}

// ExportPDF prints the tab to an A4 PDF with backgrounds, writing the
// file only when the export completed within its timeout.
func (s *chromedpSession) ExportPDF(ctx context.Context, path string, timeout time.Duration) error {
	var buf []byte
	err := s.run(ctx, timeout,
		chromedp.ActionFunc(func(actionCtx context.Context) error {
			// Screen media renders closer to what the user saw; not
			// every page supports the override, so failure is ignored.
			_ = emulation.SetEmulatedMedia().WithMedia("screen").Do(actionCtx)
			var printErr error
			buf, _, printErr = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				Do(actionCtx)
			return printErr
		}),
	)
	if err != nil {
		return fmt.Errorf("print pdf: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o600); err != nil {
		return fmt.Errorf("write pdf %s: %w", path, err)
	}
	return nil
}

func (s *chromedpSession) Click(ctx context.Context, sel Selector, timeout time.Duration) error {
	var action chromedp.Action
	switch sel.Kind {
	case SelectorXPath:
		action = chromedp.Click(sel.Query, chromedp.BySearch)
	default:
		action = chromedp.Click(sel.Query, chromedp.ByQuery, chromedp.NodeVisible)
	}
	if err := s.run(ctx, timeout, action); err != nil {
		return fmt.Errorf("click %s: %w", sel.Query, err)
	}
	return nil
}

func (s *chromedpSession) ScrollBottom(ctx context.Context) error {
	err := s.run(ctx, defaultOpTimeout,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil))
	if err != nil {
		return fmt.Errorf("scroll to bottom: %w", err)
	}
	return nil
}

func (s *chromedpSession) Settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-s.tabCtx.Done():
	case <-timer.C:
	}
}

func (s *chromedpSession) Close() error {
	s.cancelTab()
	return nil
}

// forwardCancel propagates cancellation from parent to cancel until the
// returned stop function is called.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
