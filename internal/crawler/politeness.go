package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// PolitenessController spaces dispatches to the same domain by at least
// the configured delay. Each domain gets a token bucket of burst one
// refilled every delay, so the check-and-reserve step is atomic with
// respect to other waiters on the same domain: two concurrent tasks can
// never both observe a free turn.
type PolitenessController struct {
	delay    time.Duration
	limiters sync.Map // host -> *rate.Limiter

	mu           sync.Mutex
	lastDispatch map[string]time.Time
}

// NewPolitenessController builds a controller enforcing delay between
// dispatches per domain. A zero delay disables spacing.
func NewPolitenessController(delay time.Duration) *PolitenessController {
	return &PolitenessController{
		delay:        delay,
		lastDispatch: make(map[string]time.Time),
	}
}

// WaitTurn blocks the calling task until the domain's turn is free,
// then records the dispatch. Other goroutines are not held up.
func (p *PolitenessController) WaitTurn(ctx context.Context, rawURL string) error {
	host := Host(rawURL)
	if p.delay > 0 {
		val, _ := p.limiters.LoadOrStore(host, rate.NewLimiter(rate.Every(p.delay), 1))
		limiter, ok := val.(*rate.Limiter)
		if !ok {
			return fmt.Errorf("unexpected limiter type %T", val)
		}
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait domain turn: %w", err)
		}
	}

	p.mu.Lock()
	if now := time.Now(); now.After(p.lastDispatch[host]) {
		p.lastDispatch[host] = now
	}
	p.mu.Unlock()
	return nil
}

// LastDispatch returns when the domain was last dispatched to. The
// value is monotonically non-decreasing within a run.
func (p *PolitenessController) LastDispatch(host string) (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ts, ok := p.lastDispatch[host]
	return ts, ok
}
