package crawler

import (
	"context"
	"fmt"
)

// slotLimiter is a counting admission gate bounding concurrent page
// sessions. Callers must pair every successful Acquire with a Release
// in a deferred cleanup path so failed tasks cannot leak slots.
type slotLimiter struct {
	slots chan struct{}
}

func newSlotLimiter(capacity int) *slotLimiter {
	if capacity < 1 {
		capacity = 1
	}
	return &slotLimiter{slots: make(chan struct{}, capacity)}
}

// Acquire blocks until a slot is free or the context finishes.
func (l *slotLimiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("acquire page slot: %w", ctx.Err())
	}
}

// Release frees one slot. A Release without a matching Acquire is
// absorbed rather than blocking.
func (l *slotLimiter) Release() {
	select {
	case <-l.slots:
	default:
	}
}

// InUse reports the number of currently held slots.
func (l *slotLimiter) InUse() int {
	return len(l.slots)
}
