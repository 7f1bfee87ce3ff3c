package gemini

import (
	"context"
	"sync"
	"time"
)

// Throttle enforces a minimum interval between request starts. The clock is
// measured from when a request begins, not when it finishes, so a slow
// response does not stack extra waiting onto the next call.
type Throttle struct {
	Interval time.Duration

	mu   sync.Mutex
	last time.Time
}

// Wait blocks until Interval has passed since the previous request started,
// then records the new request time. Concurrent callers are serialized.
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if wait := t.Interval - time.Since(t.last); wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	t.last = time.Now()
	return nil
}

// Mark records a request start without waiting.
func (t *Throttle) Mark() {
	t.mu.Lock()
	t.last = time.Now()
	t.mu.Unlock()
}
