package provider

import (
	"context"
	"sync"
	"time"
)

// RateLimiter enforces a rolling per-minute call budget. Wait blocks until
// a slot opens rather than erroring, bounded by MaxWait for a single wait.
type RateLimiter struct {
	mu      sync.Mutex
	calls   []time.Time
	limit   int
	window  time.Duration
	MaxWait time.Duration

	now func() time.Time // overridable in tests
}

// NewRateLimiter builds a limiter allowing limit calls per rolling minute.
func NewRateLimiter(limit int) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  time.Minute,
		MaxWait: 60 * time.Second,
		now:     time.Now,
	}
}

// Wait blocks until a call slot is available, then consumes it.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		wait := r.tryAcquire()
		if wait == 0 {
			return nil
		}
		if wait > r.MaxWait {
			wait = r.MaxWait
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// tryAcquire consumes a slot and returns 0, or returns how long until the
// oldest call leaves the rolling window.
func (r *RateLimiter) tryAcquire() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-r.window)
	kept := r.calls[:0]
	for _, t := range r.calls {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	r.calls = kept

	if len(r.calls) < r.limit {
		r.calls = append(r.calls, now)
		return 0
	}
	return r.calls[0].Add(r.window).Sub(now)
}
