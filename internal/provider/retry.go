package provider

import (
	"context"
	"fmt"
	"log"
	"time"
)

// RetryPolicy centralizes the retry behavior applied to provider calls:
// a fixed number of retries, a fixed pause between them, and a predicate
// deciding which errors are worth another attempt.
type RetryPolicy struct {
	MaxRetries int
	Pause      time.Duration
	Retryable  func(error) bool
}

// DefaultRetryPolicy retries transient failures twice with a 1s pause.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, Pause: time.Second, Retryable: IsTransient}
}

// Do runs op up to 1+MaxRetries times, pausing between attempts. It stops
// early on success, on a non-retryable error, or when ctx is cancelled.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Pause):
			}
		}
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		log.Printf("[WARN] attempt %d/%d failed: %v", attempt+1, p.MaxRetries+1, err)
	}
	return fmt.Errorf("all %d attempts exhausted: %w", p.MaxRetries+1, lastErr)
}
