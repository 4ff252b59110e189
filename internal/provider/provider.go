// Package provider implements the market-data acquisition chain: a primary
// network provider, an optional secondary, and the candle store as last
// resort, behind one fetch contract with retry and fallback.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"PatternScout/internal/cache"
	"PatternScout/internal/metrics"
	"PatternScout/internal/model"
	"PatternScout/internal/normalize"
)

// ErrTimeout marks a call abandoned after the hard per-call timeout.
var ErrTimeout = errors.New("provider call timed out")

// ErrEmptyResponse marks a response that parsed but contained no bars.
var ErrEmptyResponse = errors.New("provider returned no data")

// ErrUnsupported is reported by a provider for requests outside its tier
// (e.g. non-daily intervals on a free secondary).
var ErrUnsupported = errors.New("request not supported by this provider")

// TransientError wraps network, timeout, and rate-limit failures that are
// worth retrying.
type TransientError struct {
	Provider string
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient: %v", e.Provider, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrEmptyResponse)
}

// Provider fetches a raw candle table from one upstream source. A nil error
// with an empty table is not valid; providers return ErrEmptyResponse.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, tickers []string, period model.Period, interval model.Interval) (normalize.RawTable, error)
}

// Result is the outcome of the chain for one ticker. An empty Series with a
// nil error means "no data anywhere, skip this ticker this run".
type Result struct {
	Series    model.Series
	Source    string
	Stale     bool
	FetchedAt time.Time
}

// Chain is the ordered provider fallback: primary with retries, secondary
// per ticker, then the candle store regardless of TTL.
type Chain struct {
	Primary   Provider
	Secondary Provider // nil when unconfigured
	Store     *cache.Store
	Retry     RetryPolicy
	Timeout   time.Duration
	Limiter   *RateLimiter // guards the secondary's free-tier budget
	Metrics   *metrics.Metrics
}

// NewChain builds a chain with the given tiers. secondary and limiter may
// be nil.
func NewChain(primary, secondary Provider, store *cache.Store, retry RetryPolicy, timeout time.Duration, limiter *RateLimiter, m *metrics.Metrics) *Chain {
	return &Chain{
		Primary:   primary,
		Secondary: secondary,
		Store:     store,
		Retry:     retry,
		Timeout:   timeout,
		Limiter:   limiter,
		Metrics:   m,
	}
}

// NormalizeTickers trims, uppercases, dedupes, and sorts a ticker list.
func NormalizeTickers(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Fetch resolves a series for every requested ticker. Per-ticker outcomes
// are independent: one ticker falling back to cache does not affect the
// others. Successful network fetches populate the store as a side effect.
func (c *Chain) Fetch(ctx context.Context, tickers []string, period model.Period, interval model.Interval) map[string]Result {
	tickers = NormalizeTickers(tickers)
	results := make(map[string]Result, len(tickers))
	if len(tickers) == 0 {
		return results
	}

	missing := c.fetchPrimary(ctx, tickers, period, interval, results)
	missing = c.fetchSecondary(ctx, missing, period, interval, results)

	// Last resort: cached series regardless of TTL, labeled stale.
	for _, t := range missing {
		entry, err := c.Store.Get(t, period, interval)
		if err != nil || entry == nil {
			c.Metrics.FetchDone("cache", "miss")
			results[t] = Result{Series: model.Series{Ticker: t, Interval: interval}}
			continue
		}
		c.Metrics.FetchDone("cache", "stale")
		results[t] = Result{
			Series:    entry.Series,
			Source:    "cache",
			Stale:     true,
			FetchedAt: entry.FetchedAt,
		}
	}
	return results
}

// fetchPrimary tries the primary tier for the whole batch with retries.
// It returns the tickers still unresolved.
func (c *Chain) fetchPrimary(ctx context.Context, tickers []string, period model.Period, interval model.Interval, results map[string]Result) []string {
	var table normalize.RawTable
	err := c.Retry.Do(ctx, func() error {
		var callErr error
		table, callErr = c.callAbandonable(ctx, c.Primary, tickers, period, interval)
		return callErr
	})
	if err != nil {
		c.Metrics.FetchDone(c.Primary.Name(), "error")
		return tickers
	}

	var missing []string
	now := time.Now()
	for _, t := range tickers {
		series, normErr := normalize.Normalize(table, t)
		if normErr != nil || series.IsEmpty() {
			missing = append(missing, t)
			continue
		}
		if putErr := c.Store.Put(t, period, interval, series); putErr != nil {
			// A cache write failure must not fail the fetch.
			c.Metrics.FetchDone("cache", "write_error")
		}
		c.Metrics.FetchDone(c.Primary.Name(), "ok")
		results[t] = Result{Series: series, Source: c.Primary.Name(), FetchedAt: now}
	}
	return missing
}

// fetchSecondary tries the secondary tier one ticker at a time, under the
// rolling per-minute rate limit. Unsupported requests fall through quietly.
func (c *Chain) fetchSecondary(ctx context.Context, tickers []string, period model.Period, interval model.Interval, results map[string]Result) []string {
	if c.Secondary == nil || len(tickers) == 0 {
		return tickers
	}

	var missing []string
	now := time.Now()
	for _, t := range tickers {
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				missing = append(missing, t)
				continue
			}
		}
		table, err := c.callAbandonable(ctx, c.Secondary, []string{t}, period, interval)
		if err != nil {
			outcome := "error"
			if errors.Is(err, ErrUnsupported) {
				outcome = "unsupported"
			}
			c.Metrics.FetchDone(c.Secondary.Name(), outcome)
			missing = append(missing, t)
			continue
		}
		series, normErr := normalize.Normalize(table, t)
		if normErr != nil || series.IsEmpty() {
			missing = append(missing, t)
			continue
		}
		if putErr := c.Store.Put(t, period, interval, series); putErr != nil {
			c.Metrics.FetchDone("cache", "write_error")
		}
		c.Metrics.FetchDone(c.Secondary.Name(), "ok")
		results[t] = Result{Series: series, Source: c.Secondary.Name(), FetchedAt: now}
	}
	return missing
}

// callAbandonable issues the provider call on a short-lived worker and
// abandons it when the hard timeout expires. No cancel-and-wait: many HTTP
// clients cannot be interrupted mid-socket-read, so the zombie call is left
// to finish (or fail) in the background.
func (c *Chain) callAbandonable(ctx context.Context, p Provider, tickers []string, period model.Period, interval model.Interval) (normalize.RawTable, error) {
	type outcome struct {
		table normalize.RawTable
		err   error
	}
	ch := make(chan outcome, 1) // buffered: the abandoned worker must not block forever

	go func() {
		table, err := p.Fetch(context.Background(), tickers, period, interval)
		ch <- outcome{table, err}
	}()

	timer := time.NewTimer(c.Timeout)
	defer timer.Stop()

	select {
	case out := <-ch:
		return out.table, out.err
	case <-timer.C:
		return normalize.RawTable{}, &TransientError{Provider: p.Name(), Err: ErrTimeout}
	case <-ctx.Done():
		return normalize.RawTable{}, ctx.Err()
	}
}
