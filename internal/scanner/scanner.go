// Package scanner drives the full pipeline: universe -> cache/provider ->
// detectors -> scorer, with bounded concurrency, batching, and progress
// reporting. One scan runs at a time; overlapping triggers are no-ops.
package scanner

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"PatternScout/internal/cache"
	"PatternScout/internal/detector"
	"PatternScout/internal/metrics"
	"PatternScout/internal/model"
	"PatternScout/internal/provider"
	"PatternScout/internal/scorer"
)

// ErrAlreadyRunning is returned when a scan is triggered while one is in
// flight. The trigger is a no-op; the running scan is unaffected.
var ErrAlreadyRunning = errors.New("scan already in progress")

const relStrengthBars = 63 // 3-month window for relative strength

// Fetcher resolves series for a set of tickers. *provider.Chain satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, tickers []string, period model.Period, interval model.Interval) map[string]provider.Result
}

// Options configures a Scanner.
type Options struct {
	BatchSize     int
	Workers       int
	TickerTimeout time.Duration
	BatchPause    time.Duration
	Benchmark     string
	Period        model.Period

	// OnStateChange, when set, observes the flight slot: true as a scan
	// acquires it, false as it releases. A trigger that loses the
	// single-flight race never fires it.
	OnStateChange func(running bool)
}

// Scanner orchestrates scan runs.
type Scanner struct {
	fetcher   Fetcher
	store     *cache.Store
	detectors []detector.Detector
	metrics   *metrics.Metrics
	opts      Options

	running   atomic.Bool
	total     atomic.Int64
	processed atomic.Int64

	mu          sync.Mutex
	lastTicker  string
	lastResults []model.ScanResult
	lastBench   float64
}

// BenchmarkLastReturn returns the benchmark's 3-month return measured at
// the start of the most recent scan.
func (s *Scanner) BenchmarkLastReturn() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBench
}

// New creates a Scanner. store and m may be nil (no cache-first shortcut,
// no instrumentation); detectors defaults to the full battery.
func New(fetcher Fetcher, store *cache.Store, detectors []detector.Detector, m *metrics.Metrics, opts Options) *Scanner {
	if len(detectors) == 0 {
		detectors = detector.All()
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 40
	}
	if opts.Workers < 1 {
		opts.Workers = 6
	}
	if opts.Period == "" {
		opts.Period = model.Period1Y
	}
	return &Scanner{
		fetcher:   fetcher,
		store:     store,
		detectors: detectors,
		metrics:   m,
		opts:      opts,
	}
}

// Status returns a snapshot of scan progress. Results always reflect the
// most recent completed run.
func (s *Scanner) Status() model.ScanStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	results := make([]model.ScanResult, len(s.lastResults))
	copy(results, s.lastResults)
	return model.ScanStatus{
		TotalTickers: int(s.total.Load()),
		Processed:    int(s.processed.Load()),
		Running:      s.running.Load(),
		LastTicker:   s.lastTicker,
		Results:      results,
	}
}

// Scan runs the full pipeline over the given tickers and returns the ranked
// results. A second call while one is in flight returns ErrAlreadyRunning
// without disturbing the running scan.
func (s *Scanner) Scan(ctx context.Context, tickers []string) ([]model.ScanResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		log.Println("[WARN] scan trigger ignored: already running")
		return nil, ErrAlreadyRunning
	}
	start := time.Now()
	s.metrics.ScanStarted()
	if s.opts.OnStateChange != nil {
		s.opts.OnStateChange(true)
	}
	defer func() {
		s.running.Store(false)
		if s.opts.OnStateChange != nil {
			s.opts.OnStateChange(false)
		}
		s.metrics.ScanFinished(time.Since(start).Seconds())
	}()

	tickers = provider.NormalizeTickers(tickers)
	s.total.Store(int64(len(tickers)))
	s.processed.Store(0)
	log.Printf("[INFO] scan started: %d tickers, batch %d, workers %d",
		len(tickers), s.opts.BatchSize, s.opts.Workers)

	benchReturn := s.benchmarkReturn(ctx)
	s.mu.Lock()
	s.lastBench = benchReturn
	s.mu.Unlock()

	var all []model.ScanResult
	for i := 0; i < len(tickers); i += s.opts.BatchSize {
		if ctx.Err() != nil {
			break
		}
		end := i + s.opts.BatchSize
		if end > len(tickers) {
			end = len(tickers)
		}
		all = append(all, s.scanBatch(ctx, tickers[i:end], benchReturn)...)

		if end < len(tickers) && s.opts.BatchPause > 0 {
			select {
			case <-time.After(s.opts.BatchPause):
			case <-ctx.Done():
			}
		}
	}

	// An aborted run never reaches Completed: partial results are discarded
	// rather than folded into recommendations or reports.
	if err := ctx.Err(); err != nil {
		log.Printf("[WARN] scan aborted after %d/%d tickers: %v",
			s.processed.Load(), s.total.Load(), err)
		return nil, err
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Score > all[j].Score })

	s.mu.Lock()
	s.lastResults = all
	s.mu.Unlock()

	log.Printf("[INFO] scan completed: %d/%d tickers, %d matches, %s",
		s.processed.Load(), s.total.Load(), len(all), time.Since(start).Round(time.Second))
	return all, nil
}

// scanBatch runs one batch through the worker pool. Failures and timeouts
// skip the ticker, never the batch.
func (s *Scanner) scanBatch(ctx context.Context, batch []string, benchReturn float64) []model.ScanResult {
	jobs := make(chan string)
	var mu sync.Mutex
	var results []model.ScanResult

	var wg sync.WaitGroup
	for w := 0; w < s.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				res, skipped := s.processTicker(ctx, t, benchReturn)
				mu.Lock()
				results = append(results, res...)
				mu.Unlock()

				s.processed.Add(1)
				s.mu.Lock()
				s.lastTicker = t
				s.mu.Unlock()
				s.metrics.TickerDone(skipped)
			}
		}()
	}

	for _, t := range batch {
		select {
		case jobs <- t:
		case <-ctx.Done():
		}
	}
	close(jobs)
	wg.Wait()
	return results
}

// processTicker runs fetch -> detect -> score for one ticker under the
// per-ticker timeout. The timed-out pipeline is abandoned, not cancelled.
func (s *Scanner) processTicker(ctx context.Context, ticker string, benchReturn float64) ([]model.ScanResult, bool) {
	type outcome struct {
		results []model.ScanResult
		skipped bool
	}
	ch := make(chan outcome, 1)

	go func() {
		res, skipped := s.runPipeline(ctx, ticker, benchReturn)
		ch <- outcome{res, skipped}
	}()

	if s.opts.TickerTimeout <= 0 {
		out := <-ch
		return out.results, out.skipped
	}
	timer := time.NewTimer(s.opts.TickerTimeout)
	defer timer.Stop()
	select {
	case out := <-ch:
		return out.results, out.skipped
	case <-timer.C:
		log.Printf("[WARN] ticker %s timed out, skipped", ticker)
		return nil, true
	case <-ctx.Done():
		return nil, true
	}
}

func (s *Scanner) runPipeline(ctx context.Context, ticker string, benchReturn float64) ([]model.ScanResult, bool) {
	series, ok := s.resolveSeries(ctx, ticker)
	if !ok {
		return nil, true
	}

	rel := relStrength(series, benchReturn)
	var results []model.ScanResult
	for _, d := range s.detectors {
		match := d.Detect(series)
		if match == nil {
			continue
		}
		score := scorer.Score(match)
		s.metrics.MatchFound(d.Name())
		results = append(results, model.ScanResult{
			Ticker:      ticker,
			Detector:    d.Name(),
			Score:       score,
			Grade:       scorer.Grade(score),
			RelStrength: rel,
			Match:       match,
		})
	}
	return results, false
}

// resolveSeries is cache-first: a fresh store entry short-circuits the
// provider chain entirely.
func (s *Scanner) resolveSeries(ctx context.Context, ticker string) (model.Series, bool) {
	if s.store != nil {
		entry, err := s.store.GetFresh(ticker, s.opts.Period, model.IntervalDaily)
		if err == nil && entry != nil {
			s.metrics.CacheLookup("hit")
			return entry.Series, true
		}
		s.metrics.CacheLookup("miss")
	}

	res, ok := s.fetcher.Fetch(ctx, []string{ticker}, s.opts.Period, model.IntervalDaily)[ticker]
	if !ok || res.Series.IsEmpty() {
		return model.Series{}, false
	}
	return res.Series, true
}

// benchmarkReturn fetches the benchmark index and computes its 3-month
// return. A missing benchmark yields 0 so relative strength degrades to the
// raw ticker return.
func (s *Scanner) benchmarkReturn(ctx context.Context) float64 {
	if s.opts.Benchmark == "" {
		return 0
	}
	res, ok := s.fetcher.Fetch(ctx, []string{s.opts.Benchmark}, s.opts.Period, model.IntervalDaily)[s.opts.Benchmark]
	if !ok || res.Series.Len() < relStrengthBars+1 {
		log.Printf("[WARN] benchmark %s unavailable, relative strength unadjusted", s.opts.Benchmark)
		return 0
	}
	closes := res.Series.Closes()
	n := len(closes)
	return closes[n-1]/closes[n-1-relStrengthBars] - 1
}

// relStrength is the ticker's 3-month return minus the benchmark's.
func relStrength(series model.Series, benchReturn float64) float64 {
	closes := series.Closes()
	n := len(closes)
	if n < relStrengthBars+1 {
		return 0
	}
	return closes[n-1]/closes[n-1-relStrengthBars] - 1 - benchReturn
}
