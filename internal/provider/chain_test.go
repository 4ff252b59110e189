package provider

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"PatternScout/internal/cache"
	"PatternScout/internal/model"
	"PatternScout/internal/normalize"
)

// stubProvider scripts fetch outcomes and records calls.
type stubProvider struct {
	name  string
	fetch func(tickers []string) (normalize.RawTable, error)

	mu    sync.Mutex
	calls int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Fetch(_ context.Context, tickers []string, _ model.Period, _ model.Interval) (normalize.RawTable, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return p.fetch(tickers)
}

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func seriesFor(ticker string, bars int) model.Series {
	s := model.Series{Ticker: ticker, Interval: model.IntervalDaily}
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < bars; i++ {
		base := 100 + float64(i)
		s.Candles = append(s.Candles, model.Candle{
			Time: day, Open: base, High: base + 1, Low: base - 1, Close: base + 0.5, Volume: 1000,
		})
		day = day.AddDate(0, 0, 1)
	}
	return s
}

func tableFor(ticker string, bars int) normalize.RawTable {
	return normalize.FromSeries(seriesFor(ticker, bars))
}

func alwaysFails(tickers []string) (normalize.RawTable, error) {
	return normalize.RawTable{}, &TransientError{Provider: "stub", Err: errors.New("down")}
}

func testChain(t *testing.T, primary, secondary Provider) (*Chain, *cache.Store) {
	t.Helper()
	store, err := cache.NewStore(filepath.Join(t.TempDir(), "candles.db"), time.Hour)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	retry := RetryPolicy{MaxRetries: 2, Pause: time.Millisecond, Retryable: IsTransient}
	return NewChain(primary, secondary, store, retry, time.Second, nil, nil), store
}

func TestChain_PrimaryWins(t *testing.T) {
	primary := &stubProvider{name: "primary", fetch: func(tickers []string) (normalize.RawTable, error) {
		return tableFor("AAPL", 5), nil
	}}
	secondary := &stubProvider{name: "secondary", fetch: alwaysFails}
	chain, store := testChain(t, primary, secondary)

	results := chain.Fetch(context.Background(), []string{"aapl"}, model.Period1Y, model.IntervalDaily)
	res, ok := results["AAPL"]
	if !ok {
		t.Fatalf("expected result for AAPL, got %v", results)
	}
	if res.Source != "primary" || res.Stale {
		t.Errorf("expected fresh primary result, got %+v", res)
	}
	if res.Series.Len() != 5 {
		t.Errorf("expected 5 candles, got %d", res.Series.Len())
	}
	if secondary.callCount() != 0 {
		t.Errorf("secondary should not be called, got %d calls", secondary.callCount())
	}

	// Successful fetches populate the store as a side effect.
	entry, err := store.Get("AAPL", model.Period1Y, model.IntervalDaily)
	if err != nil || entry == nil {
		t.Fatalf("expected store populated: %v %v", entry, err)
	}
}

func TestChain_FallsBackToSecondary(t *testing.T) {
	primary := &stubProvider{name: "primary", fetch: alwaysFails}
	secondary := &stubProvider{name: "secondary", fetch: func(tickers []string) (normalize.RawTable, error) {
		if len(tickers) != 1 {
			t.Errorf("secondary must be called one ticker at a time, got %v", tickers)
		}
		return tableFor(tickers[0], 5), nil
	}}
	chain, _ := testChain(t, primary, secondary)

	results := chain.Fetch(context.Background(), []string{"AAPL", "MSFT"}, model.Period1Y, model.IntervalDaily)
	for _, ticker := range []string{"AAPL", "MSFT"} {
		res := results[ticker]
		if res.Source != "secondary" || res.Series.IsEmpty() {
			t.Errorf("%s: expected secondary result, got %+v", ticker, res)
		}
	}
	if primary.callCount() != 3 { // 1 + 2 retries
		t.Errorf("expected 3 primary attempts, got %d", primary.callCount())
	}
}

func TestChain_SecondaryUnsupportedFallsThrough(t *testing.T) {
	primary := &stubProvider{name: "primary", fetch: alwaysFails}
	secondary := &stubProvider{name: "secondary", fetch: func([]string) (normalize.RawTable, error) {
		return normalize.RawTable{}, ErrUnsupported
	}}
	chain, store := testChain(t, primary, secondary)

	// Seed a stale cache entry.
	if err := store.Put("AAPL", model.Period1Y, model.IntervalDaily, seriesFor("AAPL", 5)); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	results := chain.Fetch(context.Background(), []string{"AAPL"}, model.Period1Y, model.IntervalDaily)
	res := results["AAPL"]
	if res.Source != "cache" || !res.Stale {
		t.Errorf("expected stale cache fallback, got %+v", res)
	}
	if res.Series.Len() != 5 {
		t.Errorf("expected cached series, got %d candles", res.Series.Len())
	}
}

func TestChain_NoDataAnywhere(t *testing.T) {
	primary := &stubProvider{name: "primary", fetch: alwaysFails}
	chain, _ := testChain(t, primary, nil)

	results := chain.Fetch(context.Background(), []string{"AAPL"}, model.Period1Y, model.IntervalDaily)
	res, ok := results["AAPL"]
	if !ok {
		t.Fatal("every requested ticker must appear in the result map")
	}
	if !res.Series.IsEmpty() {
		t.Errorf("expected empty series for unresolvable ticker, got %d candles", res.Series.Len())
	}
}

func TestChain_PrimaryTimeoutAbandoned(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	primary := &stubProvider{name: "primary", fetch: func([]string) (normalize.RawTable, error) {
		<-block // hangs past the chain timeout
		return normalize.RawTable{}, nil
	}}
	secondary := &stubProvider{name: "secondary", fetch: func(tickers []string) (normalize.RawTable, error) {
		return tableFor(tickers[0], 5), nil
	}}

	store, err := cache.NewStore(filepath.Join(t.TempDir(), "candles.db"), time.Hour)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	retry := RetryPolicy{MaxRetries: 0, Pause: time.Millisecond, Retryable: IsTransient}
	chain := NewChain(primary, secondary, store, retry, 20*time.Millisecond, nil, nil)

	start := time.Now()
	results := chain.Fetch(context.Background(), []string{"AAPL"}, model.Period1Y, model.IntervalDaily)
	if time.Since(start) > 5*time.Second {
		t.Fatal("fetch did not abandon the hung primary call")
	}
	if res := results["AAPL"]; res.Source != "secondary" {
		t.Errorf("expected secondary after primary timeout, got %+v", res)
	}
}

func TestNormalizeTickers(t *testing.T) {
	got := NormalizeTickers([]string{" msft ", "AAPL", "aapl", "", "MSFT"})
	want := []string{"AAPL", "MSFT"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(&TransientError{Provider: "x", Err: errors.New("boom")}) {
		t.Error("TransientError must be transient")
	}
	if !IsTransient(ErrTimeout) || !IsTransient(ErrEmptyResponse) {
		t.Error("timeout and empty response must be transient")
	}
	if IsTransient(errors.New("parse failure")) {
		t.Error("arbitrary errors must not be transient")
	}
}
