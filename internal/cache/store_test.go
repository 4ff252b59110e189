package cache

import (
	"path/filepath"
	"testing"
	"time"

	"PatternScout/internal/model"
)

func testSeries() model.Series {
	return model.Series{
		Ticker:   "AAPL",
		Interval: model.IntervalDaily,
		Candles: []model.Candle{
			{Time: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 100},
			{Time: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Open: 10.5, High: 12, Low: 10, Close: 11.5, Volume: 200},
		},
	}
}

func openTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "candles.db"), ttl)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := openTestStore(t, time.Hour)

	if err := s.Put("AAPL", model.Period1Y, model.IntervalDaily, testSeries()); err != nil {
		t.Fatalf("put: %v", err)
	}

	entry, err := s.Get("AAPL", model.Period1Y, model.IntervalDaily)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if entry == nil {
		t.Fatal("expected entry, got nil")
	}
	if entry.Stale {
		t.Error("fresh entry marked stale")
	}
	if entry.Series.Len() != 2 || entry.Series.Candles[1].Close != 11.5 {
		t.Errorf("series not preserved: %+v", entry.Series)
	}
}

func TestStore_MissIsNilNil(t *testing.T) {
	s := openTestStore(t, time.Hour)
	entry, err := s.Get("NOPE", model.Period1Y, model.IntervalDaily)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry != nil {
		t.Errorf("expected nil entry for missing key, got %+v", entry)
	}
}

func TestStore_StalePastTTL(t *testing.T) {
	s := openTestStore(t, time.Nanosecond)

	if err := s.Put("AAPL", model.Period1Y, model.IntervalDaily, testSeries()); err != nil {
		t.Fatalf("put: %v", err)
	}
	time.Sleep(time.Millisecond)

	entry, err := s.Get("AAPL", model.Period1Y, model.IntervalDaily)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if entry == nil || !entry.Stale {
		t.Errorf("expected stale entry past TTL, got %+v", entry)
	}

	fresh, err := s.GetFresh("AAPL", model.Period1Y, model.IntervalDaily)
	if err != nil {
		t.Fatalf("get fresh: %v", err)
	}
	if fresh != nil {
		t.Errorf("expected nil from GetFresh past TTL, got %+v", fresh)
	}
}

func TestStore_PutOverwrites(t *testing.T) {
	s := openTestStore(t, time.Hour)

	if err := s.Put("AAPL", model.Period1Y, model.IntervalDaily, testSeries()); err != nil {
		t.Fatalf("put: %v", err)
	}
	updated := testSeries()
	updated.Candles = updated.Candles[:1]
	if err := s.Put("AAPL", model.Period1Y, model.IntervalDaily, updated); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	entry, err := s.Get("AAPL", model.Period1Y, model.IntervalDaily)
	if err != nil || entry == nil {
		t.Fatalf("get after overwrite: %v %v", entry, err)
	}
	if entry.Series.Len() != 1 {
		t.Errorf("expected overwritten series with 1 candle, got %d", entry.Series.Len())
	}
}

func TestStore_KeysAreIndependent(t *testing.T) {
	s := openTestStore(t, time.Hour)

	if err := s.Put("AAPL", model.Period1Y, model.IntervalDaily, testSeries()); err != nil {
		t.Fatalf("put: %v", err)
	}
	entry, err := s.Get("AAPL", model.Period6Mo, model.IntervalDaily)
	if err != nil {
		t.Fatalf("get other period: %v", err)
	}
	if entry != nil {
		t.Errorf("expected miss for a different period, got %+v", entry)
	}
}

func TestStore_RecordRun(t *testing.T) {
	s := openTestStore(t, time.Hour)
	if err := s.RecordRun("run-1", 100, 7, 0.034); err != nil {
		t.Fatalf("record run: %v", err)
	}
	// Re-recording the same run ID must not error.
	if err := s.RecordRun("run-1", 100, 8, 0.034); err != nil {
		t.Fatalf("re-record run: %v", err)
	}
}
