package detector

import (
	"testing"
	"time"

	"PatternScout/internal/model"
)

// seriesFromCloses builds a daily series with highs/lows bracketing each
// close by one point.
func seriesFromCloses(ticker string, closes []float64, volume float64) model.Series {
	s := model.Series{Ticker: ticker, Interval: model.IntervalDaily}
	day := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for _, c := range closes {
		for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			day = day.AddDate(0, 0, 1)
		}
		s.Candles = append(s.Candles, model.Candle{
			Time: day, Open: c, High: c + 1, Low: c - 1, Close: c, Volume: volume,
		})
		day = day.AddDate(0, 0, 1)
	}
	return s
}

// interpolate fills closes[from..to] linearly from start to end values.
func interpolate(closes []float64, from, to int, start, end float64) {
	span := float64(to - from)
	for i := from; i <= to; i++ {
		closes[i] = start + (end-start)*float64(i-from)/span
	}
}

// rallyCloses: ~flat base, a strong 3-month rise to a peak 21 bars before
// the end, a pullback into the final week, and a sharp final-week rebound.
func rallyCloses() []float64 {
	closes := make([]float64, 130)
	interpolate(closes, 0, 66, 51, 51)
	interpolate(closes, 66, 108, 51, 111) // rally into the peak at len-1-21
	interpolate(closes, 108, 124, 111, 89.3)
	interpolate(closes, 124, 129, 89.3, 100)
	return closes
}

func TestRally_Match(t *testing.T) {
	s := seriesFromCloses("AAA", rallyCloses(), 500_000)
	// Surge the final week's volume.
	for i := s.Len() - rallyWeekBars; i < s.Len(); i++ {
		s.Candles[i].Volume = 1_500_000
	}

	d := &Rally{}
	m := d.Detect(s)
	if m == nil {
		t.Fatal("expected a rally match")
	}
	if m.Ticker != "AAA" || m.Detector != "rally3m" {
		t.Errorf("unexpected identity: %+v", m)
	}
	if got := m.Metrics["three_month_return"]; got < rallyMinReturn {
		t.Errorf("three_month_return %v below threshold", got)
	}
	if got := m.Metrics["pullback"]; got > 0 || got < rallyMaxPullback {
		t.Errorf("pullback %v outside accepted band", got)
	}
	if m.Levels.Stop >= m.Levels.Entry {
		t.Errorf("stop %v not below entry %v", m.Levels.Stop, m.Levels.Entry)
	}
	if len(m.Rationale) == 0 {
		t.Error("expected a rationale")
	}
}

func TestRally_RejectsWeakReturn(t *testing.T) {
	closes := rallyCloses()
	// Halve the rally: base at 80 instead of 51 keeps the shape but kills
	// the 3-month return.
	interpolate(closes, 0, 66, 80, 80)
	interpolate(closes, 66, 108, 80, 111)
	s := seriesFromCloses("AAA", closes, 500_000)
	if m := (&Rally{}).Detect(s); m != nil {
		t.Errorf("expected nil for a weak rally, got %+v", m)
	}
}

func TestRally_RejectsStillAccelerating(t *testing.T) {
	// Straight up with no pullback: the last-21-bar return is positive.
	closes := make([]float64, 130)
	interpolate(closes, 0, 129, 50, 120)
	s := seriesFromCloses("AAA", closes, 500_000)
	if m := (&Rally{}).Detect(s); m != nil {
		t.Errorf("expected nil without a pullback, got %+v", m)
	}
}

func TestRally_RejectsIlliquid(t *testing.T) {
	s := seriesFromCloses("AAA", rallyCloses(), 50_000)
	if m := (&Rally{}).Detect(s); m != nil {
		t.Errorf("expected nil below the volume floor, got %+v", m)
	}
}

func TestRally_RejectsShortHistory(t *testing.T) {
	s := seriesFromCloses("AAA", rallyCloses()[:40], 500_000)
	if m := (&Rally{}).Detect(s); m != nil {
		t.Errorf("expected nil for short history, got %+v", m)
	}
}
