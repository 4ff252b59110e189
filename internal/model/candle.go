package model

import "time"

// Interval identifies the bar size of a series.
type Interval string

const (
	IntervalDaily  Interval = "1d"
	IntervalWeekly Interval = "1wk"
)

// Period identifies how far back a fetch reaches.
type Period string

const (
	Period3Mo Period = "3mo"
	Period6Mo Period = "6mo"
	Period1Y  Period = "1y"
	Period2Y  Period = "2y"
)

// Candle represents a single OHLCV bar. Time carries the bar date only,
// no intraday component.
type Candle struct {
	Time   time.Time `json:"t"`
	Open   float64   `json:"o"`
	High   float64   `json:"h"`
	Low    float64   `json:"l"`
	Close  float64   `json:"c"`
	Volume float64   `json:"v"`
}

// Series is an ordered sequence of candles for one (ticker, interval).
// Transformations produce new series; a Series is never mutated in place.
type Series struct {
	Ticker   string   `json:"ticker"`
	Interval Interval `json:"interval"`
	Candles  []Candle `json:"candles"`
}

func (s Series) Len() int      { return len(s.Candles) }
func (s Series) IsEmpty() bool { return len(s.Candles) == 0 }

// Last returns the most recent candle. Callers must check IsEmpty first.
func (s Series) Last() Candle { return s.Candles[len(s.Candles)-1] }

// LastN returns a new series holding the trailing n candles (all of them
// when fewer exist).
func (s Series) LastN(n int) Series {
	start := len(s.Candles) - n
	if start < 0 {
		start = 0
	}
	out := Series{Ticker: s.Ticker, Interval: s.Interval}
	out.Candles = append(out.Candles, s.Candles[start:]...)
	return out
}

// Closes extracts the close column as a fresh slice.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Close
	}
	return out
}

// Highs extracts the high column as a fresh slice.
func (s Series) Highs() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.High
	}
	return out
}

// Lows extracts the low column as a fresh slice.
func (s Series) Lows() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Low
	}
	return out
}

// Volumes extracts the volume column as a fresh slice.
func (s Series) Volumes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Volume
	}
	return out
}
