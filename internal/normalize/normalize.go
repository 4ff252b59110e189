// Package normalize converts provider-specific tabular responses into the
// canonical typed Series. All downstream code operates on model.Series;
// the ambiguity of batched multi-ticker layouts stops here.
package normalize

import (
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"PatternScout/internal/model"
)

// ErrTickerNotPresent reports that a multi-ticker table does not contain
// the requested ticker. Distinct from an empty series: the orchestrator may
// retry the fetch through a different provider call.
var ErrTickerNotPresent = errors.New("ticker not present in response")

// Column is one column of a raw provider table. Batched responses carry a
// two-level header whose level order is provider-dependent: (field, ticker)
// or (ticker, field). Single-ticker responses leave Key2 empty. Missing
// values are NaN.
type Column struct {
	Key1   string
	Key2   string
	Values []float64
}

// RawTable is the boundary type produced by providers before normalization.
// Interval records the bar size the provider was asked for; empty means
// daily.
type RawTable struct {
	Dates    []time.Time
	Columns  []Column
	Interval model.Interval
}

var fieldNames = map[string]bool{
	"open": true, "high": true, "low": true, "close": true, "volume": true,
}

func isField(s string) bool { return fieldNames[strings.ToLower(s)] }

// Normalize extracts the requested ticker's OHLCV columns from a raw table
// and produces a canonical series: incomplete rows dropped, dates ascending.
// Grouping precedence for batched layouts: (field, ticker) first, then
// (ticker, field), then single-ticker flatten.
func Normalize(table RawTable, requestedTicker string) (model.Series, error) {
	ticker := strings.ToUpper(strings.TrimSpace(requestedTicker))
	interval := table.Interval
	if interval == "" {
		interval = model.IntervalDaily
	}
	series := model.Series{Ticker: ticker, Interval: interval}

	cols := dedupeColumns(table.Columns)

	multi := false
	for _, c := range cols {
		if c.Key2 != "" {
			multi = true
			break
		}
	}

	var fields map[string][]float64
	if multi {
		// Order A: Key1 is the field, Key2 the ticker.
		fields = collect(cols, func(c Column) (string, bool) {
			if isField(c.Key1) && strings.EqualFold(c.Key2, ticker) {
				return strings.ToLower(c.Key1), true
			}
			return "", false
		})
		if !hasOHLC(fields) {
			// Order B: Key1 is the ticker, Key2 the field.
			fields = collect(cols, func(c Column) (string, bool) {
				if strings.EqualFold(c.Key1, ticker) && isField(c.Key2) {
					return strings.ToLower(c.Key2), true
				}
				return "", false
			})
		}
		if !hasOHLC(fields) {
			return series, ErrTickerNotPresent
		}
	} else {
		fields = collect(cols, func(c Column) (string, bool) {
			if isField(c.Key1) {
				return strings.ToLower(c.Key1), true
			}
			return "", false
		})
		if !hasOHLC(fields) {
			return series, ErrTickerNotPresent
		}
	}

	for i, date := range table.Dates {
		o := at(fields["open"], i)
		h := at(fields["high"], i)
		l := at(fields["low"], i)
		c := at(fields["close"], i)
		if math.IsNaN(o) || math.IsNaN(h) || math.IsNaN(l) || math.IsNaN(c) {
			continue // drop rows with any missing OHLC value
		}
		v := at(fields["volume"], i)
		if math.IsNaN(v) {
			v = 0
		}
		series.Candles = append(series.Candles, model.Candle{
			Time: date, Open: o, High: h, Low: l, Close: c, Volume: v,
		})
	}

	sort.SliceStable(series.Candles, func(i, j int) bool {
		return series.Candles[i].Time.Before(series.Candles[j].Time)
	})

	// Collapse repeated timestamps, first row wins. Keeps timestamps
	// strictly increasing even when a provider repeats a date.
	dedup := series.Candles[:0]
	for _, c := range series.Candles {
		if n := len(dedup); n > 0 && c.Time.Equal(dedup[n-1].Time) {
			continue
		}
		dedup = append(dedup, c)
	}
	series.Candles = dedup
	return series, nil
}

// FromSeries rebuilds a raw single-ticker table from a normalized series.
// Round-tripping through Normalize is a no-op.
func FromSeries(s model.Series) RawTable {
	table := RawTable{
		Interval: s.Interval,
		Dates:    make([]time.Time, s.Len()),
		Columns: []Column{
			{Key1: "Open", Values: make([]float64, s.Len())},
			{Key1: "High", Values: make([]float64, s.Len())},
			{Key1: "Low", Values: make([]float64, s.Len())},
			{Key1: "Close", Values: make([]float64, s.Len())},
			{Key1: "Volume", Values: make([]float64, s.Len())},
		},
	}
	for i, c := range s.Candles {
		table.Dates[i] = c.Time
		table.Columns[0].Values[i] = c.Open
		table.Columns[1].Values[i] = c.High
		table.Columns[2].Values[i] = c.Low
		table.Columns[3].Values[i] = c.Close
		table.Columns[4].Values[i] = c.Volume
	}
	return table
}

// dedupeColumns keeps the first occurrence of each (Key1, Key2) pair.
// Repeated pairs arise from a provider encoding quirk on batched requests.
func dedupeColumns(cols []Column) []Column {
	seen := make(map[string]bool, len(cols))
	out := make([]Column, 0, len(cols))
	for _, c := range cols {
		key := strings.ToLower(c.Key1) + "\x00" + strings.ToLower(c.Key2)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

func collect(cols []Column, match func(Column) (string, bool)) map[string][]float64 {
	fields := make(map[string][]float64)
	for _, c := range cols {
		if name, ok := match(c); ok {
			if _, dup := fields[name]; !dup {
				fields[name] = c.Values
			}
		}
	}
	return fields
}

func hasOHLC(fields map[string][]float64) bool {
	for _, f := range []string{"open", "high", "low", "close"} {
		if len(fields[f]) == 0 {
			return false
		}
	}
	return true
}

func at(values []float64, i int) float64 {
	if i >= len(values) {
		return math.NaN()
	}
	return values[i]
}
