package normalize

import (
	"errors"
	"math"
	"testing"
	"time"

	"PatternScout/internal/model"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func flatTable() RawTable {
	return RawTable{
		Dates: []time.Time{day(1), day(2), day(3)},
		Columns: []Column{
			{Key1: "Open", Values: []float64{10, 11, 12}},
			{Key1: "High", Values: []float64{11, 12, 13}},
			{Key1: "Low", Values: []float64{9, 10, 11}},
			{Key1: "Close", Values: []float64{10.5, 11.5, 12.5}},
			{Key1: "Volume", Values: []float64{100, 200, 300}},
		},
	}
}

func TestNormalize_SingleTicker(t *testing.T) {
	series, err := Normalize(flatTable(), "aapl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Ticker != "AAPL" {
		t.Errorf("expected uppercased ticker, got %q", series.Ticker)
	}
	if series.Len() != 3 {
		t.Fatalf("expected 3 candles, got %d", series.Len())
	}
	if series.Candles[1].Close != 11.5 || series.Candles[1].Volume != 200 {
		t.Errorf("unexpected candle: %+v", series.Candles[1])
	}
}

func TestNormalize_FieldTickerLayout(t *testing.T) {
	table := RawTable{
		Dates: []time.Time{day(1), day(2)},
		Columns: []Column{
			{Key1: "Open", Key2: "AAPL", Values: []float64{10, 11}},
			{Key1: "High", Key2: "AAPL", Values: []float64{11, 12}},
			{Key1: "Low", Key2: "AAPL", Values: []float64{9, 10}},
			{Key1: "Close", Key2: "AAPL", Values: []float64{10.5, 11.5}},
			{Key1: "Volume", Key2: "AAPL", Values: []float64{100, 200}},
			{Key1: "Close", Key2: "MSFT", Values: []float64{400, 401}},
		},
	}
	series, err := Normalize(table, "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Len() != 2 || series.Candles[0].Close != 10.5 {
		t.Errorf("unexpected series: %+v", series.Candles)
	}
}

func TestNormalize_TickerFieldLayout(t *testing.T) {
	table := RawTable{
		Dates: []time.Time{day(1), day(2)},
		Columns: []Column{
			{Key1: "AAPL", Key2: "Open", Values: []float64{10, 11}},
			{Key1: "AAPL", Key2: "High", Values: []float64{11, 12}},
			{Key1: "AAPL", Key2: "Low", Values: []float64{9, 10}},
			{Key1: "AAPL", Key2: "Close", Values: []float64{10.5, 11.5}},
		},
	}
	series, err := Normalize(table, "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Len() != 2 || series.Candles[1].High != 12 {
		t.Errorf("unexpected series: %+v", series.Candles)
	}
	// Missing volume column is not fatal; it reads as zero.
	if series.Candles[0].Volume != 0 {
		t.Errorf("expected zero volume, got %v", series.Candles[0].Volume)
	}
}

func TestNormalize_TickerNotPresent(t *testing.T) {
	table := RawTable{
		Dates: []time.Time{day(1)},
		Columns: []Column{
			{Key1: "Close", Key2: "MSFT", Values: []float64{400}},
			{Key1: "Open", Key2: "MSFT", Values: []float64{399}},
			{Key1: "High", Key2: "MSFT", Values: []float64{401}},
			{Key1: "Low", Key2: "MSFT", Values: []float64{398}},
		},
	}
	if _, err := Normalize(table, "AAPL"); !errors.Is(err, ErrTickerNotPresent) {
		t.Errorf("expected ErrTickerNotPresent, got %v", err)
	}
}

func TestNormalize_DropsIncompleteRows(t *testing.T) {
	table := flatTable()
	table.Columns[3].Values[1] = math.NaN() // close missing on day 2
	series, err := Normalize(table, "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Len() != 2 {
		t.Fatalf("expected incomplete row dropped, got %d candles", series.Len())
	}
	if series.Candles[1].Time != day(3) {
		t.Errorf("expected day 3 as second candle, got %v", series.Candles[1].Time)
	}
}

func TestNormalize_MissingVolumeIsZero(t *testing.T) {
	table := flatTable()
	table.Columns[4].Values[0] = math.NaN()
	series, err := Normalize(table, "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Len() != 3 || series.Candles[0].Volume != 0 {
		t.Errorf("expected volume 0 with row kept, got %+v", series.Candles[0])
	}
}

func TestNormalize_SortsAscending(t *testing.T) {
	table := flatTable()
	table.Dates = []time.Time{day(3), day(1), day(2)}
	series, err := Normalize(table, "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < series.Len(); i++ {
		if !series.Candles[i-1].Time.Before(series.Candles[i].Time) {
			t.Fatalf("dates not ascending at %d", i)
		}
	}
}

func TestNormalize_DuplicateColumnsFirstWins(t *testing.T) {
	table := flatTable()
	table.Columns = append(table.Columns, Column{Key1: "Close", Values: []float64{0, 0, 0}})
	series, err := Normalize(table, "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Candles[0].Close != 10.5 {
		t.Errorf("expected first close column to win, got %v", series.Candles[0].Close)
	}
}

func TestNormalize_DuplicateDatesFirstWins(t *testing.T) {
	table := flatTable()
	table.Dates = []time.Time{day(1), day(2), day(2)}
	series, err := Normalize(table, "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Len() != 2 {
		t.Fatalf("expected duplicate date collapsed, got %d candles", series.Len())
	}
	// Day 2 appeared twice; the first row (close 11.5) wins.
	if series.Candles[1].Close != 11.5 {
		t.Errorf("expected first duplicate row kept, got close %v", series.Candles[1].Close)
	}
	for i := 1; i < series.Len(); i++ {
		if !series.Candles[i-1].Time.Before(series.Candles[i].Time) {
			t.Fatalf("timestamps not strictly increasing at %d", i)
		}
	}
}

func TestNormalize_CarriesRequestedInterval(t *testing.T) {
	table := flatTable()
	table.Interval = model.IntervalWeekly
	series, err := Normalize(table, "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Interval != model.IntervalWeekly {
		t.Errorf("expected weekly series, got %s", series.Interval)
	}
	if got := FromSeries(series).Interval; got != model.IntervalWeekly {
		t.Errorf("FromSeries dropped the interval, got %s", got)
	}

	// An unset table interval defaults to daily.
	daily, err := Normalize(flatTable(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if daily.Interval != model.IntervalDaily {
		t.Errorf("expected daily default, got %s", daily.Interval)
	}
}

func TestFromSeries_RoundTrip(t *testing.T) {
	orig, err := Normalize(flatTable(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	again, err := Normalize(FromSeries(orig), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.Len() != orig.Len() {
		t.Fatalf("length changed in round trip: %d vs %d", again.Len(), orig.Len())
	}
	for i := range orig.Candles {
		if orig.Candles[i] != again.Candles[i] {
			t.Errorf("candle %d changed: %+v vs %+v", i, orig.Candles[i], again.Candles[i])
		}
	}
}
