package indicator

import (
	"time"

	"PatternScout/internal/model"
)

// MinWeeklyBars is the floor below which weekly momentum readings are not
// considered valid.
const MinWeeklyBars = 40

// ResampleWeekly groups daily candles into Friday-ending weeks: first open,
// max high, min low, last close, summed volume. The returned series carries
// the Friday date of each week and never aliases the input.
func ResampleWeekly(daily model.Series) model.Series {
	out := model.Series{Ticker: daily.Ticker, Interval: model.IntervalWeekly}
	if daily.IsEmpty() {
		return out
	}

	var week model.Candle
	var weekEnd time.Time
	started := false

	for _, d := range daily.Candles {
		end := fridayOf(d.Time)
		if !started || !end.Equal(weekEnd) {
			if started {
				out.Candles = append(out.Candles, week)
			}
			week = model.Candle{Time: end, Open: d.Open, High: d.High, Low: d.Low, Close: d.Close, Volume: d.Volume}
			weekEnd = end
			started = true
			continue
		}
		if d.High > week.High {
			week.High = d.High
		}
		if d.Low < week.Low {
			week.Low = d.Low
		}
		week.Close = d.Close
		week.Volume += d.Volume
	}
	if started {
		out.Candles = append(out.Candles, week)
	}
	return out
}

// fridayOf returns the date of the Friday ending the week containing t.
func fridayOf(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(time.Friday) - int(day.Weekday()) + 7) % 7
	return day.AddDate(0, 0, offset)
}

// WeeklyMomentum bundles the weekly RSI and its smoothed derivatives.
type WeeklyMomentum struct {
	RSI     float64 // current weekly RSI(14)
	FastEMA float64 // 3-period EMA of the weekly RSI series
	SlowEMA float64 // 14-period EMA of the weekly RSI series
}

// ComputeWeeklyMomentum resamples a daily series to weeks and computes the
// RSI stack. Returns ErrInsufficientData when fewer than MinWeeklyBars
// weekly bars exist, rather than a low-confidence number.
func ComputeWeeklyMomentum(daily model.Series) (WeeklyMomentum, error) {
	weekly := ResampleWeekly(daily)
	if weekly.Len() < MinWeeklyBars {
		return WeeklyMomentum{}, ErrInsufficientData
	}
	rsiSeries, err := RSISeries(weekly.Closes(), 14)
	if err != nil {
		return WeeklyMomentum{}, err
	}
	fast := EMA(rsiSeries, 3)
	slow := EMA(rsiSeries, 14)
	last := len(rsiSeries) - 1
	return WeeklyMomentum{
		RSI:     rsiSeries[last],
		FastEMA: fast[last],
		SlowEMA: slow[last],
	}, nil
}
