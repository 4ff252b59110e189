package detector

import (
	"fmt"

	"PatternScout/internal/indicator"
	"PatternScout/internal/model"
)

// WeeklyRSIReversal thresholds. The pattern is a weekly RSI turning up out
// of the oversold-to-neutral band, confirmed (optionally) by the daily trend.
const (
	weeklyRSIMin = 30.0
	weeklyRSIMax = 50.0

	confirmEMABars = 60 // daily trend EMA
	confirmADXBars = 14

	buyVolRecentBars = 21
	buyVolPriorBars  = 42

	weeklyStopBars  = 21
	weeklyStopPad   = 0.98
	weeklyTargetPct = 0.15
)

// WeeklyRSIReversal detects a fast/slow EMA crossover on the weekly RSI
// while the RSI itself sits in the reversal band.
type WeeklyRSIReversal struct{}

func (*WeeklyRSIReversal) Name() string             { return "weeklyrsi" }
func (*WeeklyRSIReversal) Category() model.Category { return model.CategoryConservative }

func (d *WeeklyRSIReversal) Detect(daily model.Series) *model.Match {
	mom, err := indicator.ComputeWeeklyMomentum(daily)
	if err != nil {
		return nil
	}
	if mom.FastEMA <= mom.SlowEMA {
		return nil
	}
	if mom.RSI < weeklyRSIMin || mom.RSI > weeklyRSIMax {
		return nil
	}

	last := daily.Last().Close
	buyTrend := buyingVolumeTrend(daily)
	confirmed := dailyConfirms(daily)

	rationale := []string{
		fmt.Sprintf("weekly RSI %.1f inside the %.0f-%.0f reversal band", mom.RSI, weeklyRSIMin, weeklyRSIMax),
		fmt.Sprintf("RSI fast EMA %.1f above slow EMA %.1f", mom.FastEMA, mom.SlowEMA),
	}
	confirmedMetric := 0.0
	if confirmed {
		confirmedMetric = 1
		rationale = append(rationale, "daily trend confirms (MACD, EMA60, DI)")
	}

	stop := minOf(daily.LastN(weeklyStopBars).Lows()) * weeklyStopPad

	return &model.Match{
		Ticker:    daily.Ticker,
		Detector:  d.Name(),
		MatchedAt: dateOf(daily.Last().Time),
		Metrics: map[string]float64{
			"weekly_rsi":          mom.RSI,
			"rsi_fast_ema":        mom.FastEMA,
			"rsi_slow_ema":        mom.SlowEMA,
			"buying_volume_trend": buyTrend,
			"daily_confirmed":     confirmedMetric,
		},
		Levels: model.Levels{
			Entry:  last,
			Stop:   stop,
			Target: last * (1 + weeklyTargetPct),
		},
		Rationale: rationale,
	}
}

// buyingVolumeTrend compares up-day volume in the recent month against the
// month before it. >1 means accumulation is picking up. Feeds confidence
// scoring only; it never gates the match.
func buyingVolumeTrend(daily model.Series) float64 {
	n := daily.Len()
	if n < buyVolPriorBars+1 {
		return 1
	}
	recent := upDayVolume(daily, n-buyVolRecentBars, n)
	prior := upDayVolume(daily, n-buyVolPriorBars, n-buyVolRecentBars)
	if prior <= 0 {
		return 1
	}
	return recent / prior
}

func upDayVolume(daily model.Series, start, end int) float64 {
	sum, count := 0.0, 0
	for i := start; i < end; i++ {
		if i < 1 {
			continue
		}
		if daily.Candles[i].Close > daily.Candles[i-1].Close {
			sum += daily.Candles[i].Volume
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// dailyConfirms checks the daily-timeframe trend filter: MACD above zero,
// price above its 60-bar EMA, and the positive directional index leading
// both the negative one and the ADX.
func dailyConfirms(daily model.Series) bool {
	closes := daily.Closes()
	macd, err := indicator.MACD(closes)
	if err != nil || macd.MACD <= 0 {
		return false
	}
	ema60, err := indicator.EMALast(closes, confirmEMABars)
	if err != nil || daily.Last().Close <= ema60 {
		return false
	}
	dir, err := indicator.ADX(daily.Candles, confirmADXBars)
	if err != nil {
		return false
	}
	return dir.PlusDI > dir.MinusDI && dir.PlusDI > dir.ADX
}
