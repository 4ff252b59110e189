package detector

import (
	"fmt"
	"time"

	"PatternScout/internal/model"
)

// Rally thresholds. A match needs a strong 3-month advance that has paused
// into a lateral or corrective stretch and reignited in the final week.
const (
	rallyBars          = 63   // ~3 months of trading days
	rallyPullbackBars  = 21   // ~1 month
	rallyWeekBars      = 5    // final week
	rallyMinReturn     = 0.90 // 90% over the rally window
	rallyMaxPullback   = -0.25
	rallyMinFinalWeek  = 0.10
	rallyMinPrice      = 5.0
	rallyMinAvgVolume  = 200_000 // 60-bar average, illiquidity filter
	rallyVolumeAvgBars = 60
)

// Rally detects a 3-month momentum rally that is consolidating.
type Rally struct{}

func (*Rally) Name() string             { return "rally3m" }
func (*Rally) Category() model.Category { return model.CategoryAggressive }

func (d *Rally) Detect(daily model.Series) *model.Match {
	n := daily.Len()
	if n < rallyBars+1 {
		return nil
	}
	closes := daily.Closes()
	last := closes[n-1]

	if last < rallyMinPrice {
		return nil
	}

	threeMonth := last/closes[n-1-rallyBars] - 1
	if threeMonth < rallyMinReturn {
		return nil
	}

	pullback := last/closes[n-1-rallyPullbackBars] - 1
	if pullback > 0 || pullback < rallyMaxPullback {
		return nil
	}

	finalWeek := last/closes[n-1-rallyWeekBars] - 1
	if finalWeek <= rallyMinFinalWeek {
		return nil
	}

	avgVol := meanTail(daily.Volumes(), rallyVolumeAvgBars)
	if avgVol < rallyMinAvgVolume {
		return nil
	}

	window := daily.LastN(rallyBars)
	rallyHigh := maxOf(window.Highs())
	rallyLow := minOf(window.Lows())
	pullbackLow := minOf(daily.LastN(rallyPullbackBars).Lows())
	weekVol := meanTail(daily.Volumes(), rallyWeekBars)

	volumeSurge := 0.0
	if avgVol > 0 {
		volumeSurge = weekVol / avgVol
	}
	proximity := 0.0
	if rallyHigh > 0 {
		proximity = last / rallyHigh
	}

	target := rallyHigh
	if last >= target {
		target = last * (1 + rallyMinFinalWeek)
	}

	return &model.Match{
		Ticker:    daily.Ticker,
		Detector:  d.Name(),
		MatchedAt: dateOf(daily.Last().Time),
		Metrics: map[string]float64{
			"three_month_return": threeMonth,
			"pullback":           pullback,
			"final_week_return":  finalWeek,
			"avg_volume_60":      avgVol,
			"volume_surge":       volumeSurge,
			"breakout_proximity": proximity,
			"rally_high":         rallyHigh,
			"rally_low":          rallyLow,
		},
		Levels: model.Levels{
			Entry:  last,
			Stop:   pullbackLow,
			Target: target,
		},
		Rationale: []string{
			fmt.Sprintf("up %.0f%% over the last %d bars", threeMonth*100, rallyBars),
			fmt.Sprintf("corrective pullback of %.1f%% over the last %d bars", pullback*100, rallyPullbackBars),
			fmt.Sprintf("final week up %.1f%%", finalWeek*100),
			fmt.Sprintf("60-bar average volume %.0f", avgVol),
		},
	}
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func meanTail(values []float64, n int) float64 {
	if len(values) == 0 {
		return 0
	}
	start := len(values) - n
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for _, v := range values[start:] {
		sum += v
	}
	return sum / float64(len(values)-start)
}

func maxOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

func minOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min
}
