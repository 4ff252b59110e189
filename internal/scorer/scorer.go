// Package scorer maps detector matches to a 0-100 score and a letter
// grade. Scoring is pure arithmetic over the match metrics so that the
// same match always yields the same score.
package scorer

import "PatternScout/internal/model"

// Grade thresholds.
const (
	gradeA = 85.0
	gradeB = 70.0
	gradeC = 55.0
)

// Grade maps a score to its letter grade.
func Grade(score float64) model.Grade {
	switch {
	case score >= gradeA:
		return model.GradeA
	case score >= gradeB:
		return model.GradeB
	case score >= gradeC:
		return model.GradeC
	default:
		return model.GradeD
	}
}

// Score computes the weighted score for a match. Unknown detectors get a
// neutral 50 so a new detector is never silently ranked first or last.
func Score(m *model.Match) float64 {
	if m == nil {
		return 0
	}
	var s float64
	switch m.Detector {
	case "rally3m":
		s = scoreRally(m.Metrics)
	case "weeklyrsi":
		s = scoreWeeklyRSI(m.Metrics)
	case "vcp":
		s = scoreVCP(m.Metrics)
	case "bullflag":
		s = scoreBullFlag(m.Metrics)
	case "elliott":
		s = scoreElliott(m.Metrics)
	default:
		s = 50
	}
	return clamp(s, 0, 100)
}

// Rally weights: momentum 40, consolidation 30, volume 15, proximity 15.
const (
	rallyFullMomentum  = 1.0    // a clean double maxes the momentum leg
	rallyIdealPullback = -0.125 // center of the accepted pullback band
	rallyPullbackSpan  = 0.125
	rallyFullSurge     = 1.5
)

func scoreRally(metrics map[string]float64) float64 {
	momentum := 40 * clamp(metrics["three_month_return"]/rallyFullMomentum, 0, 1)

	// Consolidation quality peaks at the ideal pullback and decays linearly
	// toward both edges of the accepted band.
	dist := metrics["pullback"] - rallyIdealPullback
	if dist < 0 {
		dist = -dist
	}
	consolidation := 30 * clamp(1-dist/rallyPullbackSpan, 0, 1)

	volume := 15 * clamp(metrics["volume_surge"]/rallyFullSurge, 0, 1)
	proximity := 15 * clamp((metrics["breakout_proximity"]-0.5)/0.5, 0, 1)

	return momentum + consolidation + volume + proximity
}

// Weekly RSI weights: reversal depth 35, EMA spread 25, buying volume 20,
// daily confirmation 20.
func scoreWeeklyRSI(metrics map[string]float64) float64 {
	depth := 35 * clamp((50-metrics["weekly_rsi"])/20, 0, 1)
	spread := 25 * clamp((metrics["rsi_fast_ema"]-metrics["rsi_slow_ema"])/5, 0, 1)
	buying := 20 * clamp((metrics["buying_volume_trend"]-0.8)/0.7, 0, 1)
	confirm := 20 * metrics["daily_confirmed"]
	return depth + spread + buying + confirm
}

// VCP weights: pivot tightness 30, volume dry-up 25, contraction count 25,
// trend strength 20.
func scoreVCP(metrics map[string]float64) float64 {
	tightness := 30 * clamp((0.20-metrics["pivot_range"])/0.15, 0, 1)
	dryUp := 25 * clamp((1.10-metrics["volume_dry_ratio"])/0.60, 0, 1)
	contractions := 25 * clamp(metrics["contractions"]/3, 0, 1)
	trend := 20 * clamp(metrics["trend_strength"]/0.50, 0, 1)
	return tightness + dryUp + contractions + trend
}

// Bull flag weights: mast strength 40, flag slope 25, flag tightness 20,
// expected speed 15.
func scoreBullFlag(metrics map[string]float64) float64 {
	mast := 40 * clamp(metrics["mast_return"]/0.30, 0, 1)
	slope := 25 * clamp((0.0005-metrics["flag_slope"])/0.0025, 0, 1)
	tight := 20 * clamp((0.15-metrics["flag_range"])/0.10, 0, 1)
	speed := 15 * clamp((90-metrics["expected_days"])/80, 0, 1)
	return mast + slope + tight + speed
}

// Elliott weights: B-wave quality 40 (High) or 20 (Medium), retracement
// depth 30, pivot structure richness 30.
func scoreElliott(metrics map[string]float64) float64 {
	quality := 20.0
	if metrics["quality_high"] >= 1 {
		quality = 40
	}
	depth := 30 * clamp((0.90-metrics["retracement"])/0.60, 0, 1)
	structure := 30 * clamp((metrics["pivot_count"]-5)/10, 0, 1)
	return quality + depth + structure
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
