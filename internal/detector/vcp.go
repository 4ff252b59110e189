package detector

import (
	"fmt"

	"PatternScout/internal/indicator"
	"PatternScout/internal/model"
)

// VCP thresholds, after Minervini's volatility contraction pattern: a
// stage-2 uptrend whose base tightens segment over segment while volume
// dries up into the pivot.
const (
	vcpSMAFast = 50
	vcpSMASlow = 200

	vcpBaseBars     = 60
	vcpSegments     = 4
	vcpMinContracts = 2
	vcpTolerance    = 1.10 // a segment still "contracts" within 10% of the prior range

	vcpPivotBars     = 10
	vcpMaxPivotRange = 0.20

	vcpVolShortBars = 10
	vcpVolLongBars  = 50
	vcpMaxVolRatio  = 1.10

	vcpDepthBars = 90
	vcpMinDepth  = 0.03
	vcpMaxDepth  = 0.50

	vcpEntryBuffer = 1.005
	vcpStopBuffer  = 0.99
)

// VCP detects a volatility contraction pattern inside a stage-2 uptrend.
type VCP struct{}

func (*VCP) Name() string             { return "vcp" }
func (*VCP) Category() model.Category { return model.CategoryBalanced }

func (d *VCP) Detect(daily model.Series) *model.Match {
	if daily.Len() < vcpSMASlow {
		return nil
	}
	closes := daily.Closes()
	last := closes[len(closes)-1]

	sma50, err := indicator.SMA(closes, vcpSMAFast)
	if err != nil {
		return nil
	}
	sma200, err := indicator.SMA(closes, vcpSMASlow)
	if err != nil {
		return nil
	}
	if last <= sma200 || sma50 <= sma200 {
		return nil
	}

	base := daily.LastN(vcpBaseBars)
	if base.Len() < vcpBaseBars {
		return nil
	}
	ranges := segmentRanges(base, vcpSegments)
	contractions := 0
	for i := 1; i < len(ranges); i++ {
		if ranges[i] < ranges[i-1]*vcpTolerance {
			contractions++
		}
	}
	if contractions < vcpMinContracts {
		return nil
	}

	pivot := daily.LastN(vcpPivotBars)
	pivotHigh := maxOf(pivot.Highs())
	pivotLow := minOf(pivot.Lows())
	if pivotLow <= 0 {
		return nil
	}
	pivotRange := (pivotHigh - pivotLow) / pivotLow
	if pivotRange > vcpMaxPivotRange {
		return nil
	}

	volumes := daily.Volumes()
	volShort := meanTail(volumes, vcpVolShortBars)
	volLong := meanTail(volumes, vcpVolLongBars)
	if volLong <= 0 {
		return nil
	}
	volRatio := volShort / volLong
	if volRatio > vcpMaxVolRatio {
		return nil
	}

	depthWindow := daily.LastN(vcpDepthBars)
	baseHigh := maxOf(depthWindow.Highs())
	baseLow := minOf(depthWindow.Lows())
	if baseHigh <= 0 {
		return nil
	}
	depth := (baseHigh - baseLow) / baseHigh
	if depth < vcpMinDepth || depth > vcpMaxDepth {
		return nil
	}

	entry := pivotHigh * vcpEntryBuffer
	stop := pivotLow * vcpStopBuffer
	risk := entry - stop

	return &model.Match{
		Ticker:    daily.Ticker,
		Detector:  d.Name(),
		MatchedAt: dateOf(daily.Last().Time),
		Metrics: map[string]float64{
			"contractions":     float64(contractions),
			"pivot_range":      pivotRange,
			"volume_dry_ratio": volRatio,
			"base_depth":       depth,
			"sma50":            sma50,
			"sma200":           sma200,
			"trend_strength":   last/sma200 - 1,
		},
		Levels: model.Levels{
			Entry:   entry,
			Stop:    stop,
			Target:  entry + risk,
			Target2: entry + 2*risk,
			Target3: entry + 3*risk,
		},
		Rationale: []string{
			"stage 2: price above SMA200, SMA50 above SMA200",
			fmt.Sprintf("%d of %d base segments contracting", contractions, vcpSegments-1),
			fmt.Sprintf("%d-bar pivot range %.1f%%", vcpPivotBars, pivotRange*100),
			fmt.Sprintf("volume dry-up ratio %.2f", volRatio),
			fmt.Sprintf("base depth %.1f%% over %d bars", depth*100, vcpDepthBars),
		},
	}
}

// segmentRanges splits the base into equal segments, oldest first, and
// returns each segment's high-low range.
func segmentRanges(base model.Series, segments int) []float64 {
	size := base.Len() / segments
	ranges := make([]float64, 0, segments)
	for s := 0; s < segments; s++ {
		seg := base.Candles[s*size : (s+1)*size]
		hi, lo := seg[0].High, seg[0].Low
		for _, c := range seg[1:] {
			if c.High > hi {
				hi = c.High
			}
			if c.Low < lo {
				lo = c.Low
			}
		}
		ranges = append(ranges, hi-lo)
	}
	return ranges
}
