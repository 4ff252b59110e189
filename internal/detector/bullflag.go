package detector

import (
	"fmt"
	"math"

	"PatternScout/internal/indicator"
	"PatternScout/internal/model"
)

// BullFlag thresholds: a sharp advance (the mast) followed by a short
// flat-to-down consolidation (the flag) near the mast high.
const (
	flagLookbackBars = 63
	mastMinBars      = 3
	mastMaxBars      = 35
	mastMinReturn    = 0.07

	flagBars        = 21
	flagMaxRelSlope = 0.0005 // per-bar slope relative to mean high
	flagMaxOvershot = 1.02   // flag high may not exceed mast high by more

	flagEntryBuffer = 1.002
	flagStopPad     = 0.95
	flagMaxDays     = 90
)

// BullFlag detects a flag consolidation hanging off a steep mast.
type BullFlag struct{}

func (*BullFlag) Name() string             { return "bullflag" }
func (*BullFlag) Category() model.Category { return model.CategoryAggressive }

func (d *BullFlag) Detect(daily model.Series) *model.Match {
	if daily.Len() < flagLookbackBars {
		return nil
	}
	window := daily.LastN(flagLookbackBars)
	closes := window.Closes()

	mast, ok := findMast(closes)
	if !ok || mast.gain < mastMinReturn {
		return nil
	}

	flag := window.LastN(flagBars)
	highs := flag.Highs()
	lows := flag.Lows()

	reg, err := indicator.LinearRegression(highs)
	if err != nil {
		return nil
	}
	meanHigh := meanTail(highs, len(highs))
	if meanHigh <= 0 {
		return nil
	}
	relSlope := reg.Slope / meanHigh
	if relSlope > flagMaxRelSlope {
		return nil
	}

	mastHigh := closes[mast.end]
	if maxOf(highs) > mastHigh*flagMaxOvershot {
		return nil
	}

	entry := reg.At(len(highs)-1) * flagEntryBuffer
	stop := minOf(lows) * flagStopPad
	if stop >= entry {
		return nil
	}
	mastHeight := closes[mast.end] - closes[mast.start]
	target := entry + mastHeight

	// Expected time-to-target from the mast's own velocity, capped so a
	// vertical mast does not promise an overnight move.
	velocity := mastHeight / float64(mast.end-mast.start)
	days := flagMaxDays
	if velocity > 0 {
		if est := int(math.Ceil((target - entry) / velocity)); est < days {
			days = est
		}
	}

	return &model.Match{
		Ticker:    daily.Ticker,
		Detector:  d.Name(),
		MatchedAt: dateOf(daily.Last().Time),
		Metrics: map[string]float64{
			"mast_return":   mast.gain,
			"mast_bars":     float64(mast.end - mast.start),
			"flag_slope":    relSlope,
			"flag_range":    (maxOf(highs) - minOf(lows)) / minOf(lows),
			"expected_days": float64(days),
		},
		Levels: model.Levels{
			Entry:  entry,
			Stop:   stop,
			Target: target,
		},
		Rationale: []string{
			fmt.Sprintf("mast up %.1f%% in %d bars", mast.gain*100, mast.end-mast.start),
			fmt.Sprintf("flag slope %.4f%%/bar over %d bars", relSlope*100, flagBars),
			fmt.Sprintf("measured-move target %.2f, ~%d days", target, days),
		},
	}
}

type mastRun struct {
	start, end int
	gain       float64
}

// findMast scans the lookback window for the steepest advance: the pair of
// bars between mastMinBars and mastMaxBars apart with the highest per-bar
// percentage gain.
func findMast(closes []float64) (mastRun, bool) {
	best := mastRun{gain: -1}
	bestVelocity := 0.0
	for i := 0; i < len(closes); i++ {
		if closes[i] <= 0 {
			continue
		}
		for span := mastMinBars; span <= mastMaxBars; span++ {
			j := i + span
			if j >= len(closes) {
				break
			}
			gain := closes[j]/closes[i] - 1
			velocity := gain / float64(span)
			if velocity > bestVelocity {
				bestVelocity = velocity
				best = mastRun{start: i, end: j, gain: gain}
			}
		}
	}
	return best, best.gain >= 0
}
