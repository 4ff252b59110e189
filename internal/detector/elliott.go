package detector

import (
	"fmt"

	"PatternScout/internal/model"
)

// ElliottABC thresholds. Pivots come from a symmetric dominance window;
// the pattern is an impulse low -> wave-A high -> wave-B low holding above
// the origin, with C-wave projections at Fibonacci extensions of A.
const (
	pivotWindow    = 3
	minPivots      = 5
	maxBRetrace    = 0.70 // shallower B retracement earns the High quality tag
	elliottStopPad = 0.98
)

var cProjections = []float64{0.618, 1.0, 1.618, 2.0, 2.618}

// ElliottABC detects an A-B corrective structure and projects wave C.
type ElliottABC struct{}

func (*ElliottABC) Name() string             { return "elliott" }
func (*ElliottABC) Category() model.Category { return model.CategorySpeculative }

type pivot struct {
	index int
	price float64
	high  bool
}

func (d *ElliottABC) Detect(daily model.Series) *model.Match {
	pivots := findPivots(daily, pivotWindow)
	if len(pivots) < minPivots {
		return nil
	}

	low, a, b, ok := lastABC(pivots)
	if !ok {
		return nil
	}

	waveA := a.price - low.price
	if waveA <= 0 {
		return nil
	}
	retrace := (a.price - b.price) / waveA

	quality := "Medium"
	qualityMetric := 0.0
	if retrace < maxBRetrace {
		quality = "High"
		qualityMetric = 1
	}

	targets := make([]float64, len(cProjections))
	for i, fib := range cProjections {
		targets[i] = b.price + fib*waveA
	}

	return &model.Match{
		Ticker:    daily.Ticker,
		Detector:  d.Name(),
		MatchedAt: dateOf(daily.Last().Time),
		Metrics: map[string]float64{
			"wave_low":      low.price,
			"wave_a":        a.price,
			"wave_b":        b.price,
			"retracement":   retrace,
			"quality_high":  qualityMetric,
			"pivot_count":   float64(len(pivots)),
			"c_target_1618": targets[2],
		},
		Levels: model.Levels{
			Entry:   daily.Last().Close,
			Stop:    b.price * elliottStopPad,
			Target:  targets[0],
			Target2: targets[1],
			Target3: targets[2],
		},
		Rationale: []string{
			fmt.Sprintf("A-B structure off low %.2f: A %.2f, B %.2f", low.price, a.price, b.price),
			fmt.Sprintf("B retraced %.0f%% of wave A (%s quality)", retrace*100, quality),
			fmt.Sprintf("C projections %.2f / %.2f / %.2f", targets[0], targets[1], targets[2]),
		},
	}
}

// findPivots marks bars whose high (low) dominates the w bars on each side.
// Endpoints inside the window are never pivots.
func findPivots(daily model.Series, w int) []pivot {
	var pivots []pivot
	candles := daily.Candles
	for i := w; i < len(candles)-w; i++ {
		isHigh, isLow := true, true
		for j := i - w; j <= i+w; j++ {
			if j == i {
				continue
			}
			if candles[j].High >= candles[i].High {
				isHigh = false
			}
			if candles[j].Low <= candles[i].Low {
				isLow = false
			}
			if !isHigh && !isLow {
				break
			}
		}
		if isHigh {
			pivots = append(pivots, pivot{index: i, price: candles[i].High, high: true})
		}
		if isLow {
			pivots = append(pivots, pivot{index: i, price: candles[i].Low, high: false})
		}
	}
	return pivots
}

// lastABC walks the pivot list from the end looking for the most recent
// low -> high -> low triple where the B low holds above the origin low.
func lastABC(pivots []pivot) (low, a, b pivot, ok bool) {
	for bi := len(pivots) - 1; bi >= 2; bi-- {
		if pivots[bi].high {
			continue
		}
		for ai := bi - 1; ai >= 1; ai-- {
			if !pivots[ai].high {
				continue
			}
			for li := ai - 1; li >= 0; li-- {
				if pivots[li].high {
					continue
				}
				if pivots[bi].price > pivots[li].price && pivots[ai].price > pivots[bi].price {
					return pivots[li], pivots[ai], pivots[bi], true
				}
			}
		}
		// Only the most recent candidate B is considered.
		break
	}
	return pivot{}, pivot{}, pivot{}, false
}
