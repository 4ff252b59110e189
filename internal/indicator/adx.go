package indicator

import (
	"math"

	"PatternScout/internal/model"
)

// Directional holds the current ADX/DI readings.
type Directional struct {
	ADX     float64
	PlusDI  float64
	MinusDI float64
}

// ADX computes Wilder's directional movement system over the given period.
// +DM/-DM come from high/low deltas, true range from high/low/prior close;
// all three are smoothed with the same Wilder recursion as RSI.
func ADX(candles []model.Candle, period int) (Directional, error) {
	if period <= 0 || len(candles) < period+1 {
		return Directional{}, ErrInsufficientData
	}

	n := len(candles) - 1
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	tr := make([]float64, n)

	for i := 1; i < len(candles); i++ {
		cur, prev := candles[i], candles[i-1]
		upMove := cur.High - prev.High
		downMove := prev.Low - cur.Low
		if upMove > downMove && upMove > 0 {
			plusDM[i-1] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i-1] = downMove
		}
		tr[i-1] = math.Max(cur.High-cur.Low,
			math.Max(math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close)))
	}

	smPlus := wilderSmooth(plusDM, period)
	smMinus := wilderSmooth(minusDM, period)
	smTR := wilderSmooth(tr, period)

	dx := make([]float64, n)
	var plusDI, minusDI float64
	for i := 0; i < n; i++ {
		if smTR[i] == 0 {
			continue
		}
		plusDI = 100 * smPlus[i] / smTR[i]
		minusDI = 100 * smMinus[i] / smTR[i]
		if sum := plusDI + minusDI; sum > 0 {
			dx[i] = 100 * math.Abs(plusDI-minusDI) / sum
		}
	}
	adx := wilderSmooth(dx, period)

	return Directional{
		ADX:     adx[n-1],
		PlusDI:  plusDI,
		MinusDI: minusDI,
	}, nil
}
