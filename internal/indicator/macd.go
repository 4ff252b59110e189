package indicator

// MACDResult holds the current MACD(12,26,9) readings.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD computes the 12/26 EMA difference with a 9-period signal line.
func MACD(closes []float64) (MACDResult, error) {
	if len(closes) < 26 {
		return MACDResult{}, ErrInsufficientData
	}
	fast := EMA(closes, 12)
	slow := EMA(closes, 26)
	diff := make([]float64, len(closes))
	for i := range closes {
		diff[i] = fast[i] - slow[i]
	}
	signal := EMA(diff, 9)

	last := len(closes) - 1
	return MACDResult{
		MACD:      diff[last],
		Signal:    signal[last],
		Histogram: diff[last] - signal[last],
	}, nil
}
