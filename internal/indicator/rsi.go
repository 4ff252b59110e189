package indicator

// wilderSmooth applies Wilder's recursive smoothing (alpha = 1/period),
// seeded with the first value. Not a rolling average: every sample feeds
// the recursion from the start of the series.
func wilderSmooth(values []float64, period int) []float64 {
	if len(values) == 0 || period <= 0 {
		return nil
	}
	out := make([]float64, len(values))
	out[0] = values[0]
	p := float64(period)
	for i := 1; i < len(values); i++ {
		out[i] = (out[i-1]*(p-1) + values[i]) / p
	}
	return out
}

// RSISeries computes the Wilder-smoothed RSI for each bar after the first.
// Element i of the result corresponds to closes[i+1]. By convention an
// all-gain stretch (avgLoss == 0) yields RSI 100.
func RSISeries(closes []float64, period int) ([]float64, error) {
	if period <= 0 || len(closes) < period+1 {
		return nil, ErrInsufficientData
	}
	gains := make([]float64, len(closes)-1)
	losses := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i-1] = change
		} else {
			losses[i-1] = -change
		}
	}
	avgGain := wilderSmooth(gains, period)
	avgLoss := wilderSmooth(losses, period)

	out := make([]float64, len(gains))
	for i := range out {
		if avgLoss[i] == 0 {
			out[i] = 100.0
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100.0 - 100.0/(1.0+rs)
	}
	return out, nil
}

// RSI returns the current Wilder-smoothed RSI over the given period.
func RSI(closes []float64, period int) (float64, error) {
	series, err := RSISeries(closes, period)
	if err != nil {
		return 0, err
	}
	return series[len(series)-1], nil
}
