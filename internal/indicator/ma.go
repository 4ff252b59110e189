package indicator

import "errors"

// ErrInsufficientData is returned when a series is too short for an
// indicator. Callers treat it as "no signal", never as a failure.
var ErrInsufficientData = errors.New("insufficient data")

// SMA computes the simple moving average of the trailing period values.
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, ErrInsufficientData
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// EMA computes the exponential moving average series with the standard
// smoothing factor 2/(span+1), seeded with the first value. Output length
// equals input length; the input is never mutated.
func EMA(values []float64, span int) []float64 {
	if len(values) == 0 || span <= 0 {
		return nil
	}
	alpha := 2.0 / float64(span+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// EMALast returns the final value of the EMA series.
func EMALast(values []float64, span int) (float64, error) {
	ema := EMA(values, span)
	if len(ema) == 0 {
		return 0, ErrInsufficientData
	}
	return ema[len(ema)-1], nil
}
