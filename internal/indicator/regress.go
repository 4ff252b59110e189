package indicator

// Regression holds a least-squares fit y = Intercept + Slope*x over
// x = 0..n-1.
type Regression struct {
	Slope     float64
	Intercept float64
}

// LinearRegression fits a straight line to the values.
func LinearRegression(values []float64) (Regression, error) {
	n := len(values)
	if n < 2 {
		return Regression{}, ErrInsufficientData
	}
	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}
	den := float64(n)*sumX2 - sumX*sumX
	if den == 0 {
		return Regression{}, ErrInsufficientData
	}
	slope := (float64(n)*sumXY - sumX*sumY) / den
	intercept := (sumY - slope*sumX) / float64(n)
	return Regression{Slope: slope, Intercept: intercept}, nil
}

// At evaluates the fitted line at index x.
func (r Regression) At(x int) float64 {
	return r.Intercept + r.Slope*float64(x)
}
