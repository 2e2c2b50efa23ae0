package indicators

import "math"

// RSI computes the Relative Strength Index over the trailing period using
// arithmetic means of gains and losses. Requires period+1 values so every
// difference in the window exists. A flat window (no gains, no losses) has
// no defined strength ratio and yields NaN, which callers treat as
// "no signal" rather than an error.
func RSI(values []float64, period int) float64 {
	if period <= 0 || len(values) < period+1 {
		return math.NaN()
	}

	gain := 0.0
	loss := 0.0
	for i := len(values) - period; i < len(values); i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			gain += change
		} else {
			loss -= change
		}
	}

	if gain == 0 && loss == 0 {
		return math.NaN()
	}
	if loss == 0 {
		return 100
	}
	rs := gain / loss
	return 100 - (100 / (1 + rs))
}
