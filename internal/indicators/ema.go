package indicators

// EMASeries computes the full exponential moving average series with
// alpha = 2/(span+1), seeded from the first value. Every output index is
// defined, so callers can compare adjacent points without a warm-up gap.
func EMASeries(values []float64, span int) []float64 {
	if span <= 0 || len(values) == 0 {
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
