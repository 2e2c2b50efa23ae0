package indicators

// MACD returns the MACD line (EMA(fast) - EMA(slow)) and its signal line
// (EMA of the MACD line over signalSpan). Both series cover every input
// index; callers decide how much history makes the tail trustworthy.
func MACD(values []float64, fastSpan, slowSpan, signalSpan int) (line, signal []float64) {
	if len(values) == 0 || fastSpan <= 0 || slowSpan <= 0 || signalSpan <= 0 {
		return nil, nil
	}

	fast := EMASeries(values, fastSpan)
	slow := EMASeries(values, slowSpan)
	line = make([]float64, len(values))
	for i := range values {
		line[i] = fast[i] - slow[i]
	}
	return line, EMASeries(line, signalSpan)
}
