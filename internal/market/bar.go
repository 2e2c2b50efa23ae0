// Package market holds the bar data shape shared by the broker adapter and
// the strategy generators.
package market

import "time"

// Bar is one aggregated price bar, ascending by timestamp, no duplicates.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Closes extracts the closing-price series from bars.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Timeframes accepted for historical bar requests.
const (
	Timeframe1Min  = "1Min"
	Timeframe5Min  = "5Min"
	Timeframe15Min = "15Min"
	Timeframe1Hour = "1Hour"
	Timeframe1Day  = "1Day"
)

// ValidTimeframe reports whether tf is one of the supported bar sizes.
func ValidTimeframe(tf string) bool {
	switch tf {
	case Timeframe1Min, Timeframe5Min, Timeframe15Min, Timeframe1Hour, Timeframe1Day:
		return true
	}
	return false
}
