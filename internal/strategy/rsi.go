package strategy

import (
	"math"

	"algo-core/internal/indicators"
	"algo-core/internal/market"
)

// rsi trades relative-strength extremes.
// BUY when the oscillator drops below the oversold threshold.
// SELL when it rises above the overbought threshold.
// Values exactly at a threshold do not trigger.
type rsi struct {
	def    Definition
	params RSIParams
}

func (g *rsi) Kind() string { return KindRSI }

func (g *rsi) MinBars() int { return g.params.Period + 1 }

func (g *rsi) Evaluate(bars []market.Bar) *Signal {
	value := indicators.RSI(market.Closes(bars), g.params.Period)
	if math.IsNaN(value) {
		// Flat window or not enough data: no defined strength, no signal.
		return nil
	}

	if value < g.params.Oversold {
		return g.def.signal(SignalBuy, map[string]float64{
			"rsi":      value,
			"oversold": g.params.Oversold,
		})
	}
	if value > g.params.Overbought {
		return g.def.signal(SignalSell, map[string]float64{
			"rsi":        value,
			"overbought": g.params.Overbought,
		})
	}
	return nil
}
