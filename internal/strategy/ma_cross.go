package strategy

import (
	"algo-core/internal/indicators"
	"algo-core/internal/market"
)

// maCross detects simple moving average crossovers.
// BUY when the short average crosses above the long average (golden cross).
// SELL when the short average crosses below the long average (death cross).
// Equality at the latest bar never triggers; the crossing must be strict.
type maCross struct {
	def    Definition
	params MACrossParams
}

func (g *maCross) Kind() string { return KindMACross }

// MinBars is the long window. One extra bar is still needed before a
// crossing can be observed, but series of exactly the long window are
// evaluated and simply report nothing.
func (g *maCross) MinBars() int { return g.params.LongWindow }

func (g *maCross) Evaluate(bars []market.Bar) *Signal {
	closes := market.Closes(bars)
	if len(closes) < g.params.LongWindow {
		return nil
	}

	short := indicators.SMA(closes, g.params.ShortWindow)
	long := indicators.SMA(closes, g.params.LongWindow)
	prev := closes[:len(closes)-1]
	prevShort := indicators.SMA(prev, g.params.ShortWindow)
	prevLong := indicators.SMA(prev, g.params.LongWindow)

	// NaN averages (not enough history for the previous point) fail both
	// comparisons below, so the degenerate case falls through to hold.
	evidence := func() map[string]float64 {
		return map[string]float64{
			"short_ma":      short,
			"long_ma":       long,
			"prev_short_ma": prevShort,
			"prev_long_ma":  prevLong,
		}
	}

	if short > long && prevShort <= prevLong {
		return g.def.signal(SignalBuy, evidence())
	}
	if short < long && prevShort >= prevLong {
		return g.def.signal(SignalSell, evidence())
	}
	return nil
}
