package strategy

import (
	"math"

	"algo-core/internal/indicators"
	"algo-core/internal/market"
)

// macd trades crossings of the MACD line and its signal line.
// BUY when the line crosses above the signal line, SELL when it crosses
// below. Crossings must be strict at the latest bar.
type macd struct {
	def    Definition
	params MACDParams
}

func (g *macd) Kind() string { return KindMACD }

// MinBars gives the slow EMA plus the signal EMA room to settle before
// the tail of the series is trusted.
func (g *macd) MinBars() int { return g.params.LongWindow + g.params.SignalWindow }

func (g *macd) Evaluate(bars []market.Bar) *Signal {
	closes := market.Closes(bars)
	line, signal := indicators.MACD(closes, g.params.ShortWindow, g.params.LongWindow, g.params.SignalWindow)
	if len(line) < 2 {
		return nil
	}

	n := len(line)
	cur, prev := line[n-1], line[n-2]
	curSig, prevSig := signal[n-1], signal[n-2]
	if math.IsNaN(cur) || math.IsNaN(curSig) || math.IsNaN(prev) || math.IsNaN(prevSig) {
		return nil
	}

	evidence := func() map[string]float64 {
		return map[string]float64{
			"macd":      cur,
			"signal":    curSig,
			"histogram": cur - curSig,
		}
	}

	if cur > curSig && prev <= prevSig {
		return g.def.signal(SignalBuy, evidence())
	}
	if cur < curSig && prev >= prevSig {
		return g.def.signal(SignalSell, evidence())
	}
	return nil
}
