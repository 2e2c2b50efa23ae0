package strategy

import (
	"fmt"
	"time"

	"algo-core/internal/market"
)

// Strategy kinds available in the catalog.
const (
	KindMACross = "ma_cross"
	KindRSI     = "rsi"
	KindMACD    = "macd"
)

// Signal kinds. Hold is represented by the absence of a signal.
const (
	SignalBuy  = "BUY"
	SignalSell = "SELL"
)

// Definition describes one configured strategy instance. Params is a
// kind-specific JSON document; absent keys fall back to the defaults.
type Definition struct {
	ID        string
	Name      string
	Symbol    string
	Kind      string
	Params    string
	Timeframe string
	Lookback  int
}

// Signal is a directional decision produced by evaluating a strategy
// against a price series. Immutable once created.
type Signal struct {
	StrategyID string             `json:"strategy_id"`
	Symbol     string             `json:"symbol"`
	Kind       string             `json:"kind"`
	Confidence float64            `json:"confidence"`
	Evidence   map[string]float64 `json:"evidence"`
	At         time.Time          `json:"at"`
}

// Generator turns a bar series into a signal. Implementations are pure:
// no internal state survives between evaluations, so the same series
// always produces the same decision.
type Generator interface {
	// Kind returns the catalog kind this generator implements.
	Kind() string
	// MinBars returns how many bars Evaluate needs before it can
	// possibly report anything.
	MinBars() int
	// Evaluate returns a BUY or SELL signal, or nil for hold.
	Evaluate(bars []market.Bar) *Signal
}

// New builds the generator for a definition, validating its parameters.
func New(def Definition) (Generator, error) {
	switch def.Kind {
	case KindMACross:
		p, err := parseMACrossParams(def.Params)
		if err != nil {
			return nil, err
		}
		return &maCross{def: def, params: p}, nil
	case KindRSI:
		p, err := parseRSIParams(def.Params)
		if err != nil {
			return nil, err
		}
		return &rsi{def: def, params: p}, nil
	case KindMACD:
		p, err := parseMACDParams(def.Params)
		if err != nil {
			return nil, err
		}
		return &macd{def: def, params: p}, nil
	default:
		return nil, fmt.Errorf("unknown strategy kind %q", def.Kind)
	}
}

// Kinds lists the supported strategy kinds.
func Kinds() []string {
	return []string{KindMACross, KindRSI, KindMACD}
}

func (d Definition) signal(kind string, evidence map[string]float64) *Signal {
	return &Signal{
		StrategyID: d.ID,
		Symbol:     d.Symbol,
		Kind:       kind,
		Confidence: 1.0,
		Evidence:   evidence,
		At:         time.Now().UTC(),
	}
}
