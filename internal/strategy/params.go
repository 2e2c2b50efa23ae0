package strategy

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MACrossParams configures the moving-average crossover strategy.
type MACrossParams struct {
	ShortWindow int `json:"short_window"`
	LongWindow  int `json:"long_window"`
}

// RSIParams configures the relative-strength strategy.
type RSIParams struct {
	Period     int     `json:"period"`
	Oversold   float64 `json:"oversold"`
	Overbought float64 `json:"overbought"`
}

// MACDParams configures the MACD crossover strategy. The window names
// match the crossover strategy so configs stay uniform.
type MACDParams struct {
	ShortWindow  int `json:"short_window"`
	LongWindow   int `json:"long_window"`
	SignalWindow int `json:"signal_window"`
}

func parseMACrossParams(raw string) (MACrossParams, error) {
	p := MACrossParams{ShortWindow: 20, LongWindow: 50}
	if err := unmarshalParams(raw, &p); err != nil {
		return p, fmt.Errorf("ma_cross params: %w", err)
	}
	if p.ShortWindow < 1 {
		return p, fmt.Errorf("ma_cross params: short_window must be positive, got %d", p.ShortWindow)
	}
	if p.ShortWindow >= p.LongWindow {
		return p, fmt.Errorf("ma_cross params: short_window %d must be below long_window %d", p.ShortWindow, p.LongWindow)
	}
	return p, nil
}

func parseRSIParams(raw string) (RSIParams, error) {
	p := RSIParams{Period: 14, Oversold: 30, Overbought: 70}
	if err := unmarshalParams(raw, &p); err != nil {
		return p, fmt.Errorf("rsi params: %w", err)
	}
	if p.Period < 1 {
		return p, fmt.Errorf("rsi params: period must be positive, got %d", p.Period)
	}
	if p.Oversold <= 0 || p.Overbought >= 100 || p.Oversold >= p.Overbought {
		return p, fmt.Errorf("rsi params: thresholds must satisfy 0 < oversold < overbought < 100, got %.1f/%.1f", p.Oversold, p.Overbought)
	}
	return p, nil
}

func parseMACDParams(raw string) (MACDParams, error) {
	p := MACDParams{ShortWindow: 12, LongWindow: 26, SignalWindow: 9}
	if err := unmarshalParams(raw, &p); err != nil {
		return p, fmt.Errorf("macd params: %w", err)
	}
	if p.ShortWindow < 1 || p.SignalWindow < 1 {
		return p, fmt.Errorf("macd params: windows must be positive, got %d/%d/%d", p.ShortWindow, p.LongWindow, p.SignalWindow)
	}
	if p.ShortWindow >= p.LongWindow {
		return p, fmt.Errorf("macd params: short_window %d must be below long_window %d", p.ShortWindow, p.LongWindow)
	}
	return p, nil
}

// ValidateParams checks a kind/params pair without building a generator.
// Used when strategies are created or updated through the API.
func ValidateParams(kind, raw string) error {
	var err error
	switch kind {
	case KindMACross:
		_, err = parseMACrossParams(raw)
	case KindRSI:
		_, err = parseRSIParams(raw)
	case KindMACD:
		_, err = parseMACDParams(raw)
	default:
		err = fmt.Errorf("unknown strategy kind %q", kind)
	}
	return err
}

// unmarshalParams overlays a JSON document onto defaults. An empty
// document keeps every default, matching how absent keys behave.
func unmarshalParams(raw string, dst any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}
