package trading

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"algo-core/internal/market"
	"algo-core/internal/strategy"
)

// fakeBroker is an in-memory Broker. Every field guarded by mu so loop
// goroutines and test assertions can touch it concurrently.
type fakeBroker struct {
	mu sync.Mutex

	positions    []PositionSnapshot
	positionsErr error

	history    map[string][]market.Bar
	historyErr error

	prices   map[string]float64
	priceErr error

	buyingPower float64
	powerErr    error

	submitErr error
	closeErr  error

	submitted []OrderIntent
	closed    []string
	orderSeq  int
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		history:     make(map[string][]market.Bar),
		prices:      make(map[string]float64),
		buyingPower: 10000,
	}
}

func (f *fakeBroker) GetPositions(ctx context.Context) ([]PositionSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.positionsErr != nil {
		return nil, f.positionsErr
	}
	out := make([]PositionSnapshot, len(f.positions))
	copy(out, f.positions)
	return out, nil
}

func (f *fakeBroker) GetPriceHistory(ctx context.Context, symbol, timeframe string, lookback int) ([]market.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	bars, ok := f.history[symbol]
	if !ok {
		return nil, fmt.Errorf("no history for %s", symbol)
	}
	out := make([]market.Bar, len(bars))
	copy(out, bars)
	return out, nil
}

func (f *fakeBroker) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.priceErr != nil {
		return 0, f.priceErr
	}
	return f.prices[symbol], nil
}

func (f *fakeBroker) GetBuyingPower(ctx context.Context) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.powerErr != nil {
		return 0, f.powerErr
	}
	return f.buyingPower, nil
}

func (f *fakeBroker) SubmitOrder(ctx context.Context, intent OrderIntent) (TradeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return TradeRecord{}, f.submitErr
	}
	f.orderSeq++
	f.submitted = append(f.submitted, intent)
	return TradeRecord{
		OrderID:   fmt.Sprintf("order-%d", f.orderSeq),
		Symbol:    intent.Symbol,
		Side:      intent.Side,
		Qty:       intent.Qty,
		Status:    StatusFilled,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (f *fakeBroker) ClosePosition(ctx context.Context, symbol string) (TradeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closeErr != nil {
		return TradeRecord{}, f.closeErr
	}
	qty := 0.0
	for _, p := range f.positions {
		if p.Symbol == symbol {
			qty = p.Qty
		}
	}
	f.orderSeq++
	f.closed = append(f.closed, symbol)
	return TradeRecord{
		OrderID:   fmt.Sprintf("order-%d", f.orderSeq),
		Symbol:    symbol,
		Side:      SideSell,
		Qty:       qty,
		Status:    StatusFilled,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (f *fakeBroker) submittedOrders() []OrderIntent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]OrderIntent, len(f.submitted))
	copy(out, f.submitted)
	return out
}

func (f *fakeBroker) closedSymbols() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.closed))
	copy(out, f.closed)
	return out
}

func (f *fakeBroker) setHistory(symbol string, closes []float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history[symbol] = barsFromCloses(closes)
}

func (f *fakeBroker) setPositions(positions ...PositionSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions = positions
}

// fakeLedger is an in-memory Ledger.
type fakeLedger struct {
	mu sync.Mutex

	defs    []strategy.Definition
	listErr error

	signals       []strategy.Signal
	saveSignalErr error

	trades       []TradeRecord
	saveTradeErr error

	panicOnList bool
}

func (f *fakeLedger) ListActiveStrategies(ctx context.Context) ([]strategy.Definition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnList {
		panic("ledger exploded")
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]strategy.Definition, len(f.defs))
	copy(out, f.defs)
	return out, nil
}

func (f *fakeLedger) SaveSignal(ctx context.Context, sig strategy.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveSignalErr != nil {
		return f.saveSignalErr
	}
	f.signals = append(f.signals, sig)
	return nil
}

func (f *fakeLedger) SaveTrade(ctx context.Context, rec TradeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveTradeErr != nil {
		return f.saveTradeErr
	}
	f.trades = append(f.trades, rec)
	return nil
}

func (f *fakeLedger) savedSignals() []strategy.Signal {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]strategy.Signal, len(f.signals))
	copy(out, f.signals)
	return out
}

func (f *fakeLedger) savedTrades() []TradeRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]TradeRecord, len(f.trades))
	copy(out, f.trades)
	return out
}

func barsFromCloses(closes []float64) []market.Bar {
	bars := make([]market.Bar, len(closes))
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = market.Bar{
			Timestamp: base.Add(time.Duration(i) * 24 * time.Hour),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

// crossoverDef is a small ma_cross definition whose signal flips with
// the tail of the series fed to the fake broker.
func crossoverDef(id, symbol string) strategy.Definition {
	return strategy.Definition{
		ID:     id,
		Name:   "cross-" + symbol,
		Symbol: symbol,
		Kind:   strategy.KindMACross,
		Params: `{"short_window": 2, "long_window": 3}`,
	}
}

// buyCloses ends in a fresh golden cross; sellCloses in a death cross.
var (
	buyCloses  = []float64{10, 10, 10, 10, 14}
	sellCloses = []float64{10, 10, 10, 10, 6}
	flatCloses = []float64{10, 10, 10, 10, 10}
)

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
