package trading

import (
	"context"
	"time"

	"algo-core/internal/market"
	"algo-core/internal/strategy"
)

// Order sides.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Trade statuses mirror the broker's immediate fill state.
const (
	StatusFilled  = "FILLED"
	StatusPending = "PENDING"
)

// PositionSnapshot is a point-in-time view of one open position.
type PositionSnapshot struct {
	Symbol        string  `json:"symbol"`
	Qty           float64 `json:"qty"`
	AvgEntryPrice float64 `json:"avg_entry_price"`
	CurrentPrice  float64 `json:"current_price"`
}

// OrderIntent is a transient order request. It is never persisted; only
// the TradeRecord produced by a successful submission is.
type OrderIntent struct {
	Symbol string
	Side   string
	Qty    float64
}

// TradeRecord describes a submitted broker order. Price and FilledAt
// stay nil until the broker reports a fill.
type TradeRecord struct {
	OrderID    string     `json:"order_id"`
	StrategyID string     `json:"strategy_id"`
	Symbol     string     `json:"symbol"`
	Side       string     `json:"side"`
	Qty        float64    `json:"qty"`
	Price      *float64   `json:"price"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	FilledAt   *time.Time `json:"filled_at"`
}

// Ledger is the durable storage collaborator for strategies, signals
// and trades.
type Ledger interface {
	ListActiveStrategies(ctx context.Context) ([]strategy.Definition, error)
	SaveSignal(ctx context.Context, sig strategy.Signal) error
	SaveTrade(ctx context.Context, rec TradeRecord) error
}

// Broker provides market data and order execution.
type Broker interface {
	GetPositions(ctx context.Context) ([]PositionSnapshot, error)
	GetPriceHistory(ctx context.Context, symbol, timeframe string, lookback int) ([]market.Bar, error)
	GetLatestPrice(ctx context.Context, symbol string) (float64, error)
	GetBuyingPower(ctx context.Context) (float64, error)
	SubmitOrder(ctx context.Context, intent OrderIntent) (TradeRecord, error)
	ClosePosition(ctx context.Context, symbol string) (TradeRecord, error)
}

// sleepCtx pauses for d unless the context ends first. Reports whether
// the full pause elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
