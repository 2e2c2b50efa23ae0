package trading

import (
	"context"
	"fmt"
	"log"
	"time"

	"algo-core/internal/events"
	"algo-core/internal/strategy"
)

// minBuyingPower is the floor below which a buy is silently skipped
// rather than submitting a dust order.
const minBuyingPower = 0.01

// OrderExecutor sizes and submits orders, then hands the result to the
// ledger. Submission failures leave no trace in the ledger; ledger
// failures after a successful submission are surfaced as reconciliation
// gaps instead of being retried.
type OrderExecutor struct {
	broker   Broker
	ledger   Ledger
	tracker  *PositionTracker
	bus      *events.Bus
	fraction float64
}

// NewOrderExecutor builds an executor. fraction is the share of buying
// power committed per buy.
func NewOrderExecutor(broker Broker, ledger Ledger, tracker *PositionTracker, bus *events.Bus, fraction float64) *OrderExecutor {
	return &OrderExecutor{
		broker:   broker,
		ledger:   ledger,
		tracker:  tracker,
		bus:      bus,
		fraction: fraction,
	}
}

// ExecuteBuy submits a market buy sized from current buying power.
// Returns (nil, nil) when the buy is skipped as a no-op.
func (e *OrderExecutor) ExecuteBuy(ctx context.Context, def strategy.Definition) (*TradeRecord, error) {
	power, err := e.broker.GetBuyingPower(ctx)
	if err != nil {
		return nil, fmt.Errorf("buying power: %w", err)
	}
	if power <= minBuyingPower {
		log.Printf("Buy skipped [%s]: buying power %.2f too low", def.Name, power)
		return nil, nil
	}

	price, err := e.broker.GetLatestPrice(ctx, def.Symbol)
	if err != nil {
		return nil, fmt.Errorf("latest price for %s: %w", def.Symbol, err)
	}
	if price <= 0 {
		log.Printf("Buy skipped [%s]: no usable price for %s (%.4f)", def.Name, def.Symbol, price)
		return nil, nil
	}

	qty := power * e.fraction / price
	if qty <= 0 {
		log.Printf("Buy skipped [%s]: computed qty %.6f for %s", def.Name, qty, def.Symbol)
		return nil, nil
	}

	start := time.Now()
	rec, err := e.broker.SubmitOrder(ctx, OrderIntent{Symbol: def.Symbol, Side: SideBuy, Qty: qty})
	if err != nil {
		return nil, fmt.Errorf("submit buy %s x%.4f: %w", def.Symbol, qty, err)
	}
	rec.StrategyID = def.ID
	log.Printf("✅ Buy submitted [%s]: %s x%.4f @ ~%.2f (%s)", def.Name, rec.Symbol, rec.Qty, price, rec.Status)

	e.record(ctx, rec, time.Since(start))
	return &rec, nil
}

// ExecuteSell closes the full tracked position for the strategy's
// symbol. Returns (nil, nil) when there is nothing to close.
func (e *OrderExecutor) ExecuteSell(ctx context.Context, def strategy.Definition) (*TradeRecord, error) {
	qty := e.tracker.Qty(def.Symbol)
	if qty <= 0 {
		log.Printf("Sell skipped [%s]: nothing to close for %s", def.Name, def.Symbol)
		return nil, nil
	}

	start := time.Now()
	rec, err := e.broker.ClosePosition(ctx, def.Symbol)
	if err != nil {
		return nil, fmt.Errorf("close position %s: %w", def.Symbol, err)
	}
	rec.StrategyID = def.ID
	log.Printf("✅ Position close submitted [%s]: %s x%.4f (%s)", def.Name, rec.Symbol, rec.Qty, rec.Status)

	e.record(ctx, rec, time.Since(start))
	return &rec, nil
}

// record persists the trade. The order already executed at the broker,
// so a ledger failure is logged as a reconciliation gap and the record
// is still returned to the caller.
func (e *OrderExecutor) record(ctx context.Context, rec TradeRecord, elapsed time.Duration) {
	if err := e.ledger.SaveTrade(ctx, rec); err != nil {
		log.Printf("⚠️ Reconciliation gap: order %s (%s %s x%.4f) executed but not recorded: %v",
			rec.OrderID, rec.Side, rec.Symbol, rec.Qty, err)
		e.bus.Publish(events.EventReconciliationGap, events.GapEvent{
			OrderID: rec.OrderID,
			Symbol:  rec.Symbol,
			Reason:  err.Error(),
			At:      time.Now().UTC(),
		})
		return
	}

	e.bus.Publish(events.EventTradeRecorded, events.TradeEvent{
		OrderID:    rec.OrderID,
		StrategyID: rec.StrategyID,
		Symbol:     rec.Symbol,
		Side:       rec.Side,
		Qty:        rec.Qty,
		Price:      rec.Price,
		Status:     rec.Status,
		Elapsed:    elapsed,
		At:         time.Now().UTC(),
	})
}
