package trading

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"algo-core/internal/strategy"
	"algo-core/pkg/db"
)

// StoreLedger adapts the SQLite store to the Ledger interface the loop
// consumes.
type StoreLedger struct {
	store *db.Database
}

// NewStoreLedger wraps a database as a Ledger.
func NewStoreLedger(store *db.Database) *StoreLedger {
	return &StoreLedger{store: store}
}

func (l *StoreLedger) ListActiveStrategies(ctx context.Context) ([]strategy.Definition, error) {
	rows, err := l.store.ListActiveStrategies(ctx)
	if err != nil {
		return nil, err
	}

	defs := make([]strategy.Definition, len(rows))
	for i, r := range rows {
		defs[i] = strategy.Definition{
			ID:        r.ID,
			Name:      r.Name,
			Symbol:    r.Symbol,
			Kind:      r.Kind,
			Params:    r.Params,
			Timeframe: r.Timeframe,
			Lookback:  r.Lookback,
		}
	}
	return defs, nil
}

func (l *StoreLedger) SaveSignal(ctx context.Context, sig strategy.Signal) error {
	evidence := ""
	if len(sig.Evidence) > 0 {
		raw, err := json.Marshal(sig.Evidence)
		if err != nil {
			return fmt.Errorf("encode evidence: %w", err)
		}
		evidence = string(raw)
	}

	return l.store.CreateSignal(ctx, db.Signal{
		ID:         uuid.NewString(),
		StrategyID: sig.StrategyID,
		Symbol:     sig.Symbol,
		Kind:       sig.Kind,
		Confidence: sig.Confidence,
		Evidence:   evidence,
		CreatedAt:  sig.At,
	})
}

func (l *StoreLedger) SaveTrade(ctx context.Context, rec TradeRecord) error {
	return l.store.CreateTrade(ctx, db.Trade{
		ID:         uuid.NewString(),
		OrderID:    rec.OrderID,
		StrategyID: rec.StrategyID,
		Symbol:     rec.Symbol,
		Side:       rec.Side,
		Qty:        rec.Qty,
		Price:      rec.Price,
		Status:     rec.Status,
		CreatedAt:  rec.CreatedAt,
		FilledAt:   rec.FilledAt,
	})
}
