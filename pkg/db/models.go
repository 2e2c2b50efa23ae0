package db

import (
	"context"
	"strings"
	"time"
)

// User represents an application user.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Strategy represents a configured strategy row.
type Strategy struct {
	ID        string
	Name      string
	Symbol    string
	Kind      string
	Params    string // JSON, kind-specific
	Timeframe string
	Lookback  int
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Signal represents an emitted strategy signal stored for the audit trail.
type Signal struct {
	ID         string
	StrategyID string
	Symbol     string
	Kind       string
	Confidence float64
	Evidence   string // JSON, kind-specific numeric snapshot
	CreatedAt  time.Time
}

// Trade represents a submitted broker order stored in the DB.
// Price stays nil until a fill price is known.
type Trade struct {
	ID         string
	OrderID    string
	StrategyID string
	Symbol     string
	Side       string
	Qty        float64
	Price      *float64
	Status     string
	CreatedAt  time.Time
	FilledAt   *time.Time
}

// CreateUser inserts a new user row.
func (d *Database) CreateUser(ctx context.Context, u User) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP), COALESCE(?, CURRENT_TIMESTAMP))
	`, u.ID, strings.ToLower(u.Email), u.PasswordHash, nullTime(u.CreatedAt), nullTime(u.UpdatedAt))
	return err
}

// CreateStrategy inserts a new strategy row.
func (d *Database) CreateStrategy(ctx context.Context, s Strategy) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO strategies (
			id, name, symbol, kind, params, timeframe, lookback, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP), COALESCE(?, CURRENT_TIMESTAMP))
	`,
		s.ID, s.Name, strings.ToUpper(s.Symbol), s.Kind, s.Params, s.Timeframe, s.Lookback, s.IsActive,
		nullTime(s.CreatedAt), nullTime(s.UpdatedAt),
	)
	return err
}

// UpdateStrategy rewrites the mutable fields of a strategy row.
func (d *Database) UpdateStrategy(ctx context.Context, s Strategy) error {
	res, err := d.DB.ExecContext(ctx, `
		UPDATE strategies
		SET name = ?, symbol = ?, kind = ?, params = ?, timeframe = ?, lookback = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, s.Name, strings.ToUpper(s.Symbol), s.Kind, s.Params, s.Timeframe, s.Lookback, s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStrategyActive flips the active flag.
func (d *Database) SetStrategyActive(ctx context.Context, id string, active bool) error {
	res, err := d.DB.ExecContext(ctx, `
		UPDATE strategies
		SET is_active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteStrategy removes a strategy and its recorded signals.
func (d *Database) DeleteStrategy(ctx context.Context, id string) error {
	if _, err := d.DB.ExecContext(ctx, `DELETE FROM signals WHERE strategy_id = ?`, id); err != nil {
		return err
	}
	res, err := d.DB.ExecContext(ctx, `DELETE FROM strategies WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateSignal inserts a new signal row.
func (d *Database) CreateSignal(ctx context.Context, s Signal) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO signals (id, strategy_id, symbol, kind, confidence, evidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP))
	`, s.ID, s.StrategyID, s.Symbol, s.Kind, s.Confidence, s.Evidence, nullTime(s.CreatedAt))
	return err
}

// CreateTrade inserts a new trade row. Repeated saves for the same broker
// order id update the fill state instead of duplicating the row.
func (d *Database) CreateTrade(ctx context.Context, t Trade) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO trades (
			id, order_id, strategy_id, symbol, side, qty, price, status, created_at, filled_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP), ?)
		ON CONFLICT(order_id) DO UPDATE SET
			price = excluded.price,
			status = excluded.status,
			filled_at = excluded.filled_at
	`,
		t.ID, t.OrderID, t.StrategyID, t.Symbol, t.Side, t.Qty, t.Price, t.Status,
		nullTime(t.CreatedAt), t.FilledAt,
	)
	return err
}

// nullTime maps the zero time to NULL so COALESCE picks CURRENT_TIMESTAMP.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
