// Package db provides the sqlite-backed ledger: strategies, signals, trades, users.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("record not found")

// GetUserByEmail returns a user by email or nil if not found.
func (d *Database) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := d.DB.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at, updated_at
		FROM users WHERE email = ?
	`, strings.ToLower(email))
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// GetUserByID returns a user by id.
func (d *Database) GetUserByID(ctx context.Context, id string) (*User, error) {
	row := d.DB.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at, updated_at
		FROM users WHERE id = ?
	`, id)
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

const strategyColumns = `id, name, symbol, kind, params, timeframe, lookback, is_active, created_at, updated_at`

func scanStrategy(row interface{ Scan(...any) error }) (Strategy, error) {
	var s Strategy
	err := row.Scan(&s.ID, &s.Name, &s.Symbol, &s.Kind, &s.Params, &s.Timeframe, &s.Lookback,
		&s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// GetStrategyByID returns a strategy row by id.
func (d *Database) GetStrategyByID(ctx context.Context, id string) (*Strategy, error) {
	row := d.DB.QueryRowContext(ctx, `SELECT `+strategyColumns+` FROM strategies WHERE id = ?`, id)
	s, err := scanStrategy(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query strategy: %w", err)
	}
	return &s, nil
}

// GetStrategyByName returns a strategy row by its unique name, nil if absent.
func (d *Database) GetStrategyByName(ctx context.Context, name string) (*Strategy, error) {
	row := d.DB.QueryRowContext(ctx, `SELECT `+strategyColumns+` FROM strategies WHERE name = ?`, name)
	s, err := scanStrategy(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query strategy: %w", err)
	}
	return &s, nil
}

// ListStrategies returns all strategies, newest first.
func (d *Database) ListStrategies(ctx context.Context) ([]Strategy, error) {
	return d.listStrategies(ctx, `SELECT `+strategyColumns+` FROM strategies ORDER BY created_at DESC`)
}

// ListActiveStrategies returns the strategies the trading loop should evaluate.
func (d *Database) ListActiveStrategies(ctx context.Context) ([]Strategy, error) {
	return d.listStrategies(ctx, `SELECT `+strategyColumns+` FROM strategies WHERE is_active = 1 ORDER BY created_at`)
}

func (d *Database) listStrategies(ctx context.Context, query string) ([]Strategy, error) {
	rows, err := d.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query strategies: %w", err)
	}
	defer rows.Close()

	var res []Strategy
	for rows.Next() {
		s, err := scanStrategy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan strategy: %w", err)
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// ListSignals returns recent signals, optionally filtered by strategy id.
func (d *Database) ListSignals(ctx context.Context, strategyID string, limit int) ([]Signal, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, strategy_id, symbol, kind, confidence, COALESCE(evidence, ''), created_at
		FROM signals`
	args := []any{}
	if strategyID != "" {
		query += ` WHERE strategy_id = ?`
		args = append(args, strategyID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var res []Signal
	for rows.Next() {
		var s Signal
		if err := rows.Scan(&s.ID, &s.StrategyID, &s.Symbol, &s.Kind, &s.Confidence, &s.Evidence, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// ListTrades returns recent trades, newest first.
func (d *Database) ListTrades(ctx context.Context, limit int) ([]Trade, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, order_id, COALESCE(strategy_id, ''), symbol, side, qty, price, status, created_at, filled_at
		FROM trades
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var res []Trade
	for rows.Next() {
		var (
			t      Trade
			price  sql.NullFloat64
			filled sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.OrderID, &t.StrategyID, &t.Symbol, &t.Side, &t.Qty, &price, &t.Status, &t.CreatedAt, &filled); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		if price.Valid {
			t.Price = &price.Float64
		}
		if filled.Valid {
			t.FilledAt = &filled.Time
		}
		res = append(res, t)
	}
	return res, rows.Err()
}
