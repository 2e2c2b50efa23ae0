package trading

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// PositionTracker caches broker positions for the current cycle. The
// cache is replaced wholesale on every refresh; when a refresh fails
// the previous snapshot stays in place so the cycle can proceed on
// slightly stale data.
type PositionTracker struct {
	broker Broker

	mu          sync.RWMutex
	positions   map[string]PositionSnapshot
	lastRefresh time.Time
}

// NewPositionTracker builds a tracker reading from the given broker.
func NewPositionTracker(broker Broker) *PositionTracker {
	return &PositionTracker{
		broker:    broker,
		positions: make(map[string]PositionSnapshot),
	}
}

// Refresh replaces the cached positions with the broker's current view,
// keeping only symbols the caller is trading. On error the cache is
// left untouched.
func (t *PositionTracker) Refresh(ctx context.Context, symbols []string) error {
	live, err := t.broker.GetPositions(ctx)
	if err != nil {
		return fmt.Errorf("refresh positions: %w", err)
	}

	wanted := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		wanted[s] = true
	}

	next := make(map[string]PositionSnapshot, len(live))
	for _, p := range live {
		if len(wanted) == 0 || wanted[p.Symbol] {
			next[p.Symbol] = p
		}
	}

	t.mu.Lock()
	t.positions = next
	t.lastRefresh = time.Now()
	t.mu.Unlock()
	return nil
}

// Qty returns the tracked quantity for a symbol, zero when untracked.
func (t *PositionTracker) Qty(symbol string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.positions[symbol].Qty
}

// Get returns the tracked snapshot for a symbol.
func (t *PositionTracker) Get(symbol string) (PositionSnapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.positions[symbol]
	return p, ok
}

// All returns the tracked positions sorted by symbol.
func (t *PositionTracker) All() []PositionSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]PositionSnapshot, 0, len(t.positions))
	for _, p := range t.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// LastRefresh reports when the cache was last replaced.
func (t *PositionTracker) LastRefresh() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastRefresh
}

// Clear drops every tracked position.
func (t *PositionTracker) Clear() {
	t.mu.Lock()
	t.positions = make(map[string]PositionSnapshot)
	t.lastRefresh = time.Time{}
	t.mu.Unlock()
}
