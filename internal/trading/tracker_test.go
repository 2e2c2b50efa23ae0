package trading

import (
	"context"
	"errors"
	"testing"
)

func TestPositionTrackerRefresh(t *testing.T) {
	broker := newFakeBroker()
	broker.setPositions(
		PositionSnapshot{Symbol: "AAPL", Qty: 10, CurrentPrice: 180},
		PositionSnapshot{Symbol: "MSFT", Qty: 5, CurrentPrice: 410},
		PositionSnapshot{Symbol: "TSLA", Qty: 3, CurrentPrice: 250},
	)
	tracker := NewPositionTracker(broker)

	// Only the symbols being traded stay in the cache.
	if err := tracker.Refresh(context.Background(), []string{"AAPL", "MSFT"}); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if qty := tracker.Qty("AAPL"); qty != 10 {
		t.Fatalf("AAPL qty = %v, want 10", qty)
	}
	if _, ok := tracker.Get("TSLA"); ok {
		t.Fatal("TSLA is not traded and should not be tracked")
	}
	if n := len(tracker.All()); n != 2 {
		t.Fatalf("expected 2 tracked positions, got %d", n)
	}

	// Wholesale replacement: a closed position disappears.
	broker.setPositions(PositionSnapshot{Symbol: "MSFT", Qty: 5})
	if err := tracker.Refresh(context.Background(), []string{"AAPL", "MSFT"}); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if qty := tracker.Qty("AAPL"); qty != 0 {
		t.Fatalf("closed AAPL position still tracked: %v", qty)
	}
}

func TestPositionTrackerKeepsStaleSnapshotOnFailure(t *testing.T) {
	broker := newFakeBroker()
	broker.setPositions(PositionSnapshot{Symbol: "AAPL", Qty: 10})
	tracker := NewPositionTracker(broker)

	if err := tracker.Refresh(context.Background(), []string{"AAPL"}); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	firstRefresh := tracker.LastRefresh()

	broker.mu.Lock()
	broker.positionsErr = errors.New("api down")
	broker.mu.Unlock()

	if err := tracker.Refresh(context.Background(), []string{"AAPL"}); err == nil {
		t.Fatal("expected refresh error")
	}
	if qty := tracker.Qty("AAPL"); qty != 10 {
		t.Fatalf("stale snapshot lost: qty = %v, want 10", qty)
	}
	if !tracker.LastRefresh().Equal(firstRefresh) {
		t.Fatal("failed refresh must not bump the refresh time")
	}
}

func TestPositionTrackerClear(t *testing.T) {
	broker := newFakeBroker()
	broker.setPositions(PositionSnapshot{Symbol: "AAPL", Qty: 10})
	tracker := NewPositionTracker(broker)
	if err := tracker.Refresh(context.Background(), []string{"AAPL"}); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	tracker.Clear()
	if n := len(tracker.All()); n != 0 {
		t.Fatalf("expected empty tracker, got %d positions", n)
	}
	if !tracker.LastRefresh().IsZero() {
		t.Fatal("clear should reset the refresh time")
	}
}

func TestSignalMemoryDedup(t *testing.T) {
	m := NewSignalMemory()

	steps := []struct {
		kind string
		want bool
	}{
		{"BUY", true},   // first buy acts
		{"BUY", false},  // repeat suppressed
		{"BUY", false},  // still suppressed
		{"SELL", true},  // direction change acts
		{"SELL", false}, // repeat suppressed
		{"BUY", true},   // flip back acts
	}
	for i, step := range steps {
		if got := m.ShouldAct("s1", step.kind); got != step.want {
			t.Fatalf("step %d (%s): ShouldAct = %v, want %v", i, step.kind, got, step.want)
		}
	}

	// Strategies do not share memory.
	if !m.ShouldAct("s2", "BUY") {
		t.Fatal("fresh strategy should act")
	}

	m.Clear()
	if !m.ShouldAct("s1", "BUY") {
		t.Fatal("cleared memory should act again")
	}
}
