package trading

import (
	"context"
	"strings"
	"testing"
	"time"

	"algo-core/internal/events"
	"algo-core/internal/strategy"
)

func fastConfig() Config {
	return Config{
		Interval:        25 * time.Millisecond,
		PositionSize:    0.1,
		HistoryLookback: 10,
		StrategyPause:   time.Millisecond,
	}
}

func stopService(t *testing.T, svc *Service) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := svc.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestServiceLifecycle(t *testing.T) {
	broker := newFakeBroker()
	ledger := &fakeLedger{}
	svc := NewService(broker, ledger, events.NewBus(), fastConfig())

	if st := svc.Status(); st.State != StateIdle || st.Running {
		t.Fatalf("fresh service should be idle: %+v", st)
	}

	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if st := svc.Status(); !st.Running || st.State != StateRunning {
		t.Fatalf("expected running, got %+v", st)
	}
	// Starting a running loop is a no-op, not an error.
	if err := svc.Start(); err != nil {
		t.Fatalf("start while running: %v", err)
	}
	if st := svc.Status(); !st.Running {
		t.Fatalf("no-op start must leave the loop running: %+v", st)
	}

	stopService(t, svc)
	if st := svc.Status(); st.Running || st.State != StateIdle {
		t.Fatalf("expected idle after stop, got %+v", st)
	}

	// Stopping an idle loop is a no-op.
	if err := svc.Stop(context.Background()); err != nil {
		t.Fatalf("stop on idle: %v", err)
	}

	// The loop can be started again after a clean stop.
	if err := svc.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	stopService(t, svc)
}

func TestServiceStopReturnsPromptlyDuringSleep(t *testing.T) {
	broker := newFakeBroker()
	ledger := &fakeLedger{}
	cfg := fastConfig()
	cfg.Interval = 60 * time.Second
	svc := NewService(broker, ledger, events.NewBus(), cfg)

	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, 2*time.Second, "first cycle", func() bool {
		return svc.Status().CycleCount >= 1
	})

	// The loop is now an entire interval away from its next wakeup.
	started := time.Now()
	stopService(t, svc)
	if elapsed := time.Since(started); elapsed > time.Second {
		t.Fatalf("stop took %v, should interrupt the sleep", elapsed)
	}
}

func TestServiceStartValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"position size above 1", Config{Interval: time.Second, PositionSize: 1.5}},
		{"negative position size", Config{Interval: time.Second, PositionSize: -0.1}},
		{"negative interval", Config{Interval: -time.Second, PositionSize: 0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(newFakeBroker(), &fakeLedger{}, events.NewBus(), tt.cfg)
			if err := svc.Start(); err == nil {
				stopService(t, svc)
				t.Fatal("expected start to fail")
			}
			if st := svc.Status(); st.Running {
				t.Fatal("failed start must leave the loop idle")
			}
		})
	}
}

func TestServiceReconfigure(t *testing.T) {
	svc := NewService(newFakeBroker(), &fakeLedger{}, events.NewBus(), fastConfig())

	if err := svc.Reconfigure(Config{Interval: 5 * time.Second, PositionSize: 0.25, HistoryLookback: 50}); err != nil {
		t.Fatalf("reconfigure idle: %v", err)
	}
	st := svc.Status()
	if st.Config.IntervalSeconds != 5 || st.Config.PositionSize != 0.25 || st.Config.HistoryLookback != 50 {
		t.Fatalf("config not applied: %+v", st.Config)
	}

	if err := svc.Reconfigure(Config{Interval: time.Second, PositionSize: 2}); err == nil {
		t.Fatal("invalid position size must be rejected")
	}

	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer stopService(t, svc)
	if err := svc.Reconfigure(fastConfig()); err == nil {
		t.Fatal("reconfigure must be rejected while running")
	}
}

func TestServiceBuysOnCrossover(t *testing.T) {
	broker := newFakeBroker()
	broker.setHistory("AAPL", buyCloses)
	broker.prices["AAPL"] = 50
	ledger := &fakeLedger{defs: []strategy.Definition{crossoverDef("s1", "AAPL")}}
	svc := NewService(broker, ledger, events.NewBus(), fastConfig())

	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer stopService(t, svc)

	waitFor(t, 2*time.Second, "buy order", func() bool {
		return len(broker.submittedOrders()) == 1
	})

	orders := broker.submittedOrders()
	if orders[0].Side != SideBuy || orders[0].Symbol != "AAPL" {
		t.Fatalf("unexpected order: %+v", orders[0])
	}
	if orders[0].Qty != 20 {
		t.Fatalf("qty = %v, want 20 (10000 x 0.1 / 50)", orders[0].Qty)
	}

	sigs := ledger.savedSignals()
	if len(sigs) == 0 || sigs[0].Kind != strategy.SignalBuy {
		t.Fatalf("buy signal not persisted: %+v", sigs)
	}
	if st := svc.Status(); st.LastSignals["s1"] != strategy.SignalBuy {
		t.Fatalf("signal memory not visible in status: %+v", st.LastSignals)
	}
}

func TestServiceSuppressesRepeatedSignal(t *testing.T) {
	broker := newFakeBroker()
	broker.setHistory("AAPL", buyCloses)
	broker.prices["AAPL"] = 50
	ledger := &fakeLedger{defs: []strategy.Definition{crossoverDef("s1", "AAPL")}}
	svc := NewService(broker, ledger, events.NewBus(), fastConfig())

	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer stopService(t, svc)

	waitFor(t, 2*time.Second, "first buy", func() bool {
		return len(broker.submittedOrders()) == 1
	})
	after := svc.Status().CycleCount

	// Conditions persist: the same crossover keeps producing BUY
	// signals, but no further orders may be submitted.
	waitFor(t, 2*time.Second, "three more cycles", func() bool {
		return svc.Status().CycleCount >= after+3
	})
	if n := len(broker.submittedOrders()); n != 1 {
		t.Fatalf("repeat signal re-submitted: %d orders", n)
	}
	// The suppressed signals still land in the audit trail.
	if n := len(ledger.savedSignals()); n < 2 {
		t.Fatalf("expected repeated signals persisted, got %d", n)
	}
}

func TestServiceFlipsToSellAndClosesPosition(t *testing.T) {
	broker := newFakeBroker()
	broker.setHistory("AAPL", buyCloses)
	broker.prices["AAPL"] = 50
	ledger := &fakeLedger{defs: []strategy.Definition{crossoverDef("s1", "AAPL")}}
	svc := NewService(broker, ledger, events.NewBus(), fastConfig())

	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer stopService(t, svc)

	waitFor(t, 2*time.Second, "buy order", func() bool {
		return len(broker.submittedOrders()) == 1
	})

	// The fill shows up as a broker position. Let a full cycle refresh
	// the tracker before the trend reverses, so the position gate sees
	// the position on whichever cycle first evaluates the sell.
	broker.setPositions(PositionSnapshot{Symbol: "AAPL", Qty: 20, AvgEntryPrice: 50})
	seen := svc.Status().CycleCount
	waitFor(t, 2*time.Second, "tracker refresh", func() bool {
		return svc.Status().CycleCount > seen
	})
	broker.setHistory("AAPL", sellCloses)

	waitFor(t, 2*time.Second, "position close", func() bool {
		return len(broker.closedSymbols()) == 1
	})

	trades := ledger.savedTrades()
	if len(trades) != 2 {
		t.Fatalf("expected buy + close trades, got %d", len(trades))
	}
	last := trades[len(trades)-1]
	if last.Side != SideSell || last.Qty != 20 {
		t.Fatalf("close should sell the full tracked quantity: %+v", last)
	}
}

func TestServiceBuyGateWhenAlreadyHolding(t *testing.T) {
	broker := newFakeBroker()
	broker.setHistory("AAPL", buyCloses)
	broker.prices["AAPL"] = 50
	broker.setPositions(PositionSnapshot{Symbol: "AAPL", Qty: 15})
	ledger := &fakeLedger{defs: []strategy.Definition{crossoverDef("s1", "AAPL")}}
	svc := NewService(broker, ledger, events.NewBus(), fastConfig())

	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer stopService(t, svc)

	waitFor(t, 2*time.Second, "two cycles", func() bool {
		return svc.Status().CycleCount >= 2
	})

	if n := len(broker.submittedOrders()); n != 0 {
		t.Fatalf("buy must be gated while holding, got %d orders", n)
	}
	// The signal itself is still remembered and audited.
	if st := svc.Status(); st.LastSignals["s1"] != strategy.SignalBuy {
		t.Fatalf("gated signal should still be recorded: %+v", st.LastSignals)
	}
	if n := len(ledger.savedSignals()); n == 0 {
		t.Fatal("gated signal should still be persisted")
	}
}

func TestServiceSellGateWithoutPosition(t *testing.T) {
	broker := newFakeBroker()
	broker.setHistory("AAPL", sellCloses)
	broker.prices["AAPL"] = 50
	ledger := &fakeLedger{defs: []strategy.Definition{crossoverDef("s1", "AAPL")}}
	svc := NewService(broker, ledger, events.NewBus(), fastConfig())

	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer stopService(t, svc)

	waitFor(t, 2*time.Second, "two cycles", func() bool {
		return svc.Status().CycleCount >= 2
	})

	if n := len(broker.closedSymbols()); n != 0 {
		t.Fatalf("nothing to close, got %d close calls", n)
	}
}

func TestServiceIsolatesFailingStrategy(t *testing.T) {
	broker := newFakeBroker()
	// "BAD" has no history, so its strategy fails every cycle.
	broker.setHistory("AAPL", buyCloses)
	broker.prices["AAPL"] = 50
	ledger := &fakeLedger{defs: []strategy.Definition{
		crossoverDef("s-bad", "BAD"),
		crossoverDef("s-good", "AAPL"),
	}}
	bus := events.NewBus()
	cycles, unsub := bus.Subscribe(events.EventCycleCompleted, 16)
	defer unsub()
	svc := NewService(broker, ledger, bus, fastConfig())

	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer stopService(t, svc)

	waitFor(t, 2*time.Second, "buy despite failing sibling", func() bool {
		return len(broker.submittedOrders()) == 1
	})

	select {
	case msg := <-cycles:
		ev := msg.(events.CycleEvent)
		if ev.Strategies != 2 {
			t.Fatalf("cycle should cover both strategies: %+v", ev)
		}
		if ev.Errors != 1 {
			t.Fatalf("failing strategy should count one error: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no cycle event published")
	}
}

func TestServiceRecoversFromPanic(t *testing.T) {
	broker := newFakeBroker()
	ledger := &fakeLedger{panicOnList: true}
	svc := NewService(broker, ledger, events.NewBus(), fastConfig())

	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	waitFor(t, 2*time.Second, "loop to land idle after panic", func() bool {
		return svc.Status().State == StateIdle
	})

	st := svc.Status()
	if !strings.Contains(st.LastError, "panic") {
		t.Fatalf("panic not surfaced in status: %+v", st)
	}
	// Stop after a panic exit is a clean no-op.
	if err := svc.Stop(context.Background()); err != nil {
		t.Fatalf("stop after panic: %v", err)
	}
}

func TestServiceClearsStateOnStop(t *testing.T) {
	broker := newFakeBroker()
	broker.setHistory("AAPL", buyCloses)
	broker.prices["AAPL"] = 50
	broker.setPositions(PositionSnapshot{Symbol: "AAPL", Qty: 20})
	ledger := &fakeLedger{defs: []strategy.Definition{crossoverDef("s1", "AAPL")}}
	svc := NewService(broker, ledger, events.NewBus(), fastConfig())

	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, 2*time.Second, "tracked position and signal", func() bool {
		st := svc.Status()
		return len(st.Positions) == 1 && len(st.LastSignals) == 1
	})

	stopService(t, svc)

	st := svc.Status()
	if len(st.Positions) != 0 {
		t.Fatalf("positions must be cleared on stop: %+v", st.Positions)
	}
	if len(st.LastSignals) != 0 {
		t.Fatalf("signal memory must be cleared on stop: %+v", st.LastSignals)
	}
}
