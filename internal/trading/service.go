package trading

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"algo-core/internal/events"
	"algo-core/internal/strategy"
)

// Loop states.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

// Config tunes the control loop.
type Config struct {
	// Interval is the pause between cycles.
	Interval time.Duration
	// PositionSize is the fraction of buying power committed per buy.
	PositionSize float64
	// HistoryLookback is the bar count requested for strategies that
	// do not set their own lookback.
	HistoryLookback int
	// StrategyPause spaces out strategies within a cycle so data
	// requests do not burst.
	StrategyPause time.Duration
}

func (c *Config) applyDefaults() {
	if c.Interval == 0 {
		c.Interval = 60 * time.Second
	}
	if c.PositionSize == 0 {
		c.PositionSize = 0.1
	}
	if c.HistoryLookback <= 0 {
		c.HistoryLookback = 100
	}
	if c.StrategyPause == 0 {
		c.StrategyPause = time.Second
	}
}

func (c Config) validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("cycle interval must be positive, got %v", c.Interval)
	}
	if c.PositionSize <= 0 || c.PositionSize > 1 {
		return fmt.Errorf("position size must be in (0, 1], got %v", c.PositionSize)
	}
	return nil
}

// StatusConfig echoes the loop configuration in the status snapshot.
type StatusConfig struct {
	IntervalSeconds int     `json:"interval_seconds"`
	PositionSize    float64 `json:"position_size"`
	HistoryLookback int     `json:"history_lookback"`
}

// Status is a point-in-time snapshot of the loop. Values may be up to
// one cycle stale.
type Status struct {
	Running     bool               `json:"running"`
	State       State              `json:"state"`
	Positions   []PositionSnapshot `json:"positions"`
	LastSignals map[string]string  `json:"last_signals"`
	Config      StatusConfig       `json:"config"`
	LastError   string             `json:"last_error,omitempty"`
	CycleCount  uint64             `json:"cycle_count"`
	LastCycleAt *time.Time         `json:"last_cycle_at,omitempty"`
}

// Service is the automated trading control loop. It owns the position
// tracker and signal memory and is the only writer to both while
// running.
type Service struct {
	broker Broker
	ledger Ledger
	bus    *events.Bus
	cfg    Config

	tracker  *PositionTracker
	memory   *SignalMemory
	executor *OrderExecutor

	mu          sync.Mutex
	state       State
	cancel      context.CancelFunc
	done        chan struct{}
	lastErr     error
	cycleCount  uint64
	lastCycleAt time.Time
}

// NewService wires the loop against its collaborators. Zero config
// fields fall back to defaults (60s interval, 0.1 position size, 100
// bars, 1s pause).
func NewService(broker Broker, ledger Ledger, bus *events.Bus, cfg Config) *Service {
	cfg.applyDefaults()
	if bus == nil {
		bus = events.NewBus()
	}

	tracker := NewPositionTracker(broker)
	return &Service{
		broker:   broker,
		ledger:   ledger,
		bus:      bus,
		cfg:      cfg,
		tracker:  tracker,
		memory:   NewSignalMemory(),
		executor: NewOrderExecutor(broker, ledger, tracker, bus, cfg.PositionSize),
	}
}

// Start launches the loop. An invalid configuration fails
// synchronously; that is the only error Start reports. Starting an
// already-running loop is a no-op. Runtime failures inside cycles are
// logged and absorbed.
func (s *Service) Start() error {
	if err := s.cfg.validate(); err != nil {
		return fmt.Errorf("start trading loop: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateRunning:
		return nil
	case StateStopping:
		return fmt.Errorf("trading loop is stopping; wait for it to finish")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.state = StateRunning
	s.lastErr = nil

	log.Printf("🔄 Trading loop started (interval %v, position size %.2f)", s.cfg.Interval, s.cfg.PositionSize)
	s.bus.Publish(events.EventTradingState, events.StateEvent{State: string(StateRunning), At: time.Now().UTC()})

	go s.run(ctx, s.done)
	return nil
}

// Stop requests cancellation and waits for the loop to exit. It
// returns once the loop has cleared its tracker and memory, or when
// ctx ends first. Stopping an idle loop is a no-op.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateIdle {
		s.mu.Unlock()
		return nil
	}
	if s.state == StateRunning {
		s.state = StateStopping
		s.cancel()
		log.Println("Trading loop stop requested")
	}
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for trading loop to stop: %w", ctx.Err())
	}
}

// Reconfigure replaces the loop settings. Zero fields fall back to
// defaults, mirroring NewService. The loop must be idle; a running
// loop keeps its settings until stopped.
func (s *Service) Reconfigure(cfg Config) error {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return fmt.Errorf("trading loop is %s; stop it before reconfiguring", s.state)
	}
	s.cfg = cfg
	s.executor.fraction = cfg.PositionSize
	return nil
}

// Status returns a snapshot of the loop.
func (s *Service) Status() Status {
	s.mu.Lock()
	state := s.state
	lastErr := s.lastErr
	count := s.cycleCount
	lastAt := s.lastCycleAt
	cfg := s.cfg
	s.mu.Unlock()

	st := Status{
		Running:     state == StateRunning,
		State:       state,
		Positions:   s.tracker.All(),
		LastSignals: s.memory.Snapshot(),
		Config: StatusConfig{
			IntervalSeconds: int(cfg.Interval / time.Second),
			PositionSize:    cfg.PositionSize,
			HistoryLookback: cfg.HistoryLookback,
		},
		CycleCount: count,
	}
	if lastErr != nil {
		st.LastError = lastErr.Error()
	}
	if !lastAt.IsZero() {
		at := lastAt
		st.LastCycleAt = &at
	}
	return st
}

func (s *Service) run(ctx context.Context, done chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Trading loop panic: %v", r)
			s.mu.Lock()
			s.lastErr = fmt.Errorf("trading loop panic: %v", r)
			s.mu.Unlock()
		}

		s.tracker.Clear()
		s.memory.Clear()
		s.mu.Lock()
		s.state = StateIdle
		s.cancel = nil
		s.mu.Unlock()
		s.bus.Publish(events.EventTradingState, events.StateEvent{State: string(StateIdle), At: time.Now().UTC()})
		log.Println("✓ Trading loop stopped")
		close(done)
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		s.runCycle(ctx)
		if !sleepCtx(ctx, s.cfg.Interval) {
			return
		}
	}
}

// runCycle evaluates every active strategy once. A failing strategy is
// logged and skipped; it never aborts the rest of the cycle.
func (s *Service) runCycle(ctx context.Context) {
	started := time.Now()

	defs, err := s.ledger.ListActiveStrategies(ctx)
	if err != nil {
		log.Printf("❌ Cycle skipped: list active strategies: %v", err)
		s.finishCycle(started, 0, 0, 1)
		return
	}
	if len(defs) == 0 {
		s.finishCycle(started, 0, 0, 0)
		return
	}

	seen := make(map[string]bool, len(defs))
	symbols := make([]string, 0, len(defs))
	for _, d := range defs {
		if !seen[d.Symbol] {
			seen[d.Symbol] = true
			symbols = append(symbols, d.Symbol)
		}
	}
	if err := s.tracker.Refresh(ctx, symbols); err != nil {
		log.Printf("⚠️ Position refresh failed, continuing on stale snapshot: %v", err)
	}

	var signals, errs int
	for i, def := range defs {
		if i > 0 && !sleepCtx(ctx, s.cfg.StrategyPause) {
			return
		}
		if ctx.Err() != nil {
			return
		}

		emitted, err := s.evaluate(ctx, def)
		if emitted {
			signals++
		}
		if err != nil {
			log.Printf("❌ Strategy %s (%s): %v", def.Name, def.Symbol, err)
			errs++
		}
	}

	s.finishCycle(started, len(defs), signals, errs)
}

func (s *Service) finishCycle(started time.Time, strategies, signals, errs int) {
	elapsed := time.Since(started)

	s.mu.Lock()
	s.cycleCount++
	cycle := s.cycleCount
	s.lastCycleAt = time.Now()
	s.mu.Unlock()

	s.bus.Publish(events.EventCycleCompleted, events.CycleEvent{
		Cycle:      cycle,
		Strategies: strategies,
		Signals:    signals,
		Errors:     errs,
		Elapsed:    elapsed,
		At:         time.Now().UTC(),
	})
	log.Printf("Cycle %d: %d strategies, %d signals, %d errors in %v",
		cycle, strategies, signals, errs, elapsed.Round(time.Millisecond))
}

// evaluate runs one strategy end to end: history, signal, persistence,
// dedup, position gate, execution. The emitted result reports whether a
// directional signal was produced, independent of whether it was acted
// on.
func (s *Service) evaluate(ctx context.Context, def strategy.Definition) (emitted bool, err error) {
	gen, err := strategy.New(def)
	if err != nil {
		return false, err
	}

	lookback := def.Lookback
	if lookback <= 0 {
		lookback = s.cfg.HistoryLookback
	}
	if lookback < gen.MinBars() {
		lookback = gen.MinBars()
	}

	bars, err := s.broker.GetPriceHistory(ctx, def.Symbol, def.Timeframe, lookback)
	if err != nil {
		return false, fmt.Errorf("price history: %w", err)
	}
	if len(bars) < gen.MinBars() {
		log.Printf("Strategy %s (%s): %d bars, need %d, skipping", def.Name, def.Symbol, len(bars), gen.MinBars())
		return false, nil
	}

	sig := gen.Evaluate(bars)
	if sig == nil {
		return false, nil
	}
	log.Printf("📊 Signal [%s]: %s %s (confidence %.2f)", def.Name, sig.Kind, sig.Symbol, sig.Confidence)

	// The signal joins the audit trail whether or not it is acted on.
	if err := s.ledger.SaveSignal(ctx, *sig); err != nil {
		log.Printf("⚠️ Signal for %s not recorded: %v", def.Name, err)
	}
	s.bus.Publish(events.EventSignal, events.SignalEvent{
		StrategyID: sig.StrategyID,
		Symbol:     sig.Symbol,
		Kind:       sig.Kind,
		Confidence: sig.Confidence,
		Evidence:   sig.Evidence,
		At:         sig.At,
	})

	if !s.memory.ShouldAct(def.ID, sig.Kind) {
		log.Printf("Signal [%s] repeats %s, no action", def.Name, sig.Kind)
		return true, nil
	}

	switch sig.Kind {
	case strategy.SignalBuy:
		if qty := s.tracker.Qty(def.Symbol); qty > 0 {
			log.Printf("Buy skipped [%s]: already holding %.4f %s", def.Name, qty, def.Symbol)
			return true, nil
		}
		if _, err := s.executor.ExecuteBuy(ctx, def); err != nil {
			return true, err
		}
	case strategy.SignalSell:
		if s.tracker.Qty(def.Symbol) <= 0 {
			log.Printf("Sell skipped [%s]: no open position in %s", def.Name, def.Symbol)
			return true, nil
		}
		if _, err := s.executor.ExecuteSell(ctx, def); err != nil {
			return true, err
		}
	}
	return true, nil
}
