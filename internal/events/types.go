package events

import "time"

// Event enumerates high-level topics inside the trading service.
type Event string

const (
	EventSignal            Event = "signal.generated"
	EventTradeRecorded     Event = "trade.recorded"
	EventReconciliationGap Event = "trade.reconciliation_gap"
	EventCycleCompleted    Event = "cycle.completed"
	EventTradingState      Event = "trading.state"
)

// SignalEvent is published for every non-hold signal a strategy emits.
type SignalEvent struct {
	StrategyID string             `json:"strategy_id"`
	Symbol     string             `json:"symbol"`
	Kind       string             `json:"kind"`
	Confidence float64            `json:"confidence"`
	Evidence   map[string]float64 `json:"evidence,omitempty"`
	At         time.Time          `json:"at"`
}

// TradeEvent is published after a broker submission was recorded.
// Elapsed is the broker round-trip time for the submission.
type TradeEvent struct {
	OrderID    string        `json:"order_id"`
	StrategyID string        `json:"strategy_id"`
	Symbol     string        `json:"symbol"`
	Side       string        `json:"side"`
	Qty        float64       `json:"qty"`
	Price      *float64      `json:"price,omitempty"`
	Status     string        `json:"status"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	At         time.Time     `json:"at"`
}

// GapEvent is published when a broker-side trade could not be persisted.
type GapEvent struct {
	OrderID string    `json:"order_id"`
	Symbol  string    `json:"symbol"`
	Reason  string    `json:"reason"`
	At      time.Time `json:"at"`
}

// CycleEvent summarizes one completed control-loop cycle.
type CycleEvent struct {
	Cycle      uint64        `json:"cycle"`
	Strategies int           `json:"strategies"`
	Signals    int           `json:"signals"`
	Errors     int           `json:"errors"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	At         time.Time     `json:"at"`
}

// StateEvent announces trading-loop state transitions.
type StateEvent struct {
	State string    `json:"state"`
	At    time.Time `json:"at"`
}
