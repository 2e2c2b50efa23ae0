package monitor

import (
	"context"
	"fmt"
	"log"

	"algo-core/internal/events"
)

// Monitor folds bus events into metrics and raises alerts for
// reconciliation gaps.
type Monitor struct {
	Bus     *events.Bus
	Metrics *SystemMetrics
	Alerts  AlertSink
}

// Start consumes events until ctx ends. Missing configuration turns it
// into a no-op so tests can run without a monitor.
func (m *Monitor) Start(ctx context.Context) {
	if m.Bus == nil || m.Metrics == nil {
		log.Println("monitor not fully configured; skipping")
		return
	}

	cycles, unsubCycles := m.Bus.Subscribe(events.EventCycleCompleted, 50)
	signals, unsubSignals := m.Bus.Subscribe(events.EventSignal, 50)
	trades, unsubTrades := m.Bus.Subscribe(events.EventTradeRecorded, 50)
	gaps, unsubGaps := m.Bus.Subscribe(events.EventReconciliationGap, 50)

	go func() {
		defer unsubCycles()
		defer unsubSignals()
		defer unsubTrades()
		defer unsubGaps()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-cycles:
				if !ok {
					return
				}
				if ev, valid := msg.(events.CycleEvent); valid {
					m.Metrics.IncrementCycles()
					m.Metrics.CycleLatency.RecordDuration(ev.Elapsed)
					m.Metrics.AddStrategyErrors(ev.Errors)
				}
			case msg, ok := <-signals:
				if !ok {
					return
				}
				if _, valid := msg.(events.SignalEvent); valid {
					m.Metrics.IncrementSignals()
				}
			case msg, ok := <-trades:
				if !ok {
					return
				}
				if ev, valid := msg.(events.TradeEvent); valid {
					m.Metrics.IncrementTrades()
					m.Metrics.OrderLatency.RecordDuration(ev.Elapsed)
				}
			case msg, ok := <-gaps:
				if !ok {
					return
				}
				if ev, valid := msg.(events.GapEvent); valid {
					m.Metrics.IncrementReconciliationGaps()
					m.alert(fmt.Sprintf("reconciliation gap: order %s (%s): %s", ev.OrderID, ev.Symbol, ev.Reason))
				}
			}
		}
	}()
}

func (m *Monitor) alert(message string) {
	if m.Alerts == nil {
		return
	}
	if err := m.Alerts.Send(message); err != nil {
		log.Printf("alert delivery failed: %v", err)
	}
}
