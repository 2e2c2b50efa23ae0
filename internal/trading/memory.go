package trading

import "sync"

// SignalMemory remembers the last acted-on signal kind per strategy so
// an unchanged directional signal is not re-submitted every cycle while
// market conditions persist. At most one entry exists per strategy.
type SignalMemory struct {
	mu   sync.Mutex
	last map[string]string
}

// NewSignalMemory builds an empty memory.
func NewSignalMemory() *SignalMemory {
	return &SignalMemory{last: make(map[string]string)}
}

// ShouldAct reports whether a signal of this kind is new for the
// strategy. A repeat of the stored kind returns false and leaves the
// memory unchanged; anything else is recorded and returns true.
func (m *SignalMemory) ShouldAct(strategyID, kind string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.last[strategyID] == kind {
		return false
	}
	m.last[strategyID] = kind
	return true
}

// Snapshot copies the stored strategy→kind map.
func (m *SignalMemory) Snapshot() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]string, len(m.last))
	for k, v := range m.last {
		out[k] = v
	}
	return out
}

// Clear forgets every stored signal.
func (m *SignalMemory) Clear() {
	m.mu.Lock()
	m.last = make(map[string]string)
	m.mu.Unlock()
}
