package monitor

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// SystemMetrics tracks overall system performance.
type SystemMetrics struct {
	// Latency histograms
	CycleLatency   *LatencyHistogram
	OrderLatency   *LatencyHistogram
	RequestLatency *LatencyHistogram

	// Counters
	cyclesCompleted    uint64
	signalsGenerated   uint64
	tradesRecorded     uint64
	strategyErrors     uint64
	reconciliationGaps uint64
	apiRequests        uint64
	apiErrors          uint64

	startedAt time.Time
}

// LatencyHistogram tracks latency samples with sliding window.
// Supports lazy stats computation for better performance.
type LatencyHistogram struct {
	mu          sync.Mutex
	samples     []float64
	maxSize     int
	dirty       bool         // Whether samples have changed since last Stats()
	cachedStats LatencyStats // Cached computed stats
}

// NewSystemMetrics creates a new metrics instance.
func NewSystemMetrics() *SystemMetrics {
	return &SystemMetrics{
		CycleLatency:   NewLatencyHistogram(1000),
		OrderLatency:   NewLatencyHistogram(1000),
		RequestLatency: NewLatencyHistogram(1000),
		startedAt:      time.Now(),
	}
}

// NewLatencyHistogram creates a sliding window histogram.
func NewLatencyHistogram(size int) *LatencyHistogram {
	if size <= 0 {
		size = 1000
	}
	return &LatencyHistogram{
		samples: make([]float64, 0, size),
		maxSize: size,
		dirty:   true,
	}
}

// Record adds a latency sample in milliseconds.
func (h *LatencyHistogram) Record(latencyMs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) >= h.maxSize {
		// Shift window: remove oldest
		h.samples = h.samples[1:]
	}
	h.samples = append(h.samples, latencyMs)
	h.dirty = true // Mark as dirty for lazy recomputation
}

// RecordDuration converts duration to ms and records.
func (h *LatencyHistogram) RecordDuration(d time.Duration) {
	h.Record(float64(d.Nanoseconds()) / 1e6)
}

// Stats returns min, max, avg, p50, p95, p99.
// Uses lazy computation - only recomputes when samples have changed.
func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Return cached stats if samples haven't changed
	if !h.dirty && h.cachedStats.Count > 0 {
		return h.cachedStats
	}

	n := len(h.samples)
	if n == 0 {
		return LatencyStats{}
	}

	// Compute new stats
	sorted := make([]float64, n)
	copy(sorted, h.samples)
	sort.Float64s(sorted)

	var sum float64
	min, max := sorted[0], sorted[n-1]
	for _, v := range sorted {
		sum += v
	}

	h.cachedStats = LatencyStats{
		Min:   min,
		Max:   max,
		Avg:   sum / float64(n),
		P50:   sorted[n/2],
		P95:   sorted[int(float64(n)*0.95)],
		P99:   sorted[int(float64(n)*0.99)],
		Count: n,
	}
	h.dirty = false

	return h.cachedStats
}

// LatencyStats holds computed latency statistics.
type LatencyStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Count int     `json:"count"`
}

// IncrementCycles increments the completed cycle counter.
func (m *SystemMetrics) IncrementCycles() {
	atomic.AddUint64(&m.cyclesCompleted, 1)
}

// IncrementSignals increments the generated signals counter.
func (m *SystemMetrics) IncrementSignals() {
	atomic.AddUint64(&m.signalsGenerated, 1)
}

// IncrementTrades increments the recorded trades counter.
func (m *SystemMetrics) IncrementTrades() {
	atomic.AddUint64(&m.tradesRecorded, 1)
}

// AddStrategyErrors adds per-cycle strategy failures to the counter.
func (m *SystemMetrics) AddStrategyErrors(n int) {
	if n > 0 {
		atomic.AddUint64(&m.strategyErrors, uint64(n))
	}
}

// IncrementReconciliationGaps counts trades that executed at the broker
// but could not be recorded.
func (m *SystemMetrics) IncrementReconciliationGaps() {
	atomic.AddUint64(&m.reconciliationGaps, 1)
}

// IncrementAPIRequests increments the HTTP request counter.
func (m *SystemMetrics) IncrementAPIRequests() {
	atomic.AddUint64(&m.apiRequests, 1)
}

// IncrementAPIErrors increments the failed-request counter.
func (m *SystemMetrics) IncrementAPIErrors() {
	atomic.AddUint64(&m.apiErrors, 1)
}

// MetricsSnapshot is a point-in-time metrics view.
type MetricsSnapshot struct {
	CycleLatency       LatencyStats `json:"cycle_latency"`
	OrderLatency       LatencyStats `json:"order_latency"`
	RequestLatency     LatencyStats `json:"request_latency"`
	CyclesCompleted    uint64       `json:"cycles_completed"`
	SignalsGenerated   uint64       `json:"signals_generated"`
	TradesRecorded     uint64       `json:"trades_recorded"`
	StrategyErrors     uint64       `json:"strategy_errors"`
	ReconciliationGaps uint64       `json:"reconciliation_gaps"`
	APIRequests        uint64       `json:"api_requests"`
	APIErrors          uint64       `json:"api_errors"`
	GoroutineCount     int          `json:"goroutine_count"`
	HeapAlloc          uint64       `json:"heap_alloc_bytes"`
	HeapSys            uint64       `json:"heap_sys_bytes"`
	UptimeSeconds      float64      `json:"uptime_seconds"`
	Timestamp          time.Time    `json:"timestamp"`
}

// GetSnapshot returns a point-in-time metrics snapshot.
func (m *SystemMetrics) GetSnapshot() MetricsSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return MetricsSnapshot{
		CycleLatency:       m.CycleLatency.Stats(),
		OrderLatency:       m.OrderLatency.Stats(),
		RequestLatency:     m.RequestLatency.Stats(),
		CyclesCompleted:    atomic.LoadUint64(&m.cyclesCompleted),
		SignalsGenerated:   atomic.LoadUint64(&m.signalsGenerated),
		TradesRecorded:     atomic.LoadUint64(&m.tradesRecorded),
		StrategyErrors:     atomic.LoadUint64(&m.strategyErrors),
		ReconciliationGaps: atomic.LoadUint64(&m.reconciliationGaps),
		APIRequests:        atomic.LoadUint64(&m.apiRequests),
		APIErrors:          atomic.LoadUint64(&m.apiErrors),
		GoroutineCount:     runtime.NumGoroutine(),
		HeapAlloc:          memStats.HeapAlloc,
		HeapSys:            memStats.HeapSys,
		UptimeSeconds:      time.Since(m.startedAt).Seconds(),
		Timestamp:          time.Now(),
	}
}
