package telemetry

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects chat-turn and memory-subsystem counters.
type Metrics struct {
	mu sync.RWMutex

	// Counters
	TurnsStarted      int64
	TurnsCompleted    int64
	TurnsDisconnected int64
	TurnsFailed       int64
	ChunksStreamed    int64
	MemoryWrites      int64
	MemoryLookups     int64
	APIRequests       int64
	EmbedRequests     int64

	// Gauges
	ActiveTurns int64

	// Histograms (simplified)
	turnDurations []time.Duration
	apiLatencies  []time.Duration

	// Exporter (optional)
	exporter MetricsExporter
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		turnDurations: make([]time.Duration, 0, 1000),
		apiLatencies:  make([]time.Duration, 0, 1000),
	}
}

// IncTurnsStarted increments the turns started counter and the active gauge.
func (m *Metrics) IncTurnsStarted() {
	atomic.AddInt64(&m.TurnsStarted, 1)
	atomic.AddInt64(&m.ActiveTurns, 1)
}

// IncTurnsCompleted increments the turns completed counter.
func (m *Metrics) IncTurnsCompleted() {
	atomic.AddInt64(&m.TurnsCompleted, 1)
	atomic.AddInt64(&m.ActiveTurns, -1)
}

// IncTurnsDisconnected increments the client-disconnect counter.
func (m *Metrics) IncTurnsDisconnected() {
	atomic.AddInt64(&m.TurnsDisconnected, 1)
	atomic.AddInt64(&m.ActiveTurns, -1)
}

// IncTurnsFailed increments the turns failed counter.
func (m *Metrics) IncTurnsFailed() {
	atomic.AddInt64(&m.TurnsFailed, 1)
	atomic.AddInt64(&m.ActiveTurns, -1)
}

// AddChunksStreamed adds n to the streamed-chunk counter.
func (m *Metrics) AddChunksStreamed(n int64) {
	atomic.AddInt64(&m.ChunksStreamed, n)
}

// IncMemoryWrites increments the memory record write counter.
func (m *Metrics) IncMemoryWrites() {
	atomic.AddInt64(&m.MemoryWrites, 1)
}

// IncMemoryLookups increments the on-demand memory lookup counter.
func (m *Metrics) IncMemoryLookups() {
	atomic.AddInt64(&m.MemoryLookups, 1)
}

// IncAPIRequests increments the provider API request counter.
func (m *Metrics) IncAPIRequests() {
	atomic.AddInt64(&m.APIRequests, 1)
}

// IncEmbedRequests increments the embedding request counter.
func (m *Metrics) IncEmbedRequests() {
	atomic.AddInt64(&m.EmbedRequests, 1)
}

// RecordTurnDuration records a full turn duration.
func (m *Metrics) RecordTurnDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turnDurations = append(m.turnDurations, d)
}

// RecordAPILatency records a provider call latency.
func (m *Metrics) RecordAPILatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apiLatencies = append(m.apiLatencies, d)
}

// GetSummary returns a summary of collected metrics
func (m *Metrics) GetSummary() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := map[string]interface{}{
		"turns_started":      atomic.LoadInt64(&m.TurnsStarted),
		"turns_completed":    atomic.LoadInt64(&m.TurnsCompleted),
		"turns_disconnected": atomic.LoadInt64(&m.TurnsDisconnected),
		"turns_failed":       atomic.LoadInt64(&m.TurnsFailed),
		"chunks_streamed":    atomic.LoadInt64(&m.ChunksStreamed),
		"memory_writes":      atomic.LoadInt64(&m.MemoryWrites),
		"memory_lookups":     atomic.LoadInt64(&m.MemoryLookups),
		"api_requests":       atomic.LoadInt64(&m.APIRequests),
		"embed_requests":     atomic.LoadInt64(&m.EmbedRequests),
		"active_turns":       atomic.LoadInt64(&m.ActiveTurns),
	}

	// Add duration stats
	if len(m.turnDurations) > 0 {
		var total time.Duration
		for _, d := range m.turnDurations {
			total += d
		}
		summary["avg_turn_duration_ms"] = total.Milliseconds() / int64(len(m.turnDurations))
	}

	if len(m.apiLatencies) > 0 {
		var total time.Duration
		for _, d := range m.apiLatencies {
			total += d
		}
		summary["avg_api_latency_ms"] = total.Milliseconds() / int64(len(m.apiLatencies))
	}

	return summary
}

// Reset resets all metrics
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	atomic.StoreInt64(&m.TurnsStarted, 0)
	atomic.StoreInt64(&m.TurnsCompleted, 0)
	atomic.StoreInt64(&m.TurnsDisconnected, 0)
	atomic.StoreInt64(&m.TurnsFailed, 0)
	atomic.StoreInt64(&m.ChunksStreamed, 0)
	atomic.StoreInt64(&m.MemoryWrites, 0)
	atomic.StoreInt64(&m.MemoryLookups, 0)
	atomic.StoreInt64(&m.APIRequests, 0)
	atomic.StoreInt64(&m.EmbedRequests, 0)
	atomic.StoreInt64(&m.ActiveTurns, 0)

	m.turnDurations = m.turnDurations[:0]
	m.apiLatencies = m.apiLatencies[:0]
}

// SetExporter attaches a metrics exporter.
func (m *Metrics) SetExporter(e MetricsExporter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exporter = e
}

// Flush exports the current metrics snapshot with the given event label.
func (m *Metrics) Flush(event string, labels map[string]string) {
	m.mu.RLock()
	exporter := m.exporter
	m.mu.RUnlock()

	if exporter == nil {
		return
	}

	snapshot := MetricsSnapshot{
		Timestamp: time.Now(),
		Event:     event,
		Metrics:   m.GetSummary(),
		Labels:    labels,
	}
	// Best-effort export.
	_ = exporter.Export(snapshot)
}
