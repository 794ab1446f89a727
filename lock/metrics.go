package lock

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics defines the interface for recording lock protocol events.
// All methods must be safe for concurrent use.
type Metrics interface {
	// IncrAcquire increments counters for acquisition attempts.
	// `contested` indicates the lock was found held at some point.
	IncrAcquire(success bool, contested bool)

	// IncrRelease increments counters for releases.
	IncrRelease(success bool)

	// IncrRenew increments counters for renewal ticks.
	IncrRenew(success bool)

	// IncrReclaim increments the counter for stale locks reclaimed.
	IncrReclaim()

	// IncrCompromise increments the counter for involuntary lock loss,
	// keyed by reason.
	IncrCompromise(reason string)

	// ObserveAcquireLatency records time taken to acquire a lock.
	ObserveAcquireLatency(latency time.Duration)

	// ObserveRenewLatency records time taken by a renewal tick.
	ObserveRenewLatency(latency time.Duration)

	// Reset clears all metrics.
	Reset()
}

// NoOpMetrics is a Metrics implementation that discards everything.
type NoOpMetrics struct{}

func (*NoOpMetrics) IncrAcquire(success bool, contested bool)    {}
func (*NoOpMetrics) IncrRelease(success bool)                    {}
func (*NoOpMetrics) IncrRenew(success bool)                      {}
func (*NoOpMetrics) IncrReclaim()                                {}
func (*NoOpMetrics) IncrCompromise(reason string)                {}
func (*NoOpMetrics) ObserveAcquireLatency(latency time.Duration) {}
func (*NoOpMetrics) ObserveRenewLatency(latency time.Duration)   {}
func (*NoOpMetrics) Reset()                                      {}

// InMemoryMetrics is a Metrics implementation backed by atomic counters,
// suitable for tests and lightweight introspection.
type InMemoryMetrics struct {
	acquireSuccess    atomic.Uint64
	acquireFailure    atomic.Uint64
	contestedAcquires atomic.Uint64
	releaseSuccess    atomic.Uint64
	releaseFailure    atomic.Uint64
	renewSuccess      atomic.Uint64
	renewFailure      atomic.Uint64
	reclaims          atomic.Uint64

	acquireLatencyTotal atomic.Int64 // nanoseconds
	renewLatencyTotal   atomic.Int64 // nanoseconds

	mu          sync.Mutex
	compromises map[string]uint64
}

// NewInMemoryMetrics returns an empty in-memory metrics sink.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{compromises: make(map[string]uint64)}
}

func (m *InMemoryMetrics) IncrAcquire(success bool, contested bool) {
	if success {
		m.acquireSuccess.Add(1)
	} else {
		m.acquireFailure.Add(1)
	}
	if contested {
		m.contestedAcquires.Add(1)
	}
}

func (m *InMemoryMetrics) IncrRelease(success bool) {
	if success {
		m.releaseSuccess.Add(1)
	} else {
		m.releaseFailure.Add(1)
	}
}

func (m *InMemoryMetrics) IncrRenew(success bool) {
	if success {
		m.renewSuccess.Add(1)
	} else {
		m.renewFailure.Add(1)
	}
}

func (m *InMemoryMetrics) IncrReclaim() {
	m.reclaims.Add(1)
}

func (m *InMemoryMetrics) IncrCompromise(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.compromises[reason]++
}

func (m *InMemoryMetrics) ObserveAcquireLatency(latency time.Duration) {
	m.acquireLatencyTotal.Add(int64(latency))
}

func (m *InMemoryMetrics) ObserveRenewLatency(latency time.Duration) {
	m.renewLatencyTotal.Add(int64(latency))
}

func (m *InMemoryMetrics) Reset() {
	m.acquireSuccess.Store(0)
	m.acquireFailure.Store(0)
	m.contestedAcquires.Store(0)
	m.releaseSuccess.Store(0)
	m.releaseFailure.Store(0)
	m.renewSuccess.Store(0)
	m.renewFailure.Store(0)
	m.reclaims.Store(0)
	m.acquireLatencyTotal.Store(0)
	m.renewLatencyTotal.Store(0)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.compromises = make(map[string]uint64)
}

// Accessors used by tests and callers inspecting a live Manager.

func (m *InMemoryMetrics) AcquireSuccesses() uint64  { return m.acquireSuccess.Load() }
func (m *InMemoryMetrics) AcquireFailures() uint64   { return m.acquireFailure.Load() }
func (m *InMemoryMetrics) ContestedAcquires() uint64 { return m.contestedAcquires.Load() }
func (m *InMemoryMetrics) ReleaseSuccesses() uint64  { return m.releaseSuccess.Load() }
func (m *InMemoryMetrics) ReleaseFailures() uint64   { return m.releaseFailure.Load() }
func (m *InMemoryMetrics) RenewSuccesses() uint64    { return m.renewSuccess.Load() }
func (m *InMemoryMetrics) RenewFailures() uint64     { return m.renewFailure.Load() }
func (m *InMemoryMetrics) Reclaims() uint64          { return m.reclaims.Load() }

// Compromises returns the number of compromises recorded for a reason.
func (m *InMemoryMetrics) Compromises(reason string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.compromises[reason]
}
