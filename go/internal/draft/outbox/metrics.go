package outbox

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcdev12/budgetdraft/go/internal/draft/events"
)

// Metrics counts what the relay has done since it started.
type Metrics struct {
	published atomic.Uint64
	failed    atomic.Uint64
	retries   atomic.Uint64

	mu        sync.Mutex
	byType    map[events.Type]uint64
	lastEvent time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{byType: make(map[events.Type]uint64)}
}

func (m *Metrics) RecordPublished(eventType events.Type, at time.Time) {
	m.published.Add(1)
	m.mu.Lock()
	m.byType[eventType]++
	m.lastEvent = at
	m.mu.Unlock()
}

func (m *Metrics) RecordFailed() {
	m.failed.Add(1)
}

func (m *Metrics) RecordRetry() {
	m.retries.Add(1)
}

// MetricsSnapshot is a point in time copy of Metrics
type MetricsSnapshot struct {
	Published     uint64
	Failed        uint64
	Retries       uint64
	ByType        map[events.Type]uint64
	LastEventTime time.Time
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	byType := make(map[events.Type]uint64, len(m.byType))
	for k, v := range m.byType {
		byType[k] = v
	}
	return MetricsSnapshot{
		Published:     m.published.Load(),
		Failed:        m.failed.Load(),
		Retries:       m.retries.Load(),
		ByType:        byType,
		LastEventTime: m.lastEvent,
	}
}
