package observability

import (
	"sync/atomic"
)

// MetricsCollector provides hooks for pipeline metrics collection.
// Can be implemented to integrate with Prometheus, StatsD, etc.
type MetricsCollector interface {
	IncPublished()
	IncPublishFailed()
	IncConsumed()
	IncProcessed()
	IncDeadLettered()
	IncIndexed()
	IncIndexFailed()
	AddPagesRecognized(n int)
}

// InMemoryMetrics is a simple in-memory implementation for testing/demo
type InMemoryMetrics struct {
	Published       atomic.Int64
	PublishFailed   atomic.Int64
	Consumed        atomic.Int64
	Processed       atomic.Int64
	DeadLettered    atomic.Int64
	Indexed         atomic.Int64
	IndexFailed     atomic.Int64
	PagesRecognized atomic.Int64
}

func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{}
}

func (m *InMemoryMetrics) IncPublished() {
	m.Published.Add(1)
}

func (m *InMemoryMetrics) IncPublishFailed() {
	m.PublishFailed.Add(1)
}

func (m *InMemoryMetrics) IncConsumed() {
	m.Consumed.Add(1)
}

func (m *InMemoryMetrics) IncProcessed() {
	m.Processed.Add(1)
}

func (m *InMemoryMetrics) IncDeadLettered() {
	m.DeadLettered.Add(1)
}

func (m *InMemoryMetrics) IncIndexed() {
	m.Indexed.Add(1)
}

func (m *InMemoryMetrics) IncIndexFailed() {
	m.IndexFailed.Add(1)
}

func (m *InMemoryMetrics) AddPagesRecognized(n int) {
	m.PagesRecognized.Add(int64(n))
}

func (m *InMemoryMetrics) GetPublished() int64 {
	return m.Published.Load()
}

func (m *InMemoryMetrics) GetPublishFailed() int64 {
	return m.PublishFailed.Load()
}

func (m *InMemoryMetrics) GetConsumed() int64 {
	return m.Consumed.Load()
}

func (m *InMemoryMetrics) GetProcessed() int64 {
	return m.Processed.Load()
}

func (m *InMemoryMetrics) GetDeadLettered() int64 {
	return m.DeadLettered.Load()
}

func (m *InMemoryMetrics) GetIndexed() int64 {
	return m.Indexed.Load()
}

func (m *InMemoryMetrics) GetIndexFailed() int64 {
	return m.IndexFailed.Load()
}

func (m *InMemoryMetrics) GetPagesRecognized() int64 {
	return m.PagesRecognized.Load()
}
