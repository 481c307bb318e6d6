package rabbit

import (
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MockAcknowledger records ack/nack decisions for a fabricated delivery.
type MockAcknowledger struct {
	mu      sync.Mutex
	Acked   []uint64
	Nacked  []uint64
	Requeue []bool
}

func NewMockAcknowledger() *MockAcknowledger {
	return &MockAcknowledger{}
}

func (m *MockAcknowledger) Ack(tag uint64, multiple bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Acked = append(m.Acked, tag)
	return nil
}

func (m *MockAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Nacked = append(m.Nacked, tag)
	m.Requeue = append(m.Requeue, requeue)
	return nil
}

func (m *MockAcknowledger) Reject(tag uint64, requeue bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Nacked = append(m.Nacked, tag)
	m.Requeue = append(m.Requeue, requeue)
	return nil
}

// MockDeclarer records topology declarations in call order.
type MockDeclarer struct {
	mu        sync.Mutex
	Calls     []string
	Exchanges []DeclaredExchange
	Queues    []DeclaredQueue
	Bindings  []DeclaredBinding
	Err       error
}

type DeclaredExchange struct {
	Name    string
	Kind    string
	Durable bool
}

type DeclaredQueue struct {
	Name    string
	Durable bool
	Args    amqp.Table
}

type DeclaredBinding struct {
	Queue      string
	RoutingKey string
	Exchange   string
}

func NewMockDeclarer() *MockDeclarer {
	return &MockDeclarer{}
}

func (m *MockDeclarer) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "exchange:"+name)
	m.Exchanges = append(m.Exchanges, DeclaredExchange{Name: name, Kind: kind, Durable: durable})
	return m.Err
}

func (m *MockDeclarer) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "queue:"+name)
	m.Queues = append(m.Queues, DeclaredQueue{Name: name, Durable: durable, Args: args})
	return amqp.Queue{Name: name}, m.Err
}

func (m *MockDeclarer) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "bind:"+name)
	m.Bindings = append(m.Bindings, DeclaredBinding{Queue: name, RoutingKey: key, Exchange: exchange})
	return m.Err
}
