package rabbit

import (
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The names below are the wire contract with every other deployment of the
// system; publisher and consumers silently lose messages if they drift.
func TestTopologyNames(t *testing.T) {
	assert.Equal(t, Topology{
		Exchange:           "documents",
		RoutingKey:         "document.uploaded",
		Queue:              "documents.ocr",
		DeadLetterExchange: "documents.dlx",
		DeadLetterQueue:    "documents.ocr.dlq",
	}, Ingest)

	assert.Equal(t, Topology{
		Exchange:           "ocr",
		RoutingKey:         "ocr.read",
		Queue:              "ocr.results",
		DeadLetterExchange: "ocr.dlx",
		DeadLetterQueue:    "ocr.results.dlq",
	}, Result)
}

func TestTopology_PipelinesDoNotShareNames(t *testing.T) {
	assert.NotEqual(t, Ingest.Queue, Result.Queue)
	assert.NotEqual(t, Ingest.Exchange, Result.Exchange)
	assert.NotEqual(t, Ingest.DeadLetterQueue, Result.DeadLetterQueue)
}

func TestTopology_Declare_SequenceAndArguments(t *testing.T) {
	d := NewMockDeclarer()
	require.NoError(t, Ingest.Declare(d))

	// Dead-letter side first, so the main queue's DLX target already exists.
	assert.Equal(t, []string{
		"exchange:documents.dlx",
		"queue:documents.ocr.dlq",
		"bind:documents.ocr.dlq",
		"exchange:documents",
		"queue:documents.ocr",
		"bind:documents.ocr",
	}, d.Calls)

	require.Len(t, d.Exchanges, 2)
	assert.Equal(t, DeclaredExchange{Name: "documents.dlx", Kind: "direct", Durable: true}, d.Exchanges[0])
	assert.Equal(t, DeclaredExchange{Name: "documents", Kind: "topic", Durable: true}, d.Exchanges[1])

	require.Len(t, d.Queues, 2)
	assert.True(t, d.Queues[0].Durable)
	assert.Nil(t, d.Queues[0].Args)
	assert.True(t, d.Queues[1].Durable)
	assert.Equal(t, amqp.Table{
		"x-dead-letter-exchange":    "documents.dlx",
		"x-dead-letter-routing-key": "documents.ocr.dlq",
	}, d.Queues[1].Args)

	require.Len(t, d.Bindings, 2)
	assert.Equal(t, DeclaredBinding{Queue: "documents.ocr.dlq", RoutingKey: "documents.ocr.dlq", Exchange: "documents.dlx"}, d.Bindings[0])
	assert.Equal(t, DeclaredBinding{Queue: "documents.ocr", RoutingKey: "document.uploaded", Exchange: "documents"}, d.Bindings[1])
}

func TestTopology_Declare_ResultQueueDeadLettersToResultDLX(t *testing.T) {
	d := NewMockDeclarer()
	require.NoError(t, Result.Declare(d))

	require.Len(t, d.Queues, 2)
	assert.Equal(t, "ocr.results", d.Queues[1].Name)
	assert.Equal(t, amqp.Table{
		"x-dead-letter-exchange":    "ocr.dlx",
		"x-dead-letter-routing-key": "ocr.results.dlq",
	}, d.Queues[1].Args)
}

func TestTopology_Declare_FailurePropagates(t *testing.T) {
	d := NewMockDeclarer()
	d.Err = errors.New("access refused")

	err := Ingest.Declare(d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "documents.dlx")
}
