package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-docflow/internal/observability"
	"go-docflow/pkg/models"
)

func testConsumer(metrics observability.MetricsCollector) *Consumer {
	return NewConsumer(ConsumerConfig{
		Topology: Ingest,
		Metrics:  metrics,
	})
}

func testDelivery(t *testing.T, ack *MockAcknowledger, msg models.DocumentMessage) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	return amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  7,
		Body:         body,
	}
}

func TestConsumer_ProcessDelivery_Success_Acks(t *testing.T) {
	metrics := observability.NewInMemoryMetrics()
	consumer := testConsumer(metrics)
	ack := NewMockAcknowledger()

	msg := models.NewDocumentMessage(uuid.New(), "a.pdf", "application/pdf", "k.pdf", "")

	handlerCalled := false
	handler := func(ctx context.Context, got models.DocumentMessage) *ProcessingError {
		handlerCalled = true
		assert.Equal(t, msg.DocumentID, got.DocumentID)
		assert.Equal(t, msg.StoragePath, got.StoragePath)
		return nil
	}

	consumer.processDelivery(context.Background(), testDelivery(t, ack, msg), handler)

	assert.True(t, handlerCalled)
	assert.Equal(t, []uint64{7}, ack.Acked)
	assert.Empty(t, ack.Nacked)
	assert.Equal(t, int64(1), metrics.GetConsumed())
	assert.Equal(t, int64(1), metrics.GetProcessed())
	assert.Equal(t, int64(0), metrics.GetDeadLettered())
}

func TestConsumer_ProcessDelivery_HandlerFailure_DeadLetters(t *testing.T) {
	metrics := observability.NewInMemoryMetrics()
	consumer := testConsumer(metrics)
	ack := NewMockAcknowledger()

	msg := models.NewDocumentMessage(uuid.New(), "a.pdf", "application/pdf", "k.pdf", "")

	handler := func(ctx context.Context, got models.DocumentMessage) *ProcessingError {
		return NewProcessingError(FailureDownload, errors.New("object missing"))
	}

	consumer.processDelivery(context.Background(), testDelivery(t, ack, msg), handler)

	assert.Empty(t, ack.Acked)
	require.Equal(t, []uint64{7}, ack.Nacked)
	// Dead-letter means negative acknowledgement WITHOUT requeue.
	assert.Equal(t, []bool{false}, ack.Requeue)
	assert.Equal(t, int64(1), metrics.GetDeadLettered())
	assert.Equal(t, int64(0), metrics.GetProcessed())
}

func TestConsumer_ProcessDelivery_MalformedBody_DeadLetters(t *testing.T) {
	metrics := observability.NewInMemoryMetrics()
	consumer := testConsumer(metrics)
	ack := NewMockAcknowledger()

	handlerCalled := false
	handler := func(ctx context.Context, got models.DocumentMessage) *ProcessingError {
		handlerCalled = true
		return nil
	}

	consumer.processDelivery(context.Background(), amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  3,
		Body:         []byte("{not json"),
	}, handler)

	assert.False(t, handlerCalled)
	assert.Equal(t, []uint64{3}, ack.Nacked)
	assert.Equal(t, []bool{false}, ack.Requeue)
	assert.Equal(t, int64(1), metrics.GetDeadLettered())
}

// Round-trip: an envelope published to the ingest pipeline and consumed by a
// worker whose stages yield a known text produces a result envelope with that
// text and an unchanged document id.
func TestRoundTrip_IngestBodyToResultMessage(t *testing.T) {
	const fixedText = "Invoice number 12345 for consulting services"

	ingest := models.NewDocumentMessage(uuid.New(), "invoice-2024.pdf", "application/pdf", "2025/12/05/key.pdf", "T1")

	pub, err := buildPublishing(ingest)
	require.NoError(t, err)

	consumer := testConsumer(nil)
	ack := NewMockAcknowledger()

	var result models.DocumentMessage
	handler := func(ctx context.Context, got models.DocumentMessage) *ProcessingError {
		result = got.WithContent(fixedText)
		return nil
	}

	consumer.processDelivery(context.Background(), amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  1,
		Body:         pub.Body,
	}, handler)

	require.Equal(t, []uint64{1}, ack.Acked)
	assert.Equal(t, ingest.DocumentID, result.DocumentID)
	assert.Equal(t, ingest.CorrelationID, result.CorrelationID)
	assert.Equal(t, fixedText, result.Content)
}

func TestConsumer_EnsureTopology_DeclaresOnce(t *testing.T) {
	d := NewMockDeclarer()
	consumer := testConsumer(nil)

	require.NoError(t, consumer.ensureTopology(d))
	require.NoError(t, consumer.ensureTopology(d))

	assert.Len(t, d.Exchanges, 2)
	assert.Len(t, d.Queues, 2)
	assert.Len(t, d.Bindings, 2)
}

func TestProcessingError_KindAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	perr := NewProcessingError(FailureRasterize, cause)

	assert.Equal(t, FailureRasterize, perr.Kind)
	assert.ErrorIs(t, perr, cause)
	assert.Contains(t, perr.Error(), "rasterize")
	assert.False(t, perr.Requeue())
}
