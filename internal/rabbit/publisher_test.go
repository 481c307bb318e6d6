package rabbit

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-docflow/pkg/models"
)

func TestBuildPublishing_WireFormat(t *testing.T) {
	msg := models.NewDocumentMessage(uuid.New(), "scan.pdf", "application/pdf", "2026/01/02/abc-scan.pdf", "T1")

	pub, err := buildPublishing(msg)
	require.NoError(t, err)

	assert.Equal(t, uint8(amqp.Persistent), pub.DeliveryMode)
	assert.Equal(t, "application/json", pub.ContentType)
	assert.Equal(t, msg.CorrelationID, pub.CorrelationId)
	assert.NotEmpty(t, pub.MessageId)
	assert.False(t, pub.Timestamp.IsZero())

	assert.Equal(t, models.MessageTypeDocumentUploaded, pub.Headers[models.HeaderMessageType])
	assert.Equal(t, int32(models.SchemaVersion), pub.Headers[models.HeaderVersion])
	assert.Equal(t, "T1", pub.Headers[models.HeaderTenantID])

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(pub.Body, &decoded))

	// camelCase field names on the wire
	for _, field := range []string{"documentId", "fileName", "contentType", "uploadedAtUtc", "storagePath", "content", "summary", "correlationId", "tenantId", "version"} {
		assert.Contains(t, decoded, field)
	}
	assert.Equal(t, msg.DocumentID.String(), decoded["documentId"])
}

func TestBuildPublishing_OmitsEmptyTenantHeader(t *testing.T) {
	msg := models.NewDocumentMessage(uuid.New(), "scan.pdf", "application/pdf", "k.pdf", "")

	pub, err := buildPublishing(msg)
	require.NoError(t, err)

	_, present := pub.Headers[models.HeaderTenantID]
	assert.False(t, present)
}

func TestBuildPublishing_FreshMessageIDPerPublish(t *testing.T) {
	msg := models.NewDocumentMessage(uuid.New(), "scan.pdf", "application/pdf", "k.pdf", "")

	a, err := buildPublishing(msg)
	require.NoError(t, err)
	b, err := buildPublishing(msg)
	require.NoError(t, err)

	assert.NotEqual(t, a.MessageId, b.MessageId)
	// Correlation id is propagated, not regenerated.
	assert.Equal(t, a.CorrelationId, b.CorrelationId)
}

func TestPublisher_EnsureTopology_DeclaresOnce(t *testing.T) {
	d := NewMockDeclarer()
	p := NewPublisher(PublisherConfig{Topology: Ingest})

	require.NoError(t, p.ensureTopology(d))
	require.NoError(t, p.ensureTopology(d))
	require.NoError(t, p.ensureTopology(d))

	// One declare pass total, not one per publish.
	assert.Len(t, d.Exchanges, 2)
	assert.Len(t, d.Queues, 2)
	assert.Len(t, d.Bindings, 2)
}

func TestPublisher_EnsureTopology_FailureIsSticky(t *testing.T) {
	d := NewMockDeclarer()
	d.Err = errors.New("access refused")
	p := NewPublisher(PublisherConfig{Topology: Ingest})

	first := p.ensureTopology(d)
	require.Error(t, first)

	// The broker recovering does not revive this publisher.
	d.Err = nil
	again := p.ensureTopology(d)
	assert.Equal(t, first, again)
	assert.Len(t, d.Exchanges, 1)
}
