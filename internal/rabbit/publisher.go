package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"go-docflow/internal/observability"
	"go-docflow/pkg/models"
)

// ChannelProvider hands out a usable broker channel.
type ChannelProvider interface {
	Channel() (*amqp.Channel, error)
}

// Publisher serializes document envelopes and publishes them durably to one
// pipeline's exchange. Topology is declared once per publisher lifetime
// before the first publish.
type Publisher struct {
	client       ChannelProvider
	topology     Topology
	logger       *zap.Logger
	metrics      observability.MetricsCollector
	topologyOnce sync.Once
	topologyErr  error
}

type PublisherConfig struct {
	Client   ChannelProvider
	Topology Topology
	Logger   *zap.Logger
	Metrics  observability.MetricsCollector
}

func NewPublisher(cfg PublisherConfig) *Publisher {
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewInMemoryMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Publisher{
		client:   cfg.Client,
		topology: cfg.Topology,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

// Publish sends the envelope to the publisher's exchange/routing key with
// durability, correlation metadata and schema headers. Failures propagate to
// the caller, which decides whether to retry; nothing outside the broker is
// touched here.
func (p *Publisher) Publish(ctx context.Context, msg models.DocumentMessage) error {
	ch, err := p.client.Channel()
	if err != nil {
		p.metrics.IncPublishFailed()
		return err
	}

	if err := p.ensureTopology(ch); err != nil {
		p.metrics.IncPublishFailed()
		return err
	}

	publishing, err := buildPublishing(msg)
	if err != nil {
		p.metrics.IncPublishFailed()
		return err
	}

	if err := ch.PublishWithContext(ctx, p.topology.Exchange, p.topology.RoutingKey, false, false, publishing); err != nil {
		p.metrics.IncPublishFailed()
		p.logger.Error("Failed to publish message",
			zap.String("exchange", p.topology.Exchange),
			zap.String("routing_key", p.topology.RoutingKey),
			zap.String("document_id", msg.DocumentID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish to %s: %w", p.topology.Exchange, err)
	}

	p.metrics.IncPublished()
	p.logger.Info("Message published",
		zap.String("exchange", p.topology.Exchange),
		zap.String("routing_key", p.topology.RoutingKey),
		zap.String("document_id", msg.DocumentID.String()),
	)
	return nil
}

// ensureTopology declares the pipeline exactly once for this publisher.
// A declare failure is sticky: the publisher is unusable and every publish
// reports the original error.
func (p *Publisher) ensureTopology(d Declarer) error {
	p.topologyOnce.Do(func() {
		p.topologyErr = p.topology.Declare(d)
	})
	return p.topologyErr
}

// buildPublishing converts the envelope into an AMQP publishing with the
// agreed wire format: camelCase JSON body, persistent delivery, fresh message
// id, propagated correlation id, and type/version/tenant headers.
func buildPublishing(msg models.DocumentMessage) (amqp.Publishing, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to encode message: %w", err)
	}

	headers := amqp.Table{
		models.HeaderMessageType: models.MessageTypeDocumentUploaded,
		models.HeaderVersion:     int32(msg.Version),
	}
	if msg.TenantID != "" {
		headers[models.HeaderTenantID] = msg.TenantID
	}

	return amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		MessageId:     uuid.NewString(),
		CorrelationId: msg.CorrelationID,
		Timestamp:     time.Now().UTC(),
		Headers:       headers,
		Body:          body,
	}, nil
}
