package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"go-docflow/internal/observability"
	"go-docflow/pkg/models"
)

// Handler processes one decoded envelope. A nil return acknowledges the
// delivery; a ProcessingError dead-letters it (or requeues, if the kind says
// so).
type Handler func(ctx context.Context, msg models.DocumentMessage) *ProcessingError

// Consumer subscribes to one pipeline's queue with manual acknowledgement
// and drives deliveries through a Handler sequentially. Ordering across
// messages is not guaranteed: with prefetch above one, or multiple worker
// processes on the same queue, deliveries interleave.
type Consumer struct {
	client       ChannelProvider
	topology     Topology
	logger       *zap.Logger
	metrics      observability.MetricsCollector
	prefetch     int
	tag          string
	topologyOnce sync.Once
	topologyErr  error
}

type ConsumerConfig struct {
	Client   ChannelProvider
	Topology Topology
	Logger   *zap.Logger
	Metrics  observability.MetricsCollector
	Prefetch int
	Tag      string
}

func NewConsumer(cfg ConsumerConfig) *Consumer {
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewInMemoryMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Prefetch == 0 {
		cfg.Prefetch = 1
	}
	return &Consumer{
		client:   cfg.Client,
		topology: cfg.Topology,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		prefetch: cfg.Prefetch,
		tag:      cfg.Tag,
	}
}

// Start declares topology, applies the prefetch window and consumes until
// the context is cancelled. The in-flight delivery is always resolved
// (ack or nack) before Start returns.
func (c *Consumer) Start(ctx context.Context, handler Handler) error {
	ch, err := c.client.Channel()
	if err != nil {
		return err
	}

	if err := c.ensureTopology(ch); err != nil {
		return err
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, c.topology.Queue, c.tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume from %s: %w", c.topology.Queue, err)
	}

	c.logger.Info("Consumer listening",
		zap.String("queue", c.topology.Queue),
		zap.Int("prefetch", c.prefetch),
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Consumer stopping due to context cancellation")
			return nil
		case d, ok := <-deliveries:
			if !ok {
				c.logger.Warn("Delivery channel closed")
				return nil
			}
			c.processDelivery(ctx, d, handler)
		}
	}
}

// ensureTopology declares the pipeline exactly once for this consumer, with
// the same sticky-failure behavior as the publisher's guard.
func (c *Consumer) ensureTopology(d Declarer) error {
	c.topologyOnce.Do(func() {
		c.topologyErr = c.topology.Declare(d)
	})
	return c.topologyErr
}

// processDelivery decodes the body, runs the handler and resolves the
// delivery. Undecodable messages are dead-lettered immediately: redelivery
// cannot fix a malformed body.
func (c *Consumer) processDelivery(ctx context.Context, d amqp.Delivery, handler Handler) {
	c.metrics.IncConsumed()

	var msg models.DocumentMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		c.logger.Error("Failed to decode message, dead-lettering",
			zap.String("queue", c.topology.Queue),
			zap.String("message_id", d.MessageId),
			zap.Error(err),
		)
		c.metrics.IncDeadLettered()
		c.nack(d, false)
		return
	}

	logger := c.logger.With(
		zap.String("queue", c.topology.Queue),
		zap.String("document_id", msg.DocumentID.String()),
		zap.String("correlation_id", msg.CorrelationID),
	)

	if perr := handler(ctx, msg); perr != nil {
		logger.Error("Message processing failed",
			zap.String("failure_kind", string(perr.Kind)),
			zap.Error(perr.Err),
		)
		c.metrics.IncDeadLettered()
		c.nack(d, perr.Requeue())
		return
	}

	if err := d.Ack(false); err != nil {
		logger.Error("Failed to acknowledge message", zap.Error(err))
		return
	}
	c.metrics.IncProcessed()
	logger.Debug("Message acknowledged")
}

func (c *Consumer) nack(d amqp.Delivery, requeue bool) {
	if err := d.Nack(false, requeue); err != nil {
		c.logger.Error("Failed to negatively acknowledge message", zap.Error(err))
	}
}
