package rabbit

import (
	"fmt"
	"net/url"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"go-docflow/internal/config"
	"go-docflow/internal/observability"
)

// Client manages a RabbitMQ connection and channel, recreating both lazily
// when either has been closed. It does not retry on its own; callers that
// can meaningfully retry (publisher, storage-backed workers) own that.
type Client struct {
	mu     sync.Mutex
	cfg    config.BrokerConfig
	logger *logrus.Logger
	conn   *amqp.Connection
	ch     *amqp.Channel
}

func NewClient(cfg config.BrokerConfig) *Client {
	return &Client{
		cfg:    cfg,
		logger: observability.GetLogger(),
	}
}

// Channel returns a usable channel, dialing the broker and opening a channel
// on first use. A closed connection or channel is transparently replaced on
// the next call. Connection failures are returned, never swallowed.
func (c *Client) Channel() (*amqp.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.conn.IsClosed() {
		conn, err := amqp.Dial(c.amqpURL())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to broker: %w", err)
		}
		c.conn = conn
		c.ch = nil
		c.logger.WithFields(logrus.Fields{
			"host": c.cfg.Host,
			"port": c.cfg.Port,
		}).Info("Connected to broker")
	}

	if c.ch == nil || c.ch.IsClosed() {
		ch, err := c.conn.Channel()
		if err != nil {
			return nil, fmt.Errorf("failed to open channel: %w", err)
		}
		c.ch = ch
	}

	return c.ch, nil
}

// Close shuts the channel and connection down. Safe to call when nothing was
// ever opened.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ch != nil && !c.ch.IsClosed() {
		if err := c.ch.Close(); err != nil {
			c.logger.WithError(err).Warn("Failed to close channel")
		}
		c.ch = nil
	}
	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			return fmt.Errorf("failed to close connection: %w", err)
		}
		c.conn = nil
	}
	return nil
}

func (c *Client) amqpURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s",
		url.QueryEscape(c.cfg.Username),
		url.QueryEscape(c.cfg.Password),
		c.cfg.Host,
		c.cfg.Port,
		url.PathEscape(c.cfg.VirtualHost),
	)
}
