package rabbit

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Topology names one pipeline's exchange/queue set. Publisher and consumer
// must agree on these names exactly or messages are silently undeliverable.
type Topology struct {
	Exchange           string
	RoutingKey         string
	Queue              string
	DeadLetterExchange string
	DeadLetterQueue    string
}

// Ingest is the upload -> OCR pipeline.
var Ingest = Topology{
	Exchange:           "documents",
	RoutingKey:         "document.uploaded",
	Queue:              "documents.ocr",
	DeadLetterExchange: "documents.dlx",
	DeadLetterQueue:    "documents.ocr.dlq",
}

// Result is the OCR -> metadata-update pipeline.
var Result = Topology{
	Exchange:           "ocr",
	RoutingKey:         "ocr.read",
	Queue:              "ocr.results",
	DeadLetterExchange: "ocr.dlx",
	DeadLetterQueue:    "ocr.results.dlq",
}

// Declarer is the subset of the channel API topology setup needs.
// *amqp.Channel satisfies it.
type Declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// Declare sets up the pipeline's broker topology: dead-letter exchange and
// queue first, then the main exchange and a queue whose rejected messages are
// routed to the DLX. Every declare is idempotent at the broker when repeated
// with identical arguments, so calling this again is wasted round-trips, not
// an error. Any failure is returned and must abort startup of the caller.
func (t Topology) Declare(ch Declarer) error {
	if err := ch.ExchangeDeclare(t.DeadLetterExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dead-letter exchange %s: %w", t.DeadLetterExchange, err)
	}

	if _, err := ch.QueueDeclare(t.DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dead-letter queue %s: %w", t.DeadLetterQueue, err)
	}

	if err := ch.QueueBind(t.DeadLetterQueue, t.DeadLetterQueue, t.DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind dead-letter queue %s: %w", t.DeadLetterQueue, err)
	}

	if err := ch.ExchangeDeclare(t.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", t.Exchange, err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    t.DeadLetterExchange,
		"x-dead-letter-routing-key": t.DeadLetterQueue,
	}
	if _, err := ch.QueueDeclare(t.Queue, true, false, false, false, args); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", t.Queue, err)
	}

	if err := ch.QueueBind(t.Queue, t.RoutingKey, t.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", t.Queue, err)
	}

	return nil
}
