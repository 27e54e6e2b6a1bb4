package events

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeMailsyncDirect = "mailsync-direct"
	ExchangeMailsyncEvents = "mailsync-events"
	ExchangeDeadLetter     = "dead-letter"

	QueueSyncRequested = "mailsync-sync-requested"
	QueueSyncEvents    = "mailsync-sync-events"
	DLQSyncRequested   = QueueSyncRequested + "-dlq"
	DLQSyncEvents      = QueueSyncEvents + "-dlq"

	RoutingKeyDeadLetter    = "dead-letter"
	RoutingKeySyncRequested = "mailsync-sync-requested"

	DefaultMessageTTL          = 240 * time.Hour // after TTL message moves to DLQ
	DefaultMaxRetries          = 3
	DefaultPublishTimeout      = 5 * time.Second
	DefaultReconnectBackoff    = time.Second
	DefaultMaxReconnectBackoff = 30 * time.Second
)

type exchange struct {
	name string
	kind string
}

type queueBinding struct {
	queue      string
	dlq        string
	exchange   string
	routingKey string
}

var exchanges = []exchange{
	{ExchangeDeadLetter, amqp091.ExchangeDirect},
	{ExchangeMailsyncEvents, amqp091.ExchangeFanout},
	{ExchangeMailsyncDirect, amqp091.ExchangeDirect},
}

// sync results fan out to QueueSyncEvents, sync requests are routed to the worker queue
var queueBindings = []queueBinding{
	{QueueSyncEvents, DLQSyncEvents, ExchangeMailsyncEvents, ""},
	{QueueSyncRequested, DLQSyncRequested, ExchangeMailsyncDirect, RoutingKeySyncRequested},
}

func declareTopology(channel *amqp091.Channel, messageTTL time.Duration) error {
	for _, ex := range exchanges {
		if err := channel.ExchangeDeclare(ex.name, ex.kind, true, false, false, false, nil); err != nil {
			return errors.Wrapf(err, "Failed to declare exchange %s", ex.name)
		}
	}

	for _, b := range queueBindings {
		if err := declareQueueWithDLQ(channel, b.queue, b.dlq, messageTTL); err != nil {
			return err
		}
		if err := channel.QueueBind(b.queue, b.routingKey, b.exchange, false, nil); err != nil {
			return errors.Wrapf(err, "Failed to bind queue %s to exchange %s", b.queue, b.exchange)
		}
	}
	return nil
}

func declareQueueWithDLQ(channel *amqp091.Channel, queueName, dlqName string, messageTTL time.Duration) error {
	if _, err := channel.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		return errors.Wrapf(err, "Failed to declare DLQ %s", dlqName)
	}
	if err := channel.QueueBind(dlqName, RoutingKeyDeadLetter, ExchangeDeadLetter, false, nil); err != nil {
		return errors.Wrapf(err, "Failed to bind DLQ %s to exchange", dlqName)
	}

	args := amqp091.Table{
		"x-dead-letter-exchange":    ExchangeDeadLetter,
		"x-dead-letter-routing-key": RoutingKeyDeadLetter,
		"x-message-ttl":             messageTTL.Milliseconds(),
	}
	if _, err := channel.QueueDeclare(queueName, true, false, false, false, args); err != nil {
		return errors.Wrapf(err, "Failed to declare queue %s", queueName)
	}
	return nil
}

// routingKeyFor drops the routing key on fanout exchanges.
func routingKeyFor(exchangeName, routingKey string) string {
	for _, ex := range exchanges {
		if ex.name == exchangeName && ex.kind == amqp091.ExchangeFanout {
			return ""
		}
	}
	return routingKey
}
