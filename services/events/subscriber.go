package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/tracing"
	"github.com/customeros/mailsync/internal/utils"
)

const (
	defaultConsumeRetryDelay = 5 * time.Second
	ackAttempts              = 5
)

type SubscriberConfig struct {
	// Prefetch bounds unacknowledged deliveries per queue; account syncs are long running.
	Prefetch          int
	ConsumeRetryDelay time.Duration
}

type RabbitMQSubscriber struct {
	connection      *amqp091.Connection
	connectionMutex sync.Mutex
	url             string
	logger          logger.Logger
	config          SubscriberConfig
	listeners       map[string]interfaces.EventListener
	listenerMutex   sync.RWMutex
	closed          chan struct{}
}

func NewRabbitMQSubscriber(rabbitmqURL string, logger logger.Logger, config *SubscriberConfig) (*RabbitMQSubscriber, error) {
	if config == nil {
		config = &SubscriberConfig{Prefetch: 1, ConsumeRetryDelay: defaultConsumeRetryDelay}
	}

	subscriber := &RabbitMQSubscriber{
		url:       rabbitmqURL,
		logger:    logger,
		config:    *config,
		listeners: make(map[string]interfaces.EventListener),
		closed:    make(chan struct{}),
	}

	if err := subscriber.connect(); err != nil {
		return nil, err
	}
	return subscriber, nil
}

func (r *RabbitMQSubscriber) RegisterListener(listener interfaces.EventListener) {
	r.listenerMutex.Lock()
	defer r.listenerMutex.Unlock()

	eventType := listener.GetEventType()
	r.listeners[eventType] = listener
	r.logger.Infof("Registered listener for event type: %s on queue: %s", eventType, listener.GetQueueName())
}

// ListenQueue consumes queueName in the background until the subscriber is closed.
func (r *RabbitMQSubscriber) ListenQueue(queueName string) error {
	go r.consume(queueName)
	return nil
}

func (r *RabbitMQSubscriber) consume(queueName string) {
	for {
		if r.isClosed() {
			return
		}

		if err := r.consumeOnce(queueName); err != nil {
			r.logger.Errorf("Consumer on queue %s stopped: %v. Retrying...", queueName, err)
		} else if !r.isClosed() {
			r.logger.Warnf("Connection lost for queue %s. Reconnecting...", queueName)
		}

		select {
		case <-r.closed:
			return
		case <-time.After(r.config.ConsumeRetryDelay):
		}
	}
}

func (r *RabbitMQSubscriber) consumeOnce(queueName string) error {
	r.connectionMutex.Lock()
	if r.connection == nil || r.connection.IsClosed() {
		r.connectionMutex.Unlock()
		if err := r.connect(); err != nil {
			return err
		}
		r.connectionMutex.Lock()
	}
	channel, err := r.connection.Channel()
	r.connectionMutex.Unlock()
	if err != nil {
		return errors.Wrapf(err, "failed to open channel for queue %s", queueName)
	}
	defer channel.Close()

	if r.config.Prefetch > 0 {
		if err := channel.Qos(r.config.Prefetch, 0, false); err != nil {
			return errors.Wrap(err, "failed to set prefetch")
		}
	}

	deliveries, err := channel.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to register consumer on queue %s", queueName)
	}

	r.logger.Infof("Listening for messages on queue %s", queueName)
	for {
		select {
		case <-r.closed:
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			r.handleMessage(d, queueName)
		}
	}
}

func (r *RabbitMQSubscriber) handleMessage(d amqp091.Delivery, queueName string) {
	defer tracing.RecoverAndLogToJaeger(r.logger)

	err := r.processMessage(d.Body, queueName)
	if err != nil {
		r.logger.Errorf("Failed to process message on queue %s: %v", queueName, err)
	}
	r.retryAckNack(d, err == nil)
}

func (r *RabbitMQSubscriber) processMessage(body []byte, queueName string) error {
	var event dto.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return errors.Wrap(err, "failed to unmarshal message")
	}

	ctx := utils.WithCustomContext(context.Background(), &utils.CustomContext{
		AppSource: event.Metadata.AppSource,
		UserId:    event.Metadata.UserId,
	})
	ctx, span := tracing.StartRabbitMQMessageTracerSpanWithHeader(ctx, "RabbitMQSubscriber.ProcessMessage", event.Metadata.UberTraceId)
	defer span.Finish()
	span.LogKV("event_type", event.Event.EventType, "queue_name", queueName)

	r.listenerMutex.RLock()
	listener, exists := r.listeners[event.Event.EventType]
	r.listenerMutex.RUnlock()

	if !exists {
		r.logger.Infof("No listener found for event type: %s on queue: %s", event.Event.EventType, queueName)
		return nil
	}
	if listener.GetQueueName() != queueName {
		r.logger.Warnf("Event type %s received on wrong queue. Expected %s, got %s",
			event.Event.EventType, listener.GetQueueName(), queueName)
		return nil
	}

	if err := listener.Handle(ctx, event); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (r *RabbitMQSubscriber) connect() error {
	r.connectionMutex.Lock()
	defer r.connectionMutex.Unlock()

	connection, err := amqp091.Dial(r.url)
	if err != nil {
		return errors.Wrap(err, "Failed to connect to RabbitMQ")
	}
	r.connection = connection
	return nil
}

func (r *RabbitMQSubscriber) retryAckNack(d amqp091.Delivery, ack bool) {
	retryDelay := 100 * time.Millisecond

	for i := 0; i < ackAttempts; i++ {
		var err error
		if ack {
			err = d.Ack(false)
		} else {
			err = d.Nack(false, false)
		}
		if err == nil {
			return
		}
		time.Sleep(retryDelay)
	}

	action := "negative acknowledge"
	if ack {
		action = "acknowledge"
	}
	r.logger.Errorf("Failed to %s message after %d attempts", action, ackAttempts)
}

func (r *RabbitMQSubscriber) isClosed() bool {
	select {
	case <-r.closed:
		return true
	default:
		return false
	}
}

func (r *RabbitMQSubscriber) Close() error {
	r.connectionMutex.Lock()
	defer r.connectionMutex.Unlock()

	if !r.isClosed() {
		close(r.closed)
	}
	if r.connection != nil && !r.connection.IsClosed() {
		return r.connection.Close()
	}
	return nil
}
