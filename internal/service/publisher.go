// Package service provides outbound integrations used by the billing core.
// Publish errors are returned wrapped and never logged here; the caller
// decides how to report them.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/poolhall-manager/internal/queue"
)

// dialTimeout bounds how long a stop request can wait on an unreachable broker.
const dialTimeout = 3 * time.Second

// AMQPPublisher publishes domain events to RabbitMQ, opening a connection
// per event.
type AMQPPublisher struct {
	URL string
}

func NewAMQPPublisher(url string) *AMQPPublisher { return &AMQPPublisher{URL: url} }

// PublishSessionStopped sends ev to the durable session.stopped queue as a
// persistent JSON message.
func (p *AMQPPublisher) PublishSessionStopped(ctx context.Context, ev queue.SessionStoppedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal event: %w", err)
	}
	return p.publish(ctx, queue.SessionStoppedQueue, body)
}

func (p *AMQPPublisher) publish(ctx context.Context, queueName string, body []byte) error {
	conn, err := amqp.DialConfig(p.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: declare %s: %w", queueName, err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq: publish to %s: %w", queueName, err)
	}
	return nil
}

// NopPublisher drops events. It is used when EVENTS_ENABLED=false.
type NopPublisher struct{}

func (NopPublisher) PublishSessionStopped(context.Context, queue.SessionStoppedEvent) error {
	return nil
}
