// Package notify delivers admin notifications to a RabbitMQ queue.
// Delivery is at-most-once; failures are returned for the caller to log.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/spec-kit/redemption-queue/internal/events"
)

// AMQPNotifier publishes events as JSON to a durable queue on the default exchange.
type AMQPNotifier struct {
	url   string
	queue string
	now   func() time.Time
}

// NewAMQPNotifier builds a notifier. Each Notify dials its own connection.
func NewAMQPNotifier(url, queue string) *AMQPNotifier {
	return &AMQPNotifier{url: url, queue: queue, now: time.Now}
}

// Notify publishes event as a persistent message.
func (n *AMQPNotifier) Notify(ctx context.Context, event events.Event) error {
	if n.url == "" || n.queue == "" {
		return errors.New("amqp notifier not configured")
	}
	pub, err := n.publishing(event)
	if err != nil {
		return err
	}

	conn, err := amqp.Dial(n.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(n.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("amqp queue declare: %w", err)
	}
	if err := ch.PublishWithContext(ctx, "", n.queue, false, false, pub); err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

func (n *AMQPNotifier) publishing(event events.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         string(event.Type),
		Timestamp:    n.now().UTC(),
		Body:         body,
	}, nil
}
