package events

import (
	"context"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPBus publishes to a RabbitMQ topic exchange. The routing key is
// "<topic>.<room>" with separators turned into dots, e.g.
// "booking.confirmed.user.42".
type AMQPBus struct {
	conn     *amqp.Connection
	ch       amqpChannel
	closeCh  func() error
	exchange string
}

func NewAMQPBus(url, exchange string) (*AMQPBus, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPBus{conn: conn, ch: ch, closeCh: ch.Close, exchange: exchange}, nil
}

func RoutingKey(env Envelope) string {
	return strings.ReplaceAll(env.Topic+"."+env.Room, ":", ".")
}

func (b *AMQPBus) Publish(ctx context.Context, env Envelope) error {
	body, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return b.ch.PublishWithContext(ctx, b.exchange, RoutingKey(env), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    env.OccurredAt,
		Type:         env.Topic,
		Body:         body,
	})
}

func (b *AMQPBus) Close() error {
	if b.closeCh != nil {
		_ = b.closeCh()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
