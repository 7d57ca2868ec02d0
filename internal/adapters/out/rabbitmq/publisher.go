// Package rabbitmq publishes outbox messages to a RabbitMQ topic exchange
// with publisher confirms.
package rabbitmq

import (
	"context"
	"errors"
	"strings"
	"sync"

	"orderflow/internal/core/ports"

	amqp "github.com/rabbitmq/amqp091-go"
)

var ErrNacked = errors.New("publish NACK from broker")

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher routes each event to "order.<EventName>" on the exchange and
// waits for the broker to confirm it. Publish calls are serialized so that
// confirmations arrive in publishing order.
type Publisher struct {
	conn     *amqp.Connection
	ch       channel
	acks     <-chan amqp.Confirmation
	exchange string
	mu       sync.Mutex
}

// Dial connects, declares the durable topic exchange and enables confirms.
func Dial(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err = ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err = ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, err
	}

	p := NewPublisher(ch, ch.NotifyPublish(make(chan amqp.Confirmation, 1)), exchange)
	p.conn = conn
	return p, nil
}

func NewPublisher(ch channel, acks <-chan amqp.Confirmation, exchange string) *Publisher {
	return &Publisher{ch: ch, acks: acks, exchange: exchange}
}

func RoutingKey(eventName string) string {
	return "order." + strings.ToLower(eventName)
}

func (p *Publisher) Publish(ctx context.Context, msg ports.OutboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(msg.EventName), false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    msg.ID.String(),
		Type:         msg.EventName,
		Timestamp:    msg.OccurredAt,
		Headers:      amqp.Table{"order-id": msg.AggregateID.String()},
		Body:         msg.Payload,
	})
	if err != nil {
		return err
	}

	select {
	case conf, ok := <-p.acks:
		if !ok {
			return amqp.ErrClosed
		}
		if !conf.Ack {
			return ErrNacked
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Publisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
	}
	return err
}
