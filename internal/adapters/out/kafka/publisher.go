// Package kafka publishes outbox messages to a Kafka topic.
package kafka

import (
	"context"
	"time"

	"orderflow/internal/core/ports"

	"github.com/IBM/sarama"
)

const (
	HeaderEventID   = "event-id"
	HeaderEventName = "event-name"
)

// Publisher sends every event to one topic keyed by order id, so the events
// of an order land on one partition in the order they were raised.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewSaramaProducer opens a synchronous producer that waits for all in-sync
// replicas.
func NewSaramaProducer(brokers []string, clientID string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.ClientID = clientID
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Idempotent = true
	config.Producer.Retry.Max = 3
	config.Net.MaxOpenRequests = 1
	config.Producer.Timeout = 5 * time.Second
	return sarama.NewSyncProducer(brokers, config)
}

func NewPublisher(producer sarama.SyncProducer, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic}
}

func (p *Publisher) Publish(ctx context.Context, msg ports.OutboxMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, _, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(msg.AggregateID.String()),
		Value:     sarama.ByteEncoder(msg.Payload),
		Timestamp: msg.OccurredAt,
		Headers: []sarama.RecordHeader{
			{Key: []byte(HeaderEventID), Value: []byte(msg.ID.String())},
			{Key: []byte(HeaderEventName), Value: []byte(msg.EventName)},
		},
	})
	return err
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}
