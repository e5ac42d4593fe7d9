package events

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// KafkaBus writes envelopes to one topic keyed by room, so all events for a
// room land on the same partition in order.
type KafkaBus struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Timeout = 10 * time.Second
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	return cfg
}

func NewKafkaBus(brokers []string, topic string) (*KafkaBus, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewKafkaConfig())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewKafkaBusWithProducer(producer, topic), nil
}

func NewKafkaBusWithProducer(producer sarama.SyncProducer, topic string) *KafkaBus {
	return &KafkaBus{producer: producer, topic: topic}
}

func (b *KafkaBus) Publish(ctx context.Context, env Envelope) error {
	body, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: b.topic,
		Key:   sarama.StringEncoder(env.Room),
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("topic"), Value: []byte(env.Topic)},
		},
		Timestamp: env.OccurredAt,
	}
	if _, _, err := b.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("kafka send: %w", err)
	}
	return nil
}

func (b *KafkaBus) Close() error {
	return b.producer.Close()
}
