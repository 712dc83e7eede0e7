// Package kafka publishes batch notifications to Kafka topics.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
)

// Config names the brokers to dial.
type Config struct {
	Brokers  []string
	ClientID string
}

// Publisher sends JSON payloads through a synchronous producer.
type Publisher struct {
	producer sarama.SyncProducer
}

// NewSaramaConfig returns the producer settings the publisher relies on.
func NewSaramaConfig(clientID string) *sarama.Config {
	sc := sarama.NewConfig()
	if clientID != "" {
		sc.ClientID = clientID
	}
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 3
	sc.Producer.Return.Successes = true
	return sc
}

// NewProducer dials the brokers.
func NewProducer(cfg Config) (sarama.SyncProducer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}
	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewSaramaConfig(cfg.ClientID))
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return producer, nil
}

// New wraps producer.
func New(producer sarama.SyncProducer) *Publisher {
	return &Publisher{producer: producer}
}

// Publish marshals payload to JSON and waits for the broker ack. The returned
// ID is topic/partition/offset.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	if p.producer == nil {
		return "", fmt.Errorf("kafka publisher is not configured")
	}
	if topic == "" {
		return "", fmt.Errorf("topic is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("content_type"), Value: []byte("application/json")},
		},
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", topic, err)
	}
	return fmt.Sprintf("%s/%d/%d", topic, partition, offset), nil
}

// Close flushes and closes the producer.
func (p *Publisher) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
