// Package memory keeps batch notifications in process, encoded the same way
// the brokers receive them. It backs local runs without a broker.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/headlines/internal/headlines"
)

// Message is one recorded publish.
type Message struct {
	ID    string
	Topic string
	Data  []byte
}

// Publisher records JSON-encoded payloads. Err, when set, fails every Publish.
type Publisher struct {
	mu       sync.Mutex
	messages []Message
	logger   *zap.Logger

	Err error
}

// New returns an empty Publisher.
func New(logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{logger: logger.Named("publisher")}
}

// Publish encodes payload and appends it under topic.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	if topic == "" {
		return "", fmt.Errorf("topic is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return "", p.Err
	}
	id := fmt.Sprintf("%s-%d", topic, len(p.messages)+1)
	p.messages = append(p.messages, Message{ID: id, Topic: topic, Data: data})
	p.logger.Info("batch notification recorded", zap.String("topic", topic), zap.String("message_id", id), zap.Int("bytes", len(data)))
	return id, nil
}

// Messages returns copies of the messages on topic, or on every topic when
// topic is empty.
func (p *Publisher) Messages(topic string) []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Message, 0, len(p.messages))
	for _, m := range p.messages {
		if topic != "" && m.Topic != topic {
			continue
		}
		m.Data = append([]byte(nil), m.Data...)
		out = append(out, m)
	}
	return out
}

// Batches decodes the messages on topic as batch results.
func (p *Publisher) Batches(topic string) ([]headlines.BatchResult, error) {
	msgs := p.Messages(topic)
	out := make([]headlines.BatchResult, 0, len(msgs))
	for _, m := range msgs {
		var res headlines.BatchResult
		if err := json.Unmarshal(m.Data, &res); err != nil {
			return nil, fmt.Errorf("decode message %s: %w", m.ID, err)
		}
		out = append(out, res)
	}
	return out, nil
}
