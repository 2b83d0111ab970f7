package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Publisher writes booking lifecycle events to a Kafka topic. Keys are
// resource ids so events for one resource stay ordered within a partition.
// A nil Publisher is valid and drops everything, which keeps the engine
// usable without a broker.
type Publisher struct {
	writer *kafka.Writer
	logger logrus.FieldLogger
}

// New builds a publisher for the given brokers and topic.
func New(brokers []string, topic string, logger logrus.FieldLogger) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka: topic required")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
	}

	return &Publisher{writer: writer, logger: logger}, nil
}

// PublishJSON marshals payload and writes it keyed by key.
func (p *Publisher) PublishJSON(ctx context.Context, key string, payload any) error {
	if p == nil || p.writer == nil {
		return nil
	}

	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now().UTC(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
