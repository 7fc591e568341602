package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/tabsplit/internal/config"
)

// IntegrationEventProducer publishes split state changes for downstream consumers.
// Messages are keyed by bill id and hash-balanced so each bill stays on one partition.
type IntegrationEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewIntegrationEventProducer dials the brokers and ensures the integration topic exists
func NewIntegrationEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*IntegrationEventProducer, error) {
	if cfg.IntegrationTopic == "" {
		return nil, fmt.Errorf("kafka integration topic is not configured")
	}

	if err := ensureTopic(ctx, cfg, cfg.IntegrationTopic, logger); err != nil {
		return nil, fmt.Errorf("integration producer: %w", err)
	}

	return NewIntegrationEventProducerWithWriter(logger, newBillKeyedWriter(cfg, cfg.IntegrationTopic), cfg.IntegrationTopic), nil
}

// NewIntegrationEventProducerWithWriter wraps an existing writer
func NewIntegrationEventProducerWithWriter(logger *slog.Logger, writer KafkaWriter, topic string) *IntegrationEventProducer {
	return &IntegrationEventProducer{
		logger: logger,
		writer: writer,
		topic:  topic,
	}
}

// Publish writes value as JSON. The write is synchronous so the outbox row is
// only marked processed once the broker has acknowledged it.
func (p *IntegrationEventProducer) Publish(ctx context.Context, key string, value any) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal integration event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish integration event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish integration event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published integration event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *IntegrationEventProducer) Close() error {
	p.logger.Info("Closing integration event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close integration kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
