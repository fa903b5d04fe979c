// Package producer publishes alert lifecycle events to Kafka.
package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/events"
)

const (
	// writeTimeout is the maximum time to wait for a Kafka write operation.
	writeTimeout = 10 * time.Second
)

// Publisher is implemented by anything that can publish alert events.
// NoOp stands in when Kafka is not configured.
type Publisher interface {
	Publish(ctx context.Context, event *events.AlertEvent) error
	Close() error
}

// Producer wraps a Kafka writer and publishes alert events keyed by alert_id.
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a new Kafka producer with the specified brokers and topic.
// The producer is configured for at-least-once delivery semantics with synchronous writes.
func NewProducer(brokers string, topic string) (*Producer, error) {
	if brokers == "" {
		return nil, fmt.Errorf("brokers cannot be empty")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	brokerList := strings.Split(brokers, ",")
	for i := range brokerList {
		brokerList[i] = strings.TrimSpace(brokerList[i])
	}

	slog.Info("Initializing Kafka producer",
		"brokers", brokerList,
		"topic", topic,
	)

	// Try to create topic if it doesn't exist (best effort, may fail silently)
	createTopicIfNotExists(brokerList[0], topic)

	// Hash balancer keys partitions by alert_id so events for one alert stay
	// ordered within a partition.
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokerList...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: writeTimeout,
		RequiredAcks: kafka.RequireOne, // At-least-once semantics (waits for leader ack)
		Async:        false,            // Synchronous writes for reliability and error handling
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}, nil
}

// Publish serializes an alert event to JSON and publishes it to Kafka.
// The message is keyed by alert_id for partition distribution.
func (p *Producer) Publish(ctx context.Context, event *events.AlertEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal alert event to JSON",
			"alert_id", event.AlertID,
			"event_type", event.EventType,
			"error", err,
		)
		return fmt.Errorf("failed to marshal alert event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.AlertID),
		Value: payload,
		Headers: []kafka.Header{
			{
				Key:   "schema_version",
				Value: []byte(fmt.Sprintf("%d", event.SchemaVersion)),
			},
			{
				Key:   "event_type",
				Value: []byte(event.EventType),
			},
		},
		Time: time.Unix(event.OccurredAt, 0),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		slog.Error("Failed to write message to Kafka",
			"alert_id", event.AlertID,
			"topic", p.topic,
			"error", err,
		)
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	slog.Info("Published alert event",
		"alert_id", event.AlertID,
		"event_type", event.EventType,
		"wave", event.Wave,
	)

	return nil
}

// Close gracefully closes the Kafka writer and releases resources.
func (p *Producer) Close() error {
	slog.Info("Closing Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		slog.Error("Error closing Kafka producer", "error", err)
		return err
	}
	return nil
}

// NoOp is a Publisher that drops events. Used when Kafka brokers are not
// configured, so callers never branch on whether eventing is enabled.
type NoOp struct{}

func (NoOp) Publish(ctx context.Context, event *events.AlertEvent) error { return nil }
func (NoOp) Close() error                                                { return nil }

var _ Publisher = (*Producer)(nil)
var _ Publisher = NoOp{}
