// Package events publishes marketplace domain events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Event types
const (
	TypeVerificationApproved = "verification.approved"
	TypeVerificationRejected = "verification.rejected"
	TypeOrderCreated         = "order.created"
)

// Event is the envelope written to the topic
type Event struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// Publisher emits domain events. Key selects the partition so events about
// the same aggregate stay ordered.
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload any) error
	Close() error
}

// messageWriter is the part of kafka.Writer the publisher uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer messageWriter
	logger *zap.Logger
	now    func() time.Time
}

// NewKafkaPublisher creates a Publisher writing to topic on brokers
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) Publisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
	return newKafkaPublisher(writer, logger)
}

func newKafkaPublisher(writer messageWriter, logger *zap.Logger) *kafkaPublisher {
	return &kafkaPublisher{writer: writer, logger: logger, now: time.Now}
}

func (p *kafkaPublisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	event := Event{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Payload:   raw,
		Timestamp: p.now().UTC(),
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	p.logger.Debug("Event published",
		zap.String("event_type", eventType),
		zap.String("event_id", event.EventID),
		zap.String("key", key),
	)
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

type nopPublisher struct{}

// NewNopPublisher returns a Publisher that drops every event, used when no
// brokers are configured
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	return nil
}

func (nopPublisher) Close() error {
	return nil
}
