// Package events publishes search-completed notifications to Kafka or Redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"JobCopilot/internal/domain"
	"JobCopilot/internal/ports"
)

// Event type names carried in the message key and headers.
const (
	TypeSearchCompleted = "search.completed"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher wraps a Kafka writer for publishing search events.
type KafkaPublisher struct {
	writer messageWriter
}

var _ ports.EventPublisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher for the given broker and topic.
func NewKafkaPublisher(broker, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(broker),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: false,
		},
	}
}

// NewKafkaPublisherWithWriter builds a publisher using a custom writer (tests).
func NewKafkaPublisherWithWriter(writer messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// Close shuts down the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// PublishSearchCompleted writes one JSON message keyed by the event type.
func (p *KafkaPublisher) PublishSearchCompleted(ctx context.Context, event domain.SearchCompleted) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode search event: %w", err)
	}

	msg := kafka.Message{
		Key:     []byte(TypeSearchCompleted),
		Value:   payload,
		Time:    time.Now().UTC(),
		Headers: []kafka.Header{{Key: "type", Value: []byte(TypeSearchCompleted)}},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write search event: %w", err)
	}
	return nil
}
