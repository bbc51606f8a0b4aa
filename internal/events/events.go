package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

const (
	eventSource  = "exam-admin-service"
	eventVersion = "1.0"
)

// Event types published by the service.
const (
	EventCourseDeleted  = "course.deleted"
	EventExamStarted    = "exam.started"
	EventExamEnded      = "exam.ended"
	EventExamTerminated = "exam.terminated"
)

// Event is the envelope for all domain events on the wire.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewEvent builds an event envelope with a fresh ID and timestamp.
func NewEvent(eventType string, data interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    eventSource,
		Version:   eventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher publishes domain events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// KafkaEventPublisher publishes events to a Kafka topic via watermill.
type KafkaEventPublisher struct {
	publisher message.Publisher
	topic     string
	logger    *slog.Logger
}

func NewKafkaEventPublisher(brokers []string, topic string, logger *slog.Logger) (*KafkaEventPublisher, error) {
	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: kafka.DefaultMarshaler{},
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return &KafkaEventPublisher{
		publisher: publisher,
		topic:     topic,
		logger:    logger,
	}, nil
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", event.Type)
	msg.Metadata.Set("source", event.Source)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.Type, err)
	}

	p.logger.Debug("Event published",
		"event_id", event.ID,
		"event_type", event.Type,
		"topic", p.topic)

	return nil
}

func (p *KafkaEventPublisher) Close() error {
	return p.publisher.Close()
}

// LoggerEventPublisher logs events instead of publishing them. Used when
// no Kafka brokers are configured.
type LoggerEventPublisher struct {
	logger *slog.Logger
}

func NewLoggerEventPublisher(logger *slog.Logger) *LoggerEventPublisher {
	return &LoggerEventPublisher{logger: logger}
}

func (p *LoggerEventPublisher) Publish(ctx context.Context, event *Event) error {
	p.logger.InfoContext(ctx, "Domain event",
		"event_id", event.ID,
		"event_type", event.Type,
		"data", event.Data)
	return nil
}

func (p *LoggerEventPublisher) Close() error { return nil }

// MockEventPublisher records published events for tests.
type MockEventPublisher struct {
	mu     sync.Mutex
	events []*Event
	logger *slog.Logger
}

func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{logger: logger}
}

func (p *MockEventPublisher) Publish(ctx context.Context, event *Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *MockEventPublisher) GetPublishedEvents() []*Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Event, len(p.events))
	copy(out, p.events)
	return out
}

func (p *MockEventPublisher) ClearEvents() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

func (p *MockEventPublisher) Close() error { return nil }
