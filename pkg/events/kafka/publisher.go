package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/wishlist/wishlist-service/pkg/events"
)

// Config describes the brokers and topic the publisher writes to.
type Config struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes event envelopes to a single Kafka topic, keyed by user id.
type Publisher struct {
	writer messageWriter
	now    func() time.Time
}

// NewPublisher creates a Publisher for cfg.
func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka: topic is required")
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Millisecond
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           batchTimeout,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(writer), nil
}

func newPublisher(w messageWriter) *Publisher {
	return &Publisher{writer: w, now: time.Now}
}

// Publish wraps payload in an events.Envelope and writes it synchronously.
func (p *Publisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	envelope, err := events.NewEnvelope(eventType, payload, p.now())
	if err != nil {
		return err
	}
	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "event_id", Value: []byte(envelope.EventID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish %s: %w", eventType, err)
	}
	return nil
}

// Close flushes pending writes and releases the underlying connections.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ events.Publisher = (*Publisher)(nil)
