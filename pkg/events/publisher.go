package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope wraps every published payload.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Publisher delivers domain events to downstream consumers. key selects the partition.
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload any) error
}

// NewEnvelope serializes payload into an Envelope with a fresh event id.
func NewEnvelope(eventType string, payload any, now time.Time) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: now.UTC(),
		Payload:    raw,
	}, nil
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, string, any) error { return nil }
