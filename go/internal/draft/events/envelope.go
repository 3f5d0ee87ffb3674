package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultSubjectPrefix is the JetStream subject prefix draft events are published under
const DefaultSubjectPrefix = "draft.events"

// Envelope wraps a payload with the metadata every consumer needs.
type Envelope struct {
	EventID   uuid.UUID       `json:"eventId"`
	EventType Type            `json:"eventType"`
	DraftID   uuid.UUID       `json:"draftId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// New marshals payload into a fresh envelope
func New(draftID uuid.UUID, eventType Type, at time.Time, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:   uuid.New(),
		EventType: eventType,
		DraftID:   draftID,
		Timestamp: at.UTC(),
		Payload:   data,
	}, nil
}

// Decode unmarshals the payload into v
func (e Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", e.EventType, err)
	}
	return nil
}

// Subject returns the stream subject for an event type
func Subject(prefix string, eventType Type) string {
	return fmt.Sprintf("%s.%s", prefix, eventType)
}
