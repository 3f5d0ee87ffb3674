package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/budgetdraft/go/internal/draft/engine"
	"github.com/mcdev12/budgetdraft/go/internal/draft/events"
)

// DraftEvent is the frame sent to WebSocket clients
type DraftEvent struct {
	ID        string          `json:"id"`        // Event UUID
	DraftID   string          `json:"draft_id"`  // Draft UUID
	Type      EventType       `json:"type"`      // Event type
	Timestamp time.Time       `json:"timestamp"` // Event creation time
	Data      json.RawMessage `json:"data"`      // Event-specific payload
}

// EventType represents the type of draft event
type EventType string

const (
	EventTypeDraftStarted  = EventType(events.TypeDraftStarted)
	EventTypeTurnStarted   = EventType(events.TypeTurnStarted)
	EventTypePickMade      = EventType(events.TypePickMade)
	EventTypeTurnSkipped   = EventType(events.TypeTurnSkipped)
	EventTypeDraftPaused   = EventType(events.TypeDraftPaused)
	EventTypeDraftResumed  = EventType(events.TypeDraftResumed)
	EventTypeDraftOrderSet = EventType(events.TypeDraftOrderSet)
	EventTypeDraftModeSet  = EventType(events.TypeDraftModeSet)

	// Sent only to the connection that asked for it
	EventTypeSnapshot EventType = "Snapshot"
	EventTypeRejected EventType = "Rejected"
)

// RejectedPayload tells a client why its command was refused
type RejectedPayload struct {
	Command string               `json:"command"`
	Code    engine.RejectionCode `json:"code,omitempty"`
	Message string               `json:"message"`
	// Shortfall is set for INSUFFICIENT_BUDGET
	Shortfall string `json:"shortfall,omitempty"`
	// Limit is set for QUOTA_EXCEEDED and ROSTER_FULL
	Limit int `json:"limit,omitempty"`
}

func rejectedPayload(command string, err error) RejectedPayload {
	p := RejectedPayload{Command: command, Message: err.Error()}
	if r, ok := engine.AsRejection(err); ok {
		p.Code = r.Code
		p.Message = r.Message
		p.Limit = r.Limit
		if r.Shortfall != nil {
			p.Shortfall = r.Shortfall.String()
		}
	}
	return p
}

// FromEnvelope converts a committed draft event into a client frame
func FromEnvelope(env events.Envelope) *DraftEvent {
	return &DraftEvent{
		ID:        env.EventID.String(),
		DraftID:   env.DraftID.String(),
		Type:      EventType(env.EventType),
		Timestamp: env.Timestamp,
		Data:      env.Payload,
	}
}

// newDirectEvent builds a frame that never goes through the outbox
func newDirectEvent(draftID uuid.UUID, typ EventType, payload any) (*DraftEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", typ, err)
	}
	return &DraftEvent{
		ID:        uuid.New().String(),
		DraftID:   draftID.String(),
		Type:      typ,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}

// ParseEventPayload parses event data into the appropriate payload struct
func ParseEventPayload(event *DraftEvent) (interface{}, error) {
	var payload interface{}
	switch event.Type {
	case EventTypeDraftStarted:
		payload = &events.DraftStartedPayload{}
	case EventTypeTurnStarted:
		payload = &events.TurnStartedPayload{}
	case EventTypePickMade:
		payload = &events.PickMadePayload{}
	case EventTypeTurnSkipped:
		payload = &events.TurnSkippedPayload{}
	case EventTypeDraftPaused:
		payload = &events.DraftPausedPayload{}
	case EventTypeDraftResumed:
		payload = &events.DraftResumedPayload{}
	case EventTypeDraftOrderSet:
		payload = &events.DraftOrderSetPayload{}
	case EventTypeDraftModeSet:
		payload = &events.DraftModeSetPayload{}
	case EventTypeSnapshot:
		payload = &engine.Snapshot{}
	case EventTypeRejected:
		payload = &RejectedPayload{}
	default:
		return nil, nil // Unknown event type
	}
	if err := json.Unmarshal(event.Data, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
