package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/budgetdraft/go/internal/draft/events"
)

// OutboxEvent is one committed, possibly unsent, draft event
type OutboxEvent struct {
	ID        uuid.UUID       `json:"id"`
	DraftID   uuid.UUID       `json:"draft_id"`
	EventType events.Type     `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at,omitempty"`
}

// Envelope rebuilds the wire envelope the event was committed as
func (e OutboxEvent) Envelope() events.Envelope {
	return events.Envelope{
		EventID:   e.ID,
		EventType: e.EventType,
		DraftID:   e.DraftID,
		Timestamp: e.CreatedAt.UTC(),
		Payload:   e.Payload,
	}
}

// Publisher delivers an outbox event downstream.
type Publisher interface {
	Publish(ctx context.Context, event OutboxEvent) error
}

// Store is what the relay needs from the outbox table
type Store interface {
	FetchOutboxByID(ctx context.Context, id uuid.UUID) (*OutboxEvent, error)
	FetchUnsentOutbox(ctx context.Context, limit int32) ([]OutboxEvent, error)
	MarkOutboxSent(ctx context.Context, ids ...uuid.UUID) error
	CountUnsentOutbox(ctx context.Context) (int64, error)
}
