package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mcdev12/budgetdraft/go/internal/models"
)

// Event payload types shared between the orchestrator, outbox and gateway packages

// Type names a draft event. It is also the last token of the stream subject.
type Type string

const (
	TypeDraftStarted  Type = "DraftStarted"
	TypeTurnStarted   Type = "TurnStarted"
	TypePickMade      Type = "PickMade"
	TypeTurnSkipped   Type = "TurnSkipped"
	TypeDraftPaused   Type = "DraftPaused"
	TypeDraftResumed  Type = "DraftResumed"
	TypeDraftOrderSet Type = "DraftOrderSet"
	TypeDraftModeSet  Type = "DraftModeSet"
)

// Types lists every event type the draft emits
var Types = []Type{
	TypeDraftStarted, TypeTurnStarted, TypePickMade, TypeTurnSkipped,
	TypeDraftPaused, TypeDraftResumed, TypeDraftOrderSet, TypeDraftModeSet,
}

// DraftStartedPayload is the payload for a DraftStarted event
type DraftStartedPayload struct {
	DraftID      uuid.UUID        `json:"draft_id"`
	Mode         models.DraftMode `json:"mode"`
	Participants int              `json:"participants"`
	TurnSeconds  int              `json:"turn_seconds"`
	StartedAt    time.Time        `json:"started_at"`
}

// TurnStartedPayload is the payload for a TurnStarted event
type TurnStartedPayload struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	DisplayName   string    `json:"display_name"`
	Round         int       `json:"round"`
	Sequence      int       `json:"sequence"` // sequence the next action will take
	TurnSeconds   int       `json:"turn_seconds"`
	StartedAt     time.Time `json:"started_at"`
	TimeoutAt     time.Time `json:"timeout_at"`
}

// PickMadePayload is the payload for a PickMade event
type PickMadePayload struct {
	Sequence        int             `json:"sequence"`
	Round           int             `json:"round"`
	ParticipantID   uuid.UUID       `json:"participant_id"`
	DisplayName     string          `json:"display_name"`
	ItemID          models.ItemID   `json:"item_id"`
	ItemName        string          `json:"item_name"`
	Category        models.Category `json:"category"`
	Grade           models.Grade    `json:"grade"`
	Price           decimal.Decimal `json:"price"`
	BudgetRemaining decimal.Decimal `json:"budget_remaining"`
	MadeAt          time.Time       `json:"made_at"`
}

// TurnSkippedPayload is the payload for a TurnSkipped event
type TurnSkippedPayload struct {
	Sequence      int       `json:"sequence"`
	Round         int       `json:"round"`
	ParticipantID uuid.UUID `json:"participant_id"`
	DisplayName   string    `json:"display_name"`
	Forced        bool      `json:"forced"`
	SkippedAt     time.Time `json:"skipped_at"`
}

// DraftPausedPayload is the payload for a DraftPaused event
type DraftPausedPayload struct {
	DraftID           uuid.UUID `json:"draft_id"`
	PausedAt          time.Time `json:"paused_at"`
	DeadlineRemaining int       `json:"deadline_remaining"`
}

// DraftResumedPayload is the payload for a DraftResumed event
type DraftResumedPayload struct {
	DraftID           uuid.UUID `json:"draft_id"`
	ResumedAt         time.Time `json:"resumed_at"`
	DeadlineRemaining int       `json:"deadline_remaining"`
	TimeoutAt         time.Time `json:"timeout_at"`
}

// DraftOrderSetPayload is the payload for a DraftOrderSet event
type DraftOrderSetPayload struct {
	Order map[uuid.UUID]int `json:"order"`
}

// DraftModeSetPayload is the payload for a DraftModeSet event
type DraftModeSetPayload struct {
	Mode models.DraftMode `json:"mode"`
}
