package models

import (
	"fmt"

	"github.com/google/uuid"
)

// DraftMode defines how turns rotate between rounds.
type DraftMode string

const (
	DraftModeLinear DraftMode = "LINEAR"
	DraftModeSnake  DraftMode = "SNAKE"
)

// ParseDraftMode converts a raw mode string into a DraftMode
func ParseDraftMode(s string) (DraftMode, error) {
	switch m := DraftMode(s); m {
	case DraftModeLinear, DraftModeSnake:
		return m, nil
	default:
		return "", fmt.Errorf("unknown draft mode %q", s)
	}
}

// DraftStatus defines the status of a draft.
type DraftStatus string

const (
	DraftStatusNotStarted DraftStatus = "NOT_STARTED"
	DraftStatusInProgress DraftStatus = "IN_PROGRESS"
	DraftStatusPaused     DraftStatus = "PAUSED"
)

// TurnState is the minimal state delta reported after every accepted intent.
type TurnState struct {
	CurrentParticipantID uuid.UUID   `json:"current_participant_id"`
	Round                int         `json:"round"`
	DeadlineRemaining    int         `json:"deadline_remaining"`
	Status               DraftStatus `json:"status"`
}
