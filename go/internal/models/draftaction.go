package models

import (
	"github.com/google/uuid"
)

// ActionKind defines what a ledger entry records.
type ActionKind string

const (
	ActionKindPick ActionKind = "PICK"
	ActionKindSkip ActionKind = "SKIP"
)

// DraftAction represents a single accepted pick or skip in a draft ledger.
type DraftAction struct {
	Sequence      int        `json:"sequence"` // 1-based, gapless
	Round         int        `json:"round"`
	ParticipantID uuid.UUID  `json:"participant_id"`
	Kind          ActionKind `json:"kind"`
	ItemID        *ItemID    `json:"item_id,omitempty"` // set iff Kind is PICK
	Forced        bool       `json:"forced"`            // synthesized by a turn timeout
}
