package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Participant is a drafter taking part in a draft.
type Participant struct {
	ID          uuid.UUID `json:"id" yaml:"id"`
	DisplayName string    `json:"display_name" yaml:"display_name"`
}

// ParticipantView is a read-only projection of a participant's draft state
type ParticipantView struct {
	ID              uuid.UUID        `json:"id"`
	DisplayName     string           `json:"display_name"`
	Rank            int              `json:"rank"`
	InitialBudget   decimal.Decimal  `json:"initial_budget"`
	BudgetRemaining decimal.Decimal  `json:"budget_remaining"`
	Spend           decimal.Decimal  `json:"spend"`
	Roster          []Item           `json:"roster"`
	QuotaUsed       map[Category]int `json:"quota_used"`
	QuotaLimits     map[Category]int `json:"quota_limits"`
	RosterCap       int              `json:"roster_cap"`
}
