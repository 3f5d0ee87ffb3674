package engine

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mcdev12/budgetdraft/go/internal/draft/ledger"
	"github.com/mcdev12/budgetdraft/go/internal/models"
)

// Snapshot is an immutable read-only projection of a draft. Nothing in it
// aliases engine state.
type Snapshot struct {
	Status               models.DraftStatus       `json:"status"`
	Mode                 models.DraftMode         `json:"mode"`
	Order                map[uuid.UUID]int        `json:"order"`
	CurrentParticipantID uuid.UUID                `json:"current_participant_id"`
	Round                int                      `json:"round"`
	DeadlineRemaining    int                      `json:"deadline_remaining"`
	TurnSeconds          int                      `json:"turn_seconds"`
	Paused               bool                     `json:"paused"`
	Budget               decimal.Decimal          `json:"budget"`
	Participants         []models.ParticipantView `json:"participants"`
	Ledger               []models.DraftAction     `json:"ledger"`
	Available            []models.Item            `json:"available"`
}

func (e *Engine) Snapshot() Snapshot {
	turn := e.Turn()
	snap := Snapshot{
		Status:               turn.Status,
		Mode:                 e.sched.mode,
		Order:                e.order(),
		CurrentParticipantID: turn.CurrentParticipantID,
		Round:                turn.Round,
		DeadlineRemaining:    turn.DeadlineRemaining,
		TurnSeconds:          e.sched.duration,
		Paused:               e.sched.paused,
		Budget:               e.cfg.Budget,
		Participants:         e.Participants(),
		Ledger:               e.ledger.Actions(),
	}
	for _, item := range e.catalog.Items() {
		if _, taken := e.owners[item.ID]; !taken {
			snap.Available = append(snap.Available, *item)
		}
	}
	// best grade first, catalog order within a grade
	sort.SliceStable(snap.Available, func(i, j int) bool {
		return snap.Available[i].Grade.Rank() < snap.Available[j].Grade.Rank()
	})
	return snap
}

// Participants projects every participant's holdings in seat order
func (e *Engine) Participants() []models.ParticipantView {
	views := make([]models.ParticipantView, len(e.holdings))
	for i, h := range e.holdings {
		views[i] = e.view(i, h)
	}
	return views
}

// Participant projects a single participant's holdings
func (e *Engine) Participant(participantID uuid.UUID) (models.ParticipantView, bool) {
	slot, ok := e.slots[participantID]
	if !ok {
		return models.ParticipantView{}, false
	}
	return e.view(slot, e.holdings[slot]), true
}

// Actions returns the full ledger
func (e *Engine) Actions() []models.DraftAction {
	return e.ledger.Actions()
}

func (e *Engine) view(slot int, h *ledger.Holdings) models.ParticipantView {
	v := models.ParticipantView{
		ID:              h.ParticipantID,
		DisplayName:     e.cfg.Participants[slot].DisplayName,
		Rank:            e.sched.ranks[slot],
		InitialBudget:   h.InitialBudget,
		BudgetRemaining: h.BudgetRemaining,
		Spend:           h.Spend,
		Roster:          make([]models.Item, len(h.Roster)),
		QuotaUsed:       make(map[models.Category]int, len(h.QuotaUsed)),
		QuotaLimits:     quotaLimits(e.cfg.Limits, h.ParticipantID),
		RosterCap:       e.cfg.Limits.RosterCap(h.ParticipantID),
	}
	for i, item := range h.Roster {
		v.Roster[i] = *item
	}
	for cat, n := range h.QuotaUsed {
		v.QuotaUsed[cat] = n
	}
	return v
}

func (e *Engine) order() map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(e.cfg.Participants))
	for slot, p := range e.cfg.Participants {
		out[p.ID] = e.sched.ranks[slot]
	}
	return out
}
