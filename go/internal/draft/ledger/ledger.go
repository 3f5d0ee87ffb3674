// Package ledger holds the append-only history of a draft and the fold that
// derives every participant's holdings from it.
package ledger

import (
	"fmt"

	"github.com/mcdev12/budgetdraft/go/internal/models"
)

// Ledger is the append-only sequence of accepted draft actions.
// It is not safe for concurrent use.
type Ledger struct {
	participants int
	actions      []models.DraftAction
}

// New creates an empty ledger for a draft with the given number of participants
func New(participants int) *Ledger {
	if participants < 1 {
		panic(fmt.Sprintf("ledger: invalid participant count %d", participants))
	}
	return &Ledger{participants: participants}
}

// Append records an accepted action and returns its sequence number. The
// sequence and round fields of the action are assigned here.
func (l *Ledger) Append(action models.DraftAction) int {
	action.Sequence = len(l.actions) + 1
	action.Round = l.RoundOf(action.Sequence)
	l.actions = append(l.actions, action)
	return action.Sequence
}

// RoundOf returns the round a sequence number falls in
func (l *Ledger) RoundOf(sequence int) int {
	return (sequence-1)/l.participants + 1
}

// Len returns the number of accepted actions
func (l *Ledger) Len() int {
	return len(l.actions)
}

// Actions returns a copy of the full history
func (l *Ledger) Actions() []models.DraftAction {
	out := make([]models.DraftAction, len(l.actions))
	copy(out, l.actions)
	return out
}

// At returns the action with the given sequence number
func (l *Ledger) At(sequence int) (models.DraftAction, bool) {
	if sequence < 1 || sequence > len(l.actions) {
		return models.DraftAction{}, false
	}
	return l.actions[sequence-1], true
}
