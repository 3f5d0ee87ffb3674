package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mcdev12/budgetdraft/go/internal/catalog"
	"github.com/mcdev12/budgetdraft/go/internal/draft/ledger"
	"github.com/mcdev12/budgetdraft/go/internal/draft/order"
	"github.com/mcdev12/budgetdraft/go/internal/models"
)

// State is everything about a draft that is not fixed by its Config.
type State struct {
	Mode              models.DraftMode     `json:"mode"`
	Order             map[uuid.UUID]int    `json:"order,omitempty"`
	Started           bool                 `json:"started"`
	Paused            bool                 `json:"paused"`
	DeadlineRemaining int                  `json:"deadline_remaining"`
	Actions           []models.DraftAction `json:"actions"`
}

// State captures what Restore needs to rebuild this engine
func (e *Engine) State() State {
	return State{
		Mode:              e.sched.mode,
		Order:             e.order(),
		Started:           e.sched.started,
		Paused:            e.sched.paused,
		DeadlineRemaining: e.sched.deadline,
		Actions:           e.ledger.Actions(),
	}
}

// Restore rebuilds an engine by replaying a saved ledger. Every action must
// belong to the participant whose turn it was, otherwise the ledger is
// reported as corrupt.
func Restore(cfg Config, cat *catalog.Catalog, st State) (*Engine, error) {
	if st.Mode != "" {
		cfg.Mode = st.Mode
	}
	e, err := New(cfg, cat)
	if err != nil {
		return nil, err
	}
	if st.Order != nil {
		if _, err := e.SetOrder(st.Order); err != nil {
			return nil, fmt.Errorf("failed to restore order: %w", err)
		}
	}
	if !st.Started {
		if len(st.Actions) > 0 {
			return nil, fmt.Errorf("%w: %d actions recorded before start", ledger.ErrCorruptLedger, len(st.Actions))
		}
		return e, nil
	}

	for i, action := range st.Actions {
		want := cfg.Participants[order.Next(e.sched.mode, e.sched.ranks, i)].ID
		if action.ParticipantID != want {
			return nil, fmt.Errorf("%w: sequence %d acted by %s out of turn", ledger.ErrCorruptLedger, action.Sequence, action.ParticipantID)
		}
	}

	replayed, err := ledger.Replay(st.Actions, cat, cfg.Participants, cfg.Budget)
	if err != nil {
		return nil, err
	}
	if err := checkLimits(e.cfg.Limits, replayed.Holdings); err != nil {
		return nil, err
	}
	e.ledger = replayed.Ledger
	e.holdings = replayed.Holdings
	e.owners = replayed.Owners

	e.sched.started = true
	e.sched.advance(e.ledger.Len())
	e.sched.paused = st.Paused
	if st.DeadlineRemaining > 0 && st.DeadlineRemaining <= e.sched.duration {
		e.sched.deadline = st.DeadlineRemaining
	}
	return e, nil
}

// Rewind returns a new engine holding only the first sequence actions of this
// draft's ledger. The receiver is not modified.
func (e *Engine) Rewind(sequence int) (*Engine, error) {
	if sequence < 0 || sequence > e.ledger.Len() {
		return nil, fmt.Errorf("sequence %d out of range 0..%d", sequence, e.ledger.Len())
	}
	st := e.State()
	st.Actions = st.Actions[:sequence]
	st.DeadlineRemaining = 0
	return Restore(e.cfg, e.catalog, st)
}

// checkLimits rejects replayed holdings that no accepted sequence of picks
// could have produced. Counts only grow, so checking the end state is enough.
func checkLimits(limits Limits, holdings []*ledger.Holdings) error {
	for _, h := range holdings {
		if rosterCap := limits.RosterCap(h.ParticipantID); len(h.Roster) > rosterCap {
			return fmt.Errorf("%w: %s holds %d items over a cap of %d", ledger.ErrCorruptLedger, h.ParticipantID, len(h.Roster), rosterCap)
		}
		for cat, used := range h.QuotaUsed {
			if limit, ok := limits.QuotaLimit(h.ParticipantID, cat); ok && used > limit {
				return fmt.Errorf("%w: %s holds %d %s over a quota of %d", ledger.ErrCorruptLedger, h.ParticipantID, used, cat, limit)
			}
		}
	}
	return nil
}
