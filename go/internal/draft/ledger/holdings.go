package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mcdev12/budgetdraft/go/internal/catalog"
	"github.com/mcdev12/budgetdraft/go/internal/models"
)

// ErrCorruptLedger is returned by Replay when a history could not have been
// produced by a valid sequence of accepted actions.
var ErrCorruptLedger = errors.New("corrupt ledger")

// Holdings is one participant's derived draft state.
type Holdings struct {
	ParticipantID   uuid.UUID
	InitialBudget   decimal.Decimal
	BudgetRemaining decimal.Decimal
	Spend           decimal.Decimal
	Roster          []*models.Item // acquisition order, shared with the catalog
	QuotaUsed       map[models.Category]int
}

// NewHoldings returns empty holdings with the full budget available
func NewHoldings(participantID uuid.UUID, budget decimal.Decimal) *Holdings {
	return &Holdings{
		ParticipantID:   participantID,
		InitialBudget:   budget,
		BudgetRemaining: budget,
		Spend:           decimal.Zero,
		QuotaUsed:       make(map[models.Category]int),
	}
}

// Apply folds one accepted action into the holdings. item must be the catalog
// item named by a PICK and is ignored for a SKIP.
func (h *Holdings) Apply(action models.DraftAction, item *models.Item) {
	if action.ParticipantID != h.ParticipantID {
		panic(fmt.Sprintf("ledger: action %d for %s applied to %s", action.Sequence, action.ParticipantID, h.ParticipantID))
	}
	if action.Kind != models.ActionKindPick {
		return
	}
	if item == nil || action.ItemID == nil || *action.ItemID != item.ID {
		panic(fmt.Sprintf("ledger: pick %d applied with mismatched item", action.Sequence))
	}

	h.BudgetRemaining = h.BudgetRemaining.Sub(item.Price)
	h.Spend = h.Spend.Add(item.Price)
	h.Roster = append(h.Roster, item)
	h.QuotaUsed[item.Category]++

	if !h.BudgetRemaining.Add(h.Spend).Equal(h.InitialBudget) {
		panic(fmt.Sprintf("ledger: budget arithmetic broken for %s", h.ParticipantID))
	}
}

// State is the result of folding a ledger from empty.
type State struct {
	Ledger   *Ledger
	Holdings []*Holdings // same order as the seed participants
	Owners   map[models.ItemID]uuid.UUID
}

// Replay rebuilds draft state by folding actions over empty holdings, one per
// seed participant, each starting with budget.
func Replay(actions []models.DraftAction, cat *catalog.Catalog, seeds []models.Participant, budget decimal.Decimal) (*State, error) {
	if len(seeds) == 0 {
		return nil, fmt.Errorf("%w: no participants", ErrCorruptLedger)
	}

	state := &State{
		Ledger:   New(len(seeds)),
		Holdings: make([]*Holdings, len(seeds)),
		Owners:   make(map[models.ItemID]uuid.UUID),
	}
	byID := make(map[uuid.UUID]*Holdings, len(seeds))
	for i, p := range seeds {
		h := NewHoldings(p.ID, budget)
		state.Holdings[i] = h
		byID[p.ID] = h
	}

	for i, action := range actions {
		if action.Sequence != i+1 {
			return nil, fmt.Errorf("%w: expected sequence %d, got %d", ErrCorruptLedger, i+1, action.Sequence)
		}
		h, ok := byID[action.ParticipantID]
		if !ok {
			return nil, fmt.Errorf("%w: sequence %d names unknown participant %s", ErrCorruptLedger, action.Sequence, action.ParticipantID)
		}

		var item *models.Item
		switch action.Kind {
		case models.ActionKindSkip:
			if action.ItemID != nil {
				return nil, fmt.Errorf("%w: skip %d carries an item", ErrCorruptLedger, action.Sequence)
			}
		case models.ActionKindPick:
			if action.ItemID == nil {
				return nil, fmt.Errorf("%w: pick %d has no item", ErrCorruptLedger, action.Sequence)
			}
			item, ok = cat.Lookup(*action.ItemID)
			if !ok {
				return nil, fmt.Errorf("%w: pick %d names unknown item %d", ErrCorruptLedger, action.Sequence, *action.ItemID)
			}
			if owner, taken := state.Owners[item.ID]; taken {
				return nil, fmt.Errorf("%w: item %d already owned by %s", ErrCorruptLedger, item.ID, owner)
			}
			if item.Price.GreaterThan(h.BudgetRemaining) {
				return nil, fmt.Errorf("%w: pick %d overspends %s", ErrCorruptLedger, action.Sequence, h.ParticipantID)
			}
			state.Owners[item.ID] = h.ParticipantID
		default:
			return nil, fmt.Errorf("%w: sequence %d has unknown kind %q", ErrCorruptLedger, action.Sequence, action.Kind)
		}

		h.Apply(action, item)
		state.Ledger.Append(action)
	}

	return state, nil
}
