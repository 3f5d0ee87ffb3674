package engine

import (
	"github.com/google/uuid"

	"github.com/mcdev12/budgetdraft/go/internal/catalog"
	"github.com/mcdev12/budgetdraft/go/internal/draft/ledger"
	"github.com/mcdev12/budgetdraft/go/internal/models"
)

// validator decides whether an intent is legal. It never mutates anything.
type validator struct {
	catalog *catalog.Catalog
	limits  Limits
}

// canPick runs the pick checks in order; the first failure wins.
func (v validator) canPick(started bool, h *ledger.Holdings, itemID models.ItemID, owners map[models.ItemID]uuid.UUID) (*models.Item, error) {
	if !started {
		return nil, reject(CodeNotStarted, "draft has not started")
	}

	rosterCap := v.limits.RosterCap(h.ParticipantID)
	if len(h.Roster) >= rosterCap {
		r := reject(CodeRosterFull, "roster already holds the maximum of %d items", rosterCap)
		r.Limit = rosterCap
		return nil, r
	}

	item, ok := v.catalog.Lookup(itemID)
	if !ok {
		return nil, reject(CodeItemUnavailable, "item %d is not in the catalog", itemID)
	}
	if _, taken := owners[itemID]; taken {
		return nil, reject(CodeItemUnavailable, "%s has already been picked", item.Name)
	}

	if item.Price.GreaterThan(h.BudgetRemaining) {
		r := reject(CodeInsufficientBudget, "%s costs %s but only %s remains",
			item.Name, item.Price.StringFixed(1), h.BudgetRemaining.StringFixed(1))
		shortfall := item.Price.Sub(h.BudgetRemaining)
		r.Shortfall = &shortfall
		return nil, r
	}

	if limit, ok := v.limits.QuotaLimit(h.ParticipantID, item.Category); ok && h.QuotaUsed[item.Category] >= limit {
		r := reject(CodeQuotaExceeded, "quota of %d %s already reached", limit, item.Category)
		r.Limit = limit
		return nil, r
	}

	return item, nil
}

// canSkip only requires a started draft; a full roster may still skip.
func (v validator) canSkip(started bool) error {
	if !started {
		return reject(CodeNotStarted, "draft has not started")
	}
	return nil
}
