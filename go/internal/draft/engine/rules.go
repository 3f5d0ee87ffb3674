package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mcdev12/budgetdraft/go/internal/models"
)

// DefaultRosterCap is the roster size used when no rule sets one.
const DefaultRosterCap = 15

// Limits supplies roster caps and per-category quotas for a participant.
type Limits interface {
	RosterCap(participantID uuid.UUID) int
	// QuotaLimit returns false when the category is bounded by the roster cap only.
	QuotaLimit(participantID uuid.UUID, category models.Category) (int, bool)
}

// Override replaces parts of the shared rules for one participant. A zero
// RosterCap keeps the shared cap; quotas are merged per category.
type Override struct {
	RosterCap int                     `json:"roster_cap,omitempty"`
	Quotas    map[models.Category]int `json:"quotas,omitempty"`
}

// Rules is the shared limit table with optional per-participant overrides.
type Rules struct {
	Cap       int                     `json:"roster_cap"`
	Quotas    map[models.Category]int `json:"quotas,omitempty"`
	Overrides map[uuid.UUID]Override  `json:"overrides,omitempty"`
}

// DefaultRules caps rosters at 15 with no category quotas.
func DefaultRules() Rules {
	return Rules{Cap: DefaultRosterCap}
}

// Validate rejects negative caps and quotas
func (r Rules) Validate() error {
	if r.Cap < 0 {
		return fmt.Errorf("roster cap must not be negative, got %d", r.Cap)
	}
	for cat, n := range r.Quotas {
		if n < 0 {
			return fmt.Errorf("quota for %s must not be negative, got %d", cat, n)
		}
	}
	for id, o := range r.Overrides {
		if o.RosterCap < 0 {
			return fmt.Errorf("roster cap override for %s must not be negative", id)
		}
		for cat, n := range o.Quotas {
			if n < 0 {
				return fmt.Errorf("quota override for %s/%s must not be negative", id, cat)
			}
		}
	}
	return nil
}

func (r Rules) RosterCap(participantID uuid.UUID) int {
	if o, ok := r.Overrides[participantID]; ok && o.RosterCap > 0 {
		return o.RosterCap
	}
	if r.Cap > 0 {
		return r.Cap
	}
	return DefaultRosterCap
}

func (r Rules) QuotaLimit(participantID uuid.UUID, category models.Category) (int, bool) {
	if o, ok := r.Overrides[participantID]; ok {
		if n, ok := o.Quotas[category]; ok {
			return n, true
		}
	}
	n, ok := r.Quotas[category]
	return n, ok
}

func quotaLimits(limits Limits, participantID uuid.UUID) map[models.Category]int {
	out := make(map[models.Category]int)
	for _, cat := range models.Categories {
		if n, ok := limits.QuotaLimit(participantID, cat); ok {
			out[cat] = n
		}
	}
	return out
}
