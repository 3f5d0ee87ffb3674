package engine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// RejectionCode identifies why an intent was refused.
type RejectionCode string

const (
	CodeNotStarted          RejectionCode = "NOT_STARTED"
	CodeDraftAlreadyStarted RejectionCode = "DRAFT_ALREADY_STARTED"
	CodeInvalidOrder        RejectionCode = "INVALID_ORDER"
	CodeRosterFull          RejectionCode = "ROSTER_FULL"
	CodeItemUnavailable     RejectionCode = "ITEM_UNAVAILABLE"
	CodeInsufficientBudget  RejectionCode = "INSUFFICIENT_BUDGET"
	CodeQuotaExceeded       RejectionCode = "QUOTA_EXCEEDED"
	CodeNotYourTurn         RejectionCode = "NOT_YOUR_TURN"
)

// Rejection is returned for every refused intent. The engine state is left
// unchanged whenever one is returned.
type Rejection struct {
	Code    RejectionCode `json:"code"`
	Message string        `json:"message"`
	// Shortfall is set for INSUFFICIENT_BUDGET
	Shortfall *decimal.Decimal `json:"shortfall,omitempty"`
	// Limit is set for QUOTA_EXCEEDED and ROSTER_FULL
	Limit int `json:"limit,omitempty"`
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

func reject(code RejectionCode, format string, args ...any) *Rejection {
	return &Rejection{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsRejection unwraps err into a Rejection
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// IsRejection reports whether err is a Rejection carrying code
func IsRejection(err error, code RejectionCode) bool {
	r, ok := AsRejection(err)
	return ok && r.Code == code
}
