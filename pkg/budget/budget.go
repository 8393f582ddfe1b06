package budget

import (
	"time"

	"github.com/shopspring/decimal"
)

type Budget struct {
	ID       int
	Name     string
	Category string
	// Limit is the planned spending ceiling for the budget period.
	Limit decimal.Decimal
	// Spent accumulates expense transactions linked to this budget. It is
	// only ever incremented by transaction creation; deleting a transaction
	// does not wind it back.
	Spent     decimal.Decimal
	StartDate time.Time
	EndDate   time.Time
}

// Remaining is never negative in the DTO sense but may go below zero here;
// callers decide how to present overspend.
func (b Budget) Remaining() decimal.Decimal {
	return b.Limit.Sub(b.Spent)
}

// IsActiveOn reports whether the budget covers the given date. Zero start or
// end dates mean unbounded on that side.
func (b Budget) IsActiveOn(date time.Time) bool {
	if !b.StartDate.IsZero() && date.Before(b.StartDate) {
		return false
	}
	if !b.EndDate.IsZero() && date.After(b.EndDate) {
		return false
	}
	return true
}
