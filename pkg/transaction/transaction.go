package transaction

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind distinguishes money coming in from money going out. Only expenses
// ever touch a linked budget's spent accumulator.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

var ErrInvalidKind = errors.New("invalid transaction kind")

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindIncome, KindExpense:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

type Transaction struct {
	ID          int
	Description string
	Amount      decimal.Decimal
	Kind        Kind
	Category    string
	Date        time.Time
	BudgetID    *int
	// RecurringID points back at the template a generated entry came from.
	RecurringID *int
	CreatedAt   time.Time
}

// Filter narrows GetAll. Zero values mean "no constraint".
type Filter struct {
	From     time.Time
	To       time.Time
	Category string
	Kind     Kind
	Limit    int
}
