package recurring

import (
	"errors"
	"fmt"
	"time"

	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/transaction"
	"github.com/shopspring/decimal"
)

// Frequency is the closed set of supported recurrence periods. Values outside
// the set are rejected at the validation boundary; the schedule arithmetic
// assumes it only ever sees these.
type Frequency string

const (
	FrequencyDaily     Frequency = "DAILY"
	FrequencyWeekly    Frequency = "WEEKLY"
	FrequencyBiweekly  Frequency = "BIWEEKLY"
	FrequencyMonthly   Frequency = "MONTHLY"
	FrequencyQuarterly Frequency = "QUARTERLY"
	FrequencyYearly    Frequency = "YEARLY"
)

var (
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidTemplate  = errors.New("invalid recurring template")
	ErrTemplateNotFound = errors.New("recurring template not found")
	ErrTemplateInactive = errors.New("recurring template is not active")
	ErrRunInProgress    = errors.New("generation run already in progress")
)

func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return Frequency(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
}

// Template describes a repeating financial event. NextDueDate is always kept
// at or after LastGeneratedDate, and while the template is active it never
// points past EndDate.
type Template struct {
	ID          int
	Description string
	Amount      decimal.Decimal
	Kind        transaction.Kind
	Category    string
	Frequency   Frequency
	StartDate   time.Time
	// EndDate is the last date an occurrence may fall on; zero means open-ended.
	EndDate time.Time
	// DayOfMonth pins MONTHLY/QUARTERLY occurrences to a day (1-31), clamped
	// into shorter months.
	DayOfMonth *int
	// DayOfWeek pins WEEKLY occurrences to a weekday.
	DayOfWeek *time.Weekday
	BudgetID  *int
	IsActive  bool
	// NextDueDate is the next occurrence still to be generated.
	NextDueDate time.Time
	// LastGeneratedDate is the due date of the most recent generated entry;
	// zero if nothing has been generated yet.
	LastGeneratedDate time.Time
}

// Occurrence is a projected due date for a template, used by the read-only
// upcoming view.
type Occurrence struct {
	TemplateID  int
	Description string
	Amount      decimal.Decimal
	Kind        transaction.Kind
	Category    string
	BudgetID    *int
	DueDate     time.Time
}
