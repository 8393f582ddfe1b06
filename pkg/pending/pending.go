package pending

import (
	"errors"
	"time"

	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/transaction"
	"github.com/shopspring/decimal"
)

// Status is the review state of an extracted row. IMPORTED is terminal; rows
// never leave it.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusDuplicate Status = "DUPLICATE"
	StatusImported  Status = "IMPORTED"
)

var (
	ErrPendingNotFound = errors.New("pending transaction not found")
	ErrInvalidPending  = errors.New("invalid pending transaction")
	ErrAlreadyImported = errors.New("pending transaction already imported")
	ErrStatusConflict  = errors.New("pending transaction is not in a valid status for this action")
	ErrNothingToImport = errors.New("no approved transactions to import")
)

// PendingTransaction is an extracted statement row waiting for review before
// it may enter the ledger. Category holds the extracted guess, UserCategory
// the reviewer's override.
type PendingTransaction struct {
	ID           int
	BatchID      string
	Date         time.Time
	Description  string
	Amount       decimal.Decimal
	Kind         transaction.Kind
	Category     string
	UserCategory string
	Notes        string
	Status       Status
	// DuplicateOfID points at the ledger entry a duplicate check matched.
	DuplicateOfID *int
	// ImportedTransactionID back-references the ledger entry created on import.
	ImportedTransactionID *int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// FinalCategory resolves the category an imported row carries: the reviewer's
// override wins, then the extracted guess, then "Other".
func (p PendingTransaction) FinalCategory() string {
	if p.UserCategory != "" {
		return p.UserCategory
	}
	if p.Category != "" {
		return p.Category
	}
	return "Other"
}
