package pending

import (
	"context"
	"fmt"
	"sort"

	"github.com/Nicolas-Jorq/budget-app-sub001/internal/event_bus"
	"github.com/Nicolas-Jorq/budget-app-sub001/internal/utils"
	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/transaction"
	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/user"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// ReviewInput carries a reviewer's corrections to a pending row. Nil pointers
// leave fields untouched. Category sets the reviewer override, not the
// extracted guess.
type ReviewInput struct {
	Description *string
	Amount      *decimal.Decimal
	Kind        *transaction.Kind
	Category    *string
	Notes       *string
}

type BulkAction string

const (
	BulkApprove BulkAction = "approve"
	BulkReject  BulkAction = "reject"
	BulkDelete  BulkAction = "delete"
)

// DuplicateMatch pairs a pending row with the ledger entries it collides with.
type DuplicateMatch struct {
	Pending PendingTransaction
	Matches []transaction.Transaction
}

// DuplicateReport is the outcome of a duplicate sweep over a batch.
type DuplicateReport struct {
	TotalChecked    int
	DuplicatesFound int
	Duplicates      []DuplicateMatch
}

// ImportResult reports which ledger entries a batch import created.
type ImportResult struct {
	ImportedCount  int
	TransactionIDs []int
}

// StatusSummary aggregates a batch by review status.
type StatusSummary struct {
	Count int
	Total decimal.Decimal
}

// CategorySummary aggregates the still-importable rows of a batch by their
// resolved category.
type CategorySummary struct {
	Category string
	Count    int
	Total    decimal.Decimal
}

type BatchSummary struct {
	BatchID       string
	ByStatus      map[Status]StatusSummary
	ByCategory    []CategorySummary
	ReadyToImport int
}

type Service interface {
	// SubmitBatch stores extracted rows under a fresh batch id with status
	// PENDING.
	SubmitBatch(ctx context.Context, rows []PendingTransaction) (string, []PendingTransaction, error)
	Get(ctx context.Context, id int) (PendingTransaction, error)
	GetBatch(ctx context.Context, batchId string) ([]PendingTransaction, error)
	// Review applies a reviewer's corrections. Imported rows are immutable.
	Review(ctx context.Context, id int, input ReviewInput) (PendingTransaction, error)
	Approve(ctx context.Context, id int) error
	Reject(ctx context.Context, id int) error
	// Bulk applies an action to many rows, skipping imported ones. Returns
	// the number of rows actually touched.
	Bulk(ctx context.Context, ids []int, action BulkAction) (int, error)
	// CheckDuplicates probes the ledger for entries matching each PENDING
	// row's date and amount and marks hits DUPLICATE.
	CheckDuplicates(ctx context.Context, batchId string) (DuplicateReport, error)
	// Import turns every APPROVED row of a batch into a ledger entry.
	Import(ctx context.Context, batchId string, defaultBudgetId *int) (ImportResult, error)
	Summary(ctx context.Context, batchId string) (BatchSummary, error)
}

type ServiceImpl struct {
	repo   Repository
	ledger transaction.Repository
	clock  utils.Clock
	bus    *event_bus.EventBus
}

func NewService(repo Repository, ledger transaction.Repository, clock utils.Clock, bus *event_bus.EventBus) *ServiceImpl {
	return &ServiceImpl{repo: repo, ledger: ledger, clock: clock, bus: bus}
}

func (s *ServiceImpl) SubmitBatch(ctx context.Context, rows []PendingTransaction) (string, []PendingTransaction, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return "", nil, err
	}
	if len(rows) == 0 {
		return "", nil, fmt.Errorf("%w: batch is empty", ErrInvalidPending)
	}

	batchId := uuid.NewString()
	now := s.clock.Now()
	for i := range rows {
		if err := validateRow(rows[i]); err != nil {
			return "", nil, err
		}
		rows[i].BatchID = batchId
		rows[i].Status = StatusPending
		rows[i].DuplicateOfID = nil
		rows[i].ImportedTransactionID = nil
		rows[i].CreatedAt = now
		rows[i].UpdatedAt = now
	}

	stored, err := s.repo.StoreBatch(ctx, userId, rows)
	if err != nil {
		return "", nil, err
	}
	return batchId, stored, nil
}

func (s *ServiceImpl) Get(ctx context.Context, id int) (PendingTransaction, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return PendingTransaction{}, err
	}
	return s.repo.Find(ctx, userId, id)
}

func (s *ServiceImpl) GetBatch(ctx context.Context, batchId string) ([]PendingTransaction, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.GetBatch(ctx, userId, batchId)
}

func (s *ServiceImpl) Review(ctx context.Context, id int, input ReviewInput) (PendingTransaction, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return PendingTransaction{}, err
	}

	row, err := s.repo.Find(ctx, userId, id)
	if err != nil {
		return PendingTransaction{}, err
	}
	if row.Status == StatusImported {
		return PendingTransaction{}, ErrAlreadyImported
	}

	if input.Description != nil {
		row.Description = *input.Description
	}
	if input.Amount != nil {
		row.Amount = *input.Amount
	}
	if input.Kind != nil {
		row.Kind = *input.Kind
	}
	if input.Category != nil {
		row.UserCategory = *input.Category
	}
	if input.Notes != nil {
		row.Notes = *input.Notes
	}
	if err := validateRow(row); err != nil {
		return PendingTransaction{}, err
	}
	row.UpdatedAt = s.clock.Now()

	updated, err := s.repo.Update(ctx, userId, row)
	if err != nil {
		return PendingTransaction{}, err
	}
	if !updated {
		return PendingTransaction{}, ErrPendingNotFound
	}
	return row, nil
}

func (s *ServiceImpl) Approve(ctx context.Context, id int) error {
	return s.transition(ctx, id, StatusApproved, StatusPending)
}

func (s *ServiceImpl) Reject(ctx context.Context, id int) error {
	return s.transition(ctx, id, StatusRejected, StatusPending, StatusApproved)
}

func (s *ServiceImpl) transition(ctx context.Context, id int, to Status, from ...Status) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return err
	}

	row, err := s.repo.Find(ctx, userId, id)
	if err != nil {
		return err
	}
	allowed := false
	for _, status := range from {
		if row.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: cannot move %s to %s", ErrStatusConflict, row.Status, to)
	}

	row.Status = to
	row.UpdatedAt = s.clock.Now()
	updated, err := s.repo.Update(ctx, userId, row)
	if err != nil {
		return err
	}
	if !updated {
		return ErrPendingNotFound
	}
	return nil
}

func (s *ServiceImpl) Bulk(ctx context.Context, ids []int, action BulkAction) (int, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: no ids provided", ErrInvalidPending)
	}
	switch action {
	case BulkApprove, BulkReject, BulkDelete:
	default:
		return 0, fmt.Errorf("%w: invalid action %q", ErrInvalidPending, action)
	}

	processed := 0
	for _, id := range ids {
		row, err := s.repo.Find(ctx, userId, id)
		if err != nil {
			if err == ErrPendingNotFound {
				continue
			}
			return processed, err
		}
		if row.Status == StatusImported {
			continue
		}

		switch action {
		case BulkDelete:
			deleted, err := s.repo.Delete(ctx, userId, id)
			if err != nil {
				return processed, err
			}
			if deleted {
				processed++
			}
		case BulkApprove, BulkReject:
			if row.Status != StatusPending && row.Status != StatusApproved {
				continue
			}
			if action == BulkApprove {
				row.Status = StatusApproved
			} else {
				row.Status = StatusRejected
			}
			row.UpdatedAt = s.clock.Now()
			updated, err := s.repo.Update(ctx, userId, row)
			if err != nil {
				return processed, err
			}
			if updated {
				processed++
			}
		}
	}
	return processed, nil
}

func (s *ServiceImpl) CheckDuplicates(ctx context.Context, batchId string) (DuplicateReport, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return DuplicateReport{}, err
	}

	rows, err := s.repo.GetBatch(ctx, userId, batchId, StatusPending)
	if err != nil {
		return DuplicateReport{}, err
	}

	report := DuplicateReport{TotalChecked: len(rows)}
	for _, row := range rows {
		matches, err := s.ledger.FindMatches(ctx, userId, row.Date, row.Amount)
		if err != nil {
			return DuplicateReport{}, err
		}
		if len(matches) == 0 {
			continue
		}

		duplicateOf := matches[0].ID
		row.Status = StatusDuplicate
		row.DuplicateOfID = &duplicateOf
		row.UpdatedAt = s.clock.Now()
		updated, err := s.repo.Update(ctx, userId, row)
		if err != nil {
			return DuplicateReport{}, err
		}
		if !updated {
			continue
		}

		report.DuplicatesFound++
		report.Duplicates = append(report.Duplicates, DuplicateMatch{Pending: row, Matches: matches})
	}
	return report, nil
}

func (s *ServiceImpl) Import(ctx context.Context, batchId string, defaultBudgetId *int) (ImportResult, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return ImportResult{}, err
	}

	approved, err := s.repo.GetBatch(ctx, userId, batchId, StatusApproved)
	if err != nil {
		return ImportResult{}, err
	}
	if len(approved) == 0 {
		return ImportResult{}, ErrNothingToImport
	}

	result := ImportResult{}
	for _, row := range approved {
		entry := transaction.Transaction{
			Description: row.Description,
			Amount:      row.Amount,
			Kind:        row.Kind,
			Category:    row.FinalCategory(),
			Date:        row.Date,
			BudgetID:    defaultBudgetId,
			CreatedAt:   s.clock.Now(),
		}
		if err := transaction.Validate(entry); err != nil {
			return result, err
		}

		id, err := s.repo.ImportRow(ctx, userId, row, entry)
		if err != nil {
			log.Errorf("importing pending transaction %d: %v", row.ID, err)
			return result, err
		}
		result.ImportedCount++
		result.TransactionIDs = append(result.TransactionIDs, id)
	}

	if s.bus != nil && result.ImportedCount > 0 {
		payload := event_bus.BatchImported{BatchID: batchId, ImportedCount: result.ImportedCount}
		if err := s.bus.Publish(event_bus.NewEvent(ctx, event_bus.PendingBatchImported, payload)); err != nil {
			log.Warnf("publishing batch imported event: %v", err)
		}
	}
	return result, nil
}

func (s *ServiceImpl) Summary(ctx context.Context, batchId string) (BatchSummary, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return BatchSummary{}, err
	}

	rows, err := s.repo.GetBatch(ctx, userId, batchId)
	if err != nil {
		return BatchSummary{}, err
	}

	summary := BatchSummary{BatchID: batchId, ByStatus: map[Status]StatusSummary{}}
	categories := map[string]CategorySummary{}
	for _, row := range rows {
		byStatus := summary.ByStatus[row.Status]
		byStatus.Count++
		byStatus.Total = byStatus.Total.Add(row.Amount)
		summary.ByStatus[row.Status] = byStatus

		if row.Status == StatusPending || row.Status == StatusApproved {
			category := row.FinalCategory()
			byCategory := categories[category]
			byCategory.Category = category
			byCategory.Count++
			byCategory.Total = byCategory.Total.Add(row.Amount)
			categories[category] = byCategory
		}
	}
	for _, byCategory := range categories {
		summary.ByCategory = append(summary.ByCategory, byCategory)
	}
	sort.Slice(summary.ByCategory, func(i, j int) bool {
		return summary.ByCategory[i].Total.GreaterThan(summary.ByCategory[j].Total)
	})
	summary.ReadyToImport = summary.ByStatus[StatusApproved].Count
	return summary, nil
}

func validateRow(row PendingTransaction) error {
	if row.Description == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidPending)
	}
	if !row.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidPending)
	}
	if _, err := transaction.ParseKind(string(row.Kind)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPending, err)
	}
	if row.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidPending)
	}
	return nil
}
