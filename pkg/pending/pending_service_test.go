package pending

import (
	"context"
	"testing"
	"time"

	"github.com/Nicolas-Jorq/budget-app-sub001/internal/event_bus"
	"github.com/Nicolas-Jorq/budget-app-sub001/internal/utils"
	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/transaction"
	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/user"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func serviceForTest() (*StubRepository, *ServiceImpl, context.Context) {
	repo := NewStubRepository()
	clock := &utils.MockClock{FixedNow: date(2024, time.March, 1)}
	service := NewService(repo, repo.Ledger, clock, event_bus.NewEventBus())
	ctx := user.WithUser(context.Background(), user.User{Id: 1})
	return repo, service, ctx
}

func extractedRow(description string, amount int64) PendingTransaction {
	return PendingTransaction{
		Date:        date(2024, time.February, 10),
		Description: description,
		Amount:      decimal.NewFromInt(amount),
		Kind:        transaction.KindExpense,
		Category:    "Groceries",
	}
}

func submitBatch(t *testing.T, service *ServiceImpl, ctx context.Context, rows ...PendingTransaction) (string, []PendingTransaction) {
	t.Helper()
	batchId, stored, err := service.SubmitBatch(ctx, rows)
	require.NoError(t, err)
	return batchId, stored
}

func TestSubmitBatchAssignsBatchIdAndPendingStatus(t *testing.T) {
	// given
	_, service, ctx := serviceForTest()

	// when
	batchId, stored, err := service.SubmitBatch(ctx, []PendingTransaction{
		extractedRow("REWE Berlin", 54),
		extractedRow("Shell", 70),
	})

	// then
	require.NoError(t, err)
	assert.NotEmpty(t, batchId)
	require.Len(t, stored, 2)
	for _, row := range stored {
		assert.Equal(t, batchId, row.BatchID)
		assert.Equal(t, StatusPending, row.Status)
		assert.NotZero(t, row.ID)
	}
}

func TestSubmitBatchRejectsInvalidRows(t *testing.T) {
	_, service, ctx := serviceForTest()

	broken := extractedRow("REWE Berlin", 54)
	broken.Amount = decimal.Zero

	_, _, err := service.SubmitBatch(ctx, []PendingTransaction{broken})

	assert.ErrorIs(t, err, ErrInvalidPending)
}

func TestReviewUpdatesUserCategoryNotExtractedGuess(t *testing.T) {
	// given
	_, service, ctx := serviceForTest()
	_, stored := submitBatch(t, service, ctx, extractedRow("REWE Berlin", 54))

	// when the reviewer overrides the category
	category := "Food"
	updated, err := service.Review(ctx, stored[0].ID, ReviewInput{Category: &category})

	// then both values survive
	require.NoError(t, err)
	assert.Equal(t, "Food", updated.UserCategory)
	assert.Equal(t, "Groceries", updated.Category)
}

func TestReviewRefusesImportedRows(t *testing.T) {
	// given an imported row
	_, service, ctx := serviceForTest()
	batchId, stored := submitBatch(t, service, ctx, extractedRow("REWE Berlin", 54))
	require.NoError(t, service.Approve(ctx, stored[0].ID))
	_, err := service.Import(ctx, batchId, nil)
	require.NoError(t, err)

	// when
	notes := "checked"
	_, err = service.Review(ctx, stored[0].ID, ReviewInput{Notes: &notes})

	// then
	assert.ErrorIs(t, err, ErrAlreadyImported)
}

func TestApproveOnlyFromPending(t *testing.T) {
	// given
	_, service, ctx := serviceForTest()
	_, stored := submitBatch(t, service, ctx, extractedRow("REWE Berlin", 54))
	id := stored[0].ID
	require.NoError(t, service.Reject(ctx, id))

	// when approving a rejected row
	err := service.Approve(ctx, id)

	// then
	assert.ErrorIs(t, err, ErrStatusConflict)
}

func TestRejectAllowedFromPendingAndApproved(t *testing.T) {
	// given
	_, service, ctx := serviceForTest()
	_, stored := submitBatch(t, service, ctx,
		extractedRow("REWE Berlin", 54),
		extractedRow("Shell", 70),
	)
	require.NoError(t, service.Approve(ctx, stored[0].ID))

	// when
	errApproved := service.Reject(ctx, stored[0].ID)
	errPending := service.Reject(ctx, stored[1].ID)

	// then
	assert.NoError(t, errApproved)
	assert.NoError(t, errPending)
}

func TestBulkApproveSkipsImportedRows(t *testing.T) {
	// given one imported and two pending rows
	_, service, ctx := serviceForTest()
	batchId, stored := submitBatch(t, service, ctx,
		extractedRow("REWE Berlin", 54),
		extractedRow("Shell", 70),
		extractedRow("BVG", 9),
	)
	require.NoError(t, service.Approve(ctx, stored[0].ID))
	_, err := service.Import(ctx, batchId, nil)
	require.NoError(t, err)

	// when
	processed, err := service.Bulk(ctx, []int{stored[0].ID, stored[1].ID, stored[2].ID}, BulkApprove)

	// then only the non-imported rows were touched
	require.NoError(t, err)
	assert.Equal(t, 2, processed)
	imported, err := service.Get(ctx, stored[0].ID)
	require.NoError(t, err)
	assert.Equal(t, StatusImported, imported.Status)
}

func TestBulkRejectsUnknownAction(t *testing.T) {
	_, service, ctx := serviceForTest()
	_, stored := submitBatch(t, service, ctx, extractedRow("REWE Berlin", 54))

	_, err := service.Bulk(ctx, []int{stored[0].ID}, "archive")

	assert.ErrorIs(t, err, ErrInvalidPending)
}

func TestBulkRejectsUnknownActionWithoutMatchingRows(t *testing.T) {
	// given no stored rows at all
	_, service, ctx := serviceForTest()

	// when
	_, err := service.Bulk(ctx, []int{42, 43}, "archive")

	// then the action is rejected before any row lookup
	assert.ErrorIs(t, err, ErrInvalidPending)
}

func TestCheckDuplicatesMarksLedgerCollisions(t *testing.T) {
	// given a ledger entry with the same date and amount as one pending row
	repo, service, ctx := serviceForTest()
	ledgerId, err := repo.Ledger.Store(ctx, 1, transaction.Transaction{
		Description: "REWE SAGT DANKE",
		Amount:      decimal.NewFromInt(54),
		Kind:        transaction.KindExpense,
		Date:        date(2024, time.February, 10),
		CreatedAt:   date(2024, time.February, 10),
	})
	require.NoError(t, err)
	batchId, stored := submitBatch(t, service, ctx,
		extractedRow("REWE Berlin", 54),
		extractedRow("Shell", 70),
	)

	// when
	report, err := service.CheckDuplicates(ctx, batchId)

	// then the colliding row is marked with a back-reference
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalChecked)
	assert.Equal(t, 1, report.DuplicatesFound)

	marked, err := service.Get(ctx, stored[0].ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDuplicate, marked.Status)
	require.NotNil(t, marked.DuplicateOfID)
	assert.Equal(t, ledgerId, *marked.DuplicateOfID)

	untouched, err := service.Get(ctx, stored[1].ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, untouched.Status)
}

func TestImportMovesApprovedRowsToLedger(t *testing.T) {
	// given two approved rows and one still pending
	repo, service, ctx := serviceForTest()
	overridden := extractedRow("REWE Berlin", 54)
	overridden.UserCategory = "Food"
	uncategorized := extractedRow("Mystery", 12)
	uncategorized.Category = ""
	batchId, stored := submitBatch(t, service, ctx,
		overridden,
		uncategorized,
		extractedRow("Shell", 70),
	)
	require.NoError(t, service.Approve(ctx, stored[0].ID))
	require.NoError(t, service.Approve(ctx, stored[1].ID))

	budgetId := 7
	// when
	result, err := service.Import(ctx, batchId, &budgetId)

	// then the ledger carries the resolved categories and the rows are sealed
	require.NoError(t, err)
	assert.Equal(t, 2, result.ImportedCount)
	require.Len(t, result.TransactionIDs, 2)

	entries, err := repo.Ledger.GetAll(ctx, 1, transaction.Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	categories := map[string]bool{}
	for _, entry := range entries {
		categories[entry.Category] = true
		require.NotNil(t, entry.BudgetID)
		assert.Equal(t, budgetId, *entry.BudgetID)
	}
	assert.True(t, categories["Food"])
	assert.True(t, categories["Other"])

	sealed, err := service.Get(ctx, stored[0].ID)
	require.NoError(t, err)
	assert.Equal(t, StatusImported, sealed.Status)
	assert.NotNil(t, sealed.ImportedTransactionID)

	skipped, err := service.Get(ctx, stored[2].ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, skipped.Status)
}

func TestImportWithoutApprovedRows(t *testing.T) {
	_, service, ctx := serviceForTest()
	batchId, _ := submitBatch(t, service, ctx, extractedRow("REWE Berlin", 54))

	_, err := service.Import(ctx, batchId, nil)

	assert.ErrorIs(t, err, ErrNothingToImport)
}

func TestSummaryCountsByStatusAndCategory(t *testing.T) {
	// given a mixed batch
	_, service, ctx := serviceForTest()
	batchId, stored := submitBatch(t, service, ctx,
		extractedRow("REWE Berlin", 54),
		extractedRow("Shell", 70),
		extractedRow("BVG", 9),
	)
	require.NoError(t, service.Approve(ctx, stored[0].ID))
	require.NoError(t, service.Reject(ctx, stored[2].ID))

	// when
	summary, err := service.Summary(ctx, batchId)

	// then
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ByStatus[StatusApproved].Count)
	assert.Equal(t, 1, summary.ByStatus[StatusPending].Count)
	assert.Equal(t, 1, summary.ByStatus[StatusRejected].Count)
	assert.Equal(t, 1, summary.ReadyToImport)

	require.Len(t, summary.ByCategory, 1)
	assert.Equal(t, "Groceries", summary.ByCategory[0].Category)
	assert.Equal(t, 2, summary.ByCategory[0].Count)
	assert.True(t, decimal.NewFromInt(124).Equal(summary.ByCategory[0].Total))
}
