package recurring

import (
	"context"
	"errors"
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

func serviceForTest(now time.Time) (*StubRepository, *utils.MockClock, *ServiceImpl, context.Context) {
	repo := NewStubRepository()
	clock := &utils.MockClock{FixedNow: now}
	service := NewService(repo, clock, event_bus.NewEventBus())
	ctx := user.WithUser(context.Background(), user.User{Id: 1})
	return repo, clock, service, ctx
}

func monthlyRent(budgetId int) Template {
	return Template{
		Description: "Rent",
		Amount:      decimal.NewFromInt(1200),
		Kind:        transaction.KindExpense,
		Category:    "Housing",
		Frequency:   FrequencyMonthly,
		StartDate:   date(2024, time.January, 15),
		BudgetID:    &budgetId,
		IsActive:    true,
		NextDueDate: date(2024, time.January, 15),
	}
}

func TestCreateRollsPastStartDateForward(t *testing.T) {
	// given
	_, _, service, ctx := serviceForTest(date(2024, time.February, 10))
	tmpl := monthlyRent(7)
	tmpl.StartDate = date(2023, time.November, 5)

	// when
	created, err := service.Create(ctx, tmpl)

	// then
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.March, 5), created.NextDueDate)
	assert.True(t, created.IsActive)
	assert.True(t, created.LastGeneratedDate.IsZero())
}

func TestCreateKeepsFutureStartDate(t *testing.T) {
	// given
	_, _, service, ctx := serviceForTest(date(2024, time.February, 10))
	tmpl := monthlyRent(7)
	tmpl.StartDate = date(2024, time.April, 1)

	// when
	created, err := service.Create(ctx, tmpl)

	// then
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.April, 1), created.NextDueDate)
}

func TestCreateRejectsInvalidTemplates(t *testing.T) {
	_, _, service, ctx := serviceForTest(date(2024, time.February, 10))

	tests := []struct {
		name   string
		mutate func(tmpl *Template)
	}{
		{"missing description", func(tmpl *Template) { tmpl.Description = "" }},
		{"non-positive amount", func(tmpl *Template) { tmpl.Amount = decimal.Zero }},
		{"unknown kind", func(tmpl *Template) { tmpl.Kind = "transfer" }},
		{"unknown frequency", func(tmpl *Template) { tmpl.Frequency = "FORTNIGHTLY" }},
		{"end date before start date", func(tmpl *Template) { tmpl.EndDate = date(2023, time.December, 31) }},
		{"day of month out of range", func(tmpl *Template) { day := 32; tmpl.DayOfMonth = &day }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := monthlyRent(7)
			tt.mutate(&tmpl)

			_, err := service.Create(ctx, tmpl)

			assert.ErrorIs(t, err, ErrInvalidTemplate)
		})
	}
}

func TestProcessDueCatchesUpBacklog(t *testing.T) {
	// given a monthly template three periods behind
	repo, _, service, ctx := serviceForTest(date(2024, time.March, 20))
	id, err := repo.Store(ctx, 1, monthlyRent(7))
	require.NoError(t, err)

	// when
	result, err := service.ProcessDue(ctx)

	// then one entry per missed period, in order
	require.NoError(t, err)
	assert.Empty(t, result.Failures)
	require.Len(t, result.Generated, 3)
	assert.Equal(t, date(2024, time.January, 15), result.Generated[0].Date)
	assert.Equal(t, date(2024, time.February, 15), result.Generated[1].Date)
	assert.Equal(t, date(2024, time.March, 15), result.Generated[2].Date)
	for _, entry := range result.Generated {
		require.NotNil(t, entry.RecurringID)
		assert.Equal(t, id, *entry.RecurringID)
	}

	// and the budget grew step by step with every generated entry
	history := repo.Ledger.SpentHistory[7]
	require.Len(t, history, 3)
	assert.True(t, decimal.NewFromInt(1200).Equal(history[0]))
	assert.True(t, decimal.NewFromInt(2400).Equal(history[1]))
	assert.True(t, decimal.NewFromInt(3600).Equal(history[2]))
	assert.True(t, decimal.NewFromInt(3600).Equal(repo.Ledger.SpentByBudget[7]))

	// and the template points at the next future period
	tmpl, err := repo.Find(ctx, 1, id)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.April, 15), tmpl.NextDueDate)
	assert.Equal(t, date(2024, time.March, 15), tmpl.LastGeneratedDate)
	assert.True(t, tmpl.IsActive)
}

func TestProcessDueStopsAtEndDate(t *testing.T) {
	// given
	repo, _, service, ctx := serviceForTest(date(2024, time.March, 20))
	tmpl := monthlyRent(7)
	tmpl.EndDate = date(2024, time.February, 20)
	id, err := repo.Store(ctx, 1, tmpl)
	require.NoError(t, err)

	// when
	result, err := service.ProcessDue(ctx)

	// then only occurrences inside the window are generated
	require.NoError(t, err)
	require.Len(t, result.Generated, 2)
	assert.Equal(t, date(2024, time.February, 15), result.Generated[1].Date)

	// and the template deactivated itself
	stored, err := repo.Find(ctx, 1, id)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}

func TestProcessDueIncomeLeavesBudgetsAlone(t *testing.T) {
	// given
	repo, _, service, ctx := serviceForTest(date(2024, time.February, 1))
	tmpl := Template{
		Description: "Salary",
		Amount:      decimal.NewFromInt(3000),
		Kind:        transaction.KindIncome,
		Frequency:   FrequencyMonthly,
		StartDate:   date(2024, time.January, 25),
		IsActive:    true,
		NextDueDate: date(2024, time.January, 25),
	}
	_, err := repo.Store(ctx, 1, tmpl)
	require.NoError(t, err)

	// when
	result, err := service.ProcessDue(ctx)

	// then
	require.NoError(t, err)
	require.Len(t, result.Generated, 1)
	assert.Empty(t, repo.Ledger.SpentByBudget)
}

func TestProcessDueReportsPartialFailure(t *testing.T) {
	// given two due templates where the first one's generation fails
	repo, _, service, ctx := serviceForTest(date(2024, time.February, 1))
	broken := monthlyRent(7)
	broken.NextDueDate = date(2024, time.January, 10)
	brokenId, err := repo.Store(ctx, 1, broken)
	require.NoError(t, err)

	healthy := monthlyRent(8)
	healthy.Description = "Internet"
	healthy.NextDueDate = date(2024, time.January, 20)
	healthyId, err := repo.Store(ctx, 1, healthy)
	require.NoError(t, err)

	boom := errors.New("disk full")
	repo.FailNextOccurrence = boom

	// when
	result, err := service.ProcessDue(ctx)

	// then the run finishes and reports both outcomes
	require.NoError(t, err)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, brokenId, result.Failures[0].TemplateID)
	assert.ErrorIs(t, result.Failures[0].Err, boom)

	require.Len(t, result.Generated, 1)
	assert.Equal(t, healthyId, *result.Generated[0].RecurringID)

	// and the failed template did not advance
	stored, err := repo.Find(ctx, 1, brokenId)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.January, 10), stored.NextDueDate)
}

func TestSkipNextAdvancesWithoutGenerating(t *testing.T) {
	// given
	repo, _, service, ctx := serviceForTest(date(2024, time.January, 10))
	id, err := repo.Store(ctx, 1, monthlyRent(7))
	require.NoError(t, err)

	// when
	skipped, err := service.SkipNext(ctx, id)

	// then the schedule moved but no ledger entry exists
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.February, 15), skipped.NextDueDate)
	assert.True(t, skipped.LastGeneratedDate.IsZero())
	entries, err := repo.Ledger.GetAll(ctx, 1, transaction.Filter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSkipNextDeactivatesPastEndDate(t *testing.T) {
	// given
	repo, _, service, ctx := serviceForTest(date(2024, time.February, 1))
	tmpl := monthlyRent(7)
	tmpl.NextDueDate = date(2024, time.February, 15)
	tmpl.EndDate = date(2024, time.February, 28)
	id, err := repo.Store(ctx, 1, tmpl)
	require.NoError(t, err)

	// when
	skipped, err := service.SkipNext(ctx, id)

	// then
	require.NoError(t, err)
	assert.False(t, skipped.IsActive)
	assert.Equal(t, date(2024, time.March, 15), skipped.NextDueDate)
}

func TestSkipNextOnInactiveTemplateConflicts(t *testing.T) {
	// given
	repo, _, service, ctx := serviceForTest(date(2024, time.February, 1))
	tmpl := monthlyRent(7)
	tmpl.IsActive = false
	id, err := repo.Store(ctx, 1, tmpl)
	require.NoError(t, err)

	// when
	_, err = service.SkipNext(ctx, id)

	// then
	assert.ErrorIs(t, err, ErrTemplateInactive)
}

func TestUpcomingProjectsWithoutWriting(t *testing.T) {
	// given a weekly and a monthly template
	repo, _, service, ctx := serviceForTest(date(2024, time.March, 1))
	weekly := Template{
		Description: "Groceries",
		Amount:      decimal.NewFromInt(80),
		Kind:        transaction.KindExpense,
		Frequency:   FrequencyWeekly,
		StartDate:   date(2024, time.March, 4),
		IsActive:    true,
		NextDueDate: date(2024, time.March, 4),
	}
	_, err := repo.Store(ctx, 1, weekly)
	require.NoError(t, err)
	rent := monthlyRent(7)
	rent.NextDueDate = date(2024, time.March, 15)
	_, err = repo.Store(ctx, 1, rent)
	require.NoError(t, err)

	// when
	occurrences, err := service.Upcoming(ctx, 14)

	// then the projection is sorted by due date and nothing was written
	require.NoError(t, err)
	require.Len(t, occurrences, 3)
	assert.Equal(t, date(2024, time.March, 4), occurrences[0].DueDate)
	assert.Equal(t, date(2024, time.March, 11), occurrences[1].DueDate)
	assert.Equal(t, date(2024, time.March, 15), occurrences[2].DueDate)

	entries, err := repo.Ledger.GetAll(ctx, 1, transaction.Filter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpcomingRejectsNonPositiveWindow(t *testing.T) {
	_, _, service, ctx := serviceForTest(date(2024, time.March, 1))

	_, err := service.Upcoming(ctx, 0)

	assert.ErrorIs(t, err, ErrInvalidTemplate)
}

func TestUpdateRecomputesScheduleOnFrequencyChange(t *testing.T) {
	// given a monthly template
	repo, _, service, ctx := serviceForTest(date(2024, time.February, 10))
	tmpl := monthlyRent(7)
	tmpl.NextDueDate = date(2024, time.February, 15)
	id, err := repo.Store(ctx, 1, tmpl)
	require.NoError(t, err)

	// when the frequency changes to weekly
	weekly := FrequencyWeekly
	updated, err := service.Update(ctx, id, UpdateInput{Frequency: &weekly})

	// then the next due date is recomputed from the start date
	require.NoError(t, err)
	assert.Equal(t, FrequencyWeekly, updated.Frequency)
	assert.Equal(t, date(2024, time.February, 12), updated.NextDueDate)
}

func TestUpdateKeepsScheduleOnCosmeticChange(t *testing.T) {
	// given
	repo, _, service, ctx := serviceForTest(date(2024, time.February, 10))
	tmpl := monthlyRent(7)
	tmpl.NextDueDate = date(2024, time.February, 15)
	id, err := repo.Store(ctx, 1, tmpl)
	require.NoError(t, err)

	// when only the description changes
	description := "Rent (new lease)"
	updated, err := service.Update(ctx, id, UpdateInput{Description: &description})

	// then
	require.NoError(t, err)
	assert.Equal(t, "Rent (new lease)", updated.Description)
	assert.Equal(t, date(2024, time.February, 15), updated.NextDueDate)
}

func TestUpdateDoesNotReactivateDeactivatedTemplate(t *testing.T) {
	// given
	repo, _, service, ctx := serviceForTest(date(2024, time.February, 10))
	tmpl := monthlyRent(7)
	tmpl.IsActive = false
	id, err := repo.Store(ctx, 1, tmpl)
	require.NoError(t, err)

	// when
	description := "Rent"
	updated, err := service.Update(ctx, id, UpdateInput{Description: &description})

	// then
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
}

func TestUpdateMissingTemplate(t *testing.T) {
	_, _, service, ctx := serviceForTest(date(2024, time.February, 10))

	description := "Rent"
	_, err := service.Update(ctx, 42, UpdateInput{Description: &description})

	assert.ErrorIs(t, err, ErrTemplateNotFound)
}
