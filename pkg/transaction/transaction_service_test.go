package transaction

import (
	"context"
	"testing"
	"time"

	"github.com/Nicolas-Jorq/budget-app-sub001/internal/utils"
	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/user"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func serviceForTest(now time.Time) (*StubRepository, *ServiceImpl, context.Context) {
	repo := NewStubRepository()
	clock := &utils.MockClock{FixedNow: now}
	service := NewService(repo, clock)
	ctx := user.WithUser(context.Background(), user.User{Id: 1})
	return repo, service, ctx
}

func expense(description string, amount int64, day time.Time) Transaction {
	return Transaction{
		Description: description,
		Amount:      decimal.NewFromInt(amount),
		Kind:        KindExpense,
		Category:    "Groceries",
		Date:        day,
	}
}

func TestCreateStampsCreationTime(t *testing.T) {
	// given
	now := date(2024, time.March, 10)
	_, service, ctx := serviceForTest(now)

	// when
	created, err := service.Create(ctx, expense("Weekly shop", 85, date(2024, time.March, 9)))

	// then
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.True(t, created.Date.Equal(date(2024, time.March, 9)))
	assert.True(t, created.CreatedAt.Equal(now))
}

func TestCreateDefaultsDateToToday(t *testing.T) {
	// given
	now := date(2024, time.March, 10)
	_, service, ctx := serviceForTest(now)

	// when
	created, err := service.Create(ctx, expense("Weekly shop", 85, time.Time{}))

	// then
	require.NoError(t, err)
	assert.True(t, created.Date.Equal(now))
}

func TestCreateRejectsInvalidEntries(t *testing.T) {
	// given
	_, service, ctx := serviceForTest(date(2024, time.March, 10))

	// when missing description
	_, err := service.Create(ctx, Transaction{Amount: decimal.NewFromInt(10), Kind: KindExpense})
	assert.ErrorIs(t, err, ErrInvalidTransaction)

	// when non-positive amount
	_, err = service.Create(ctx, Transaction{Description: "Refund", Amount: decimal.Zero, Kind: KindIncome})
	assert.ErrorIs(t, err, ErrInvalidTransaction)

	// when unknown kind
	_, err = service.Create(ctx, Transaction{Description: "Odd", Amount: decimal.NewFromInt(10), Kind: Kind("transfer")})
	assert.ErrorIs(t, err, ErrInvalidTransaction)
}

func TestListAppliesFilter(t *testing.T) {
	// given
	_, service, ctx := serviceForTest(date(2024, time.March, 10))
	entries := []Transaction{
		expense("January shop", 50, date(2024, time.January, 5)),
		expense("February shop", 60, date(2024, time.February, 5)),
		{
			Description: "Salary",
			Amount:      decimal.NewFromInt(3000),
			Kind:        KindIncome,
			Category:    "Salary",
			Date:        date(2024, time.February, 1),
		},
	}
	for _, entry := range entries {
		_, err := service.Create(ctx, entry)
		require.NoError(t, err)
	}

	// when
	februaryExpenses, err := service.List(ctx, Filter{
		From: date(2024, time.February, 1),
		To:   date(2024, time.February, 29),
		Kind: KindExpense,
	})

	// then
	require.NoError(t, err)
	require.Len(t, februaryExpenses, 1)
	assert.Equal(t, "February shop", februaryExpenses[0].Description)
}

func TestDeleteMissingEntryReturnsNotFound(t *testing.T) {
	// given
	_, service, ctx := serviceForTest(date(2024, time.March, 10))

	// when
	_, err := service.Delete(ctx, 42)

	// then
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}
