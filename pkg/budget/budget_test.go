package budget

import (
	"context"
	"testing"
	"time"

	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/user"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestBudget_IsActiveOn(t *testing.T) {
	tests := []struct {
		name      string
		startDate time.Time
		endDate   time.Time
		date      time.Time
		want      bool
	}{
		{
			name: "no dates means always active",
			date: date(2024, time.June, 1),
			want: true,
		},
		{
			name:      "date inside bounds",
			startDate: date(2024, time.January, 1),
			endDate:   date(2024, time.December, 31),
			date:      date(2024, time.June, 1),
			want:      true,
		},
		{
			name:      "date on start boundary",
			startDate: date(2024, time.January, 1),
			date:      date(2024, time.January, 1),
			want:      true,
		},
		{
			name:      "date on end boundary",
			endDate:   date(2024, time.December, 31),
			date:      date(2024, time.December, 31),
			want:      true,
		},
		{
			name:      "date before start",
			startDate: date(2024, time.June, 1),
			date:      date(2024, time.May, 31),
			want:      false,
		},
		{
			name:    "date after end",
			endDate: date(2024, time.June, 1),
			date:    date(2024, time.June, 2),
			want:    false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Budget{StartDate: tt.startDate, EndDate: tt.endDate}
			assert.Equal(t, tt.want, b.IsActiveOn(tt.date))
		})
	}
}

func TestBudget_Remaining(t *testing.T) {
	b := Budget{
		Limit: decimal.NewFromInt(500),
		Spent: decimal.RequireFromString("123.45"),
	}
	assert.True(t, b.Remaining().Equal(decimal.RequireFromString("376.55")))

	overspent := Budget{
		Limit: decimal.NewFromInt(100),
		Spent: decimal.NewFromInt(150),
	}
	assert.True(t, overspent.Remaining().Equal(decimal.NewFromInt(-50)))
}

func serviceForTest() (*StubBudgetRepo, *BudgetServiceImpl, context.Context) {
	repo := NewStubBudgetRepo()
	service := NewBudgetService(repo)
	ctx := user.WithUser(context.Background(), user.User{Id: 1})
	return repo, service, ctx
}

func TestCreateRejectsInvalidBudget(t *testing.T) {
	// given
	_, service, ctx := serviceForTest()

	// when
	_, err := service.Create(ctx, Budget{Limit: decimal.NewFromInt(100)})

	// then
	assert.ErrorIs(t, err, ErrInvalidBudget)

	// and a negative limit is rejected too
	_, err = service.Create(ctx, Budget{Name: "Food", Limit: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, ErrInvalidBudget)

	// and an end date before the start date
	_, err = service.Create(ctx, Budget{
		Name:      "Food",
		Limit:     decimal.NewFromInt(100),
		StartDate: date(2024, time.June, 1),
		EndDate:   date(2024, time.May, 1),
	})
	assert.ErrorIs(t, err, ErrInvalidBudget)
}

func TestCreateAndGetBudget(t *testing.T) {
	// given
	_, service, ctx := serviceForTest()

	// when
	created, err := service.Create(ctx, Budget{Name: "Groceries", Limit: decimal.NewFromInt(400)})

	// then
	require.NoError(t, err)
	found, err := service.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", found.Name)
	assert.True(t, found.Limit.Equal(decimal.NewFromInt(400)))
}

func TestUpdateMissingBudgetReturnsNotFound(t *testing.T) {
	// given
	_, service, ctx := serviceForTest()

	// when
	_, err := service.Update(ctx, Budget{ID: 42, Name: "Ghost", Limit: decimal.NewFromInt(10)})

	// then
	assert.ErrorIs(t, err, ErrBudgetNotFound)
}

func TestDeleteMissingBudgetReturnsNotFound(t *testing.T) {
	// given
	_, service, ctx := serviceForTest()

	// when
	_, err := service.Delete(ctx, 42)

	// then
	assert.ErrorIs(t, err, ErrBudgetNotFound)
}
