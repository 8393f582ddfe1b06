package insights

import (
	"testing"
	"time"

	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/transaction"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func expense(id int, amount int64, category string, on time.Time) transaction.Transaction {
	return transaction.Transaction{
		ID:       id,
		Amount:   decimal.NewFromInt(amount),
		Kind:     transaction.KindExpense,
		Category: category,
		Date:     on,
	}
}

func income(id int, amount int64, on time.Time) transaction.Transaction {
	return transaction.Transaction{
		ID:     id,
		Amount: decimal.NewFromInt(amount),
		Kind:   transaction.KindIncome,
		Date:   on,
	}
}

func TestSpendingSummaryIgnoresIncome(t *testing.T) {
	// given two months of expenses plus an income entry
	entries := []transaction.Transaction{
		expense(1, 100, "Groceries", date(2024, time.January, 1)),
		expense(2, 200, "Rent", date(2024, time.March, 1)),
		income(3, 5000, date(2024, time.February, 1)),
	}

	// when
	summary := SpendingSummary(entries)

	// then
	assert.Equal(t, 300.0, summary.TotalSpending)
	assert.Equal(t, 2, summary.TransactionCount)
	assert.Equal(t, "Rent", summary.TopCategory)
	require.NotNil(t, summary.DateRange)
	assert.Equal(t, date(2024, time.January, 1), summary.DateRange.Start)
	assert.Equal(t, date(2024, time.March, 1), summary.DateRange.End)
	assert.Equal(t, 60, summary.DateRange.Days)
	assert.Equal(t, 150.0, summary.AvgMonthlySpending)
}

func TestSpendingSummaryEmptyLedger(t *testing.T) {
	summary := SpendingSummary(nil)

	assert.Zero(t, summary.TotalSpending)
	assert.Nil(t, summary.DateRange)
}

func TestCategoryBreakdownsSortsAndExcludesOldEntries(t *testing.T) {
	// given recent entries plus one outside the three-month window
	now := date(2024, time.April, 1)
	entries := []transaction.Transaction{
		expense(1, 60, "Groceries", date(2024, time.March, 10)),
		expense(2, 40, "Groceries", date(2024, time.March, 20)),
		expense(3, 300, "Rent", date(2024, time.March, 1)),
		expense(4, 999, "Travel", date(2023, time.June, 1)),
	}

	// when
	breakdown := CategoryBreakdowns(entries, 3, now)

	// then the old entry is gone and shares add up
	require.Len(t, breakdown, 2)
	assert.Equal(t, "Rent", breakdown[0].Category)
	assert.Equal(t, 300.0, breakdown[0].Total)
	assert.Equal(t, 75.0, breakdown[0].Percentage)
	assert.Equal(t, "Groceries", breakdown[1].Category)
	assert.Equal(t, 100.0, breakdown[1].Total)
	assert.Equal(t, 25.0, breakdown[1].Percentage)
	assert.Equal(t, 2, breakdown[1].TransactionCount)
	assert.Equal(t, 50.0, breakdown[1].AvgTransaction)
}

func TestMonthlyTrendKeepsLastMonths(t *testing.T) {
	// given four months of spending
	var entries []transaction.Transaction
	for i, month := range []time.Month{time.January, time.February, time.March, time.April} {
		entries = append(entries, expense(i+1, int64(100*(i+1)), "Misc", date(2024, month, 10)))
	}

	// when only the last three months are requested
	trend := MonthlyTrend(entries, 3)

	// then
	require.Len(t, trend, 3)
	assert.Equal(t, "2024-02", trend[0].Month)
	assert.Equal(t, "2024-04", trend[2].Month)
	assert.Equal(t, 400.0, trend[2].Total)
}

func TestWeekdayPatternFindsPeakAndWeekendRatio(t *testing.T) {
	// given heavy Saturday spending against a quiet week
	entries := []transaction.Transaction{
		expense(1, 10, "Coffee", date(2024, time.April, 1)),  // Monday
		expense(2, 10, "Coffee", date(2024, time.April, 2)),  // Tuesday
		expense(3, 60, "Dining", date(2024, time.April, 6)),  // Saturday
		expense(4, 40, "Dining", date(2024, time.April, 13)), // Saturday
	}

	// when
	pattern := WeekdayPattern(entries)

	// then
	require.Len(t, pattern.Days, 7)
	assert.Equal(t, "Saturday", pattern.PeakDay)
	assert.Equal(t, 100.0, pattern.Days[5].Total)
	assert.Equal(t, 2, pattern.Days[5].Count)
	assert.Equal(t, 50.0, pattern.WeekendVsWeekday.WeekendAvg)
	assert.Equal(t, 10.0, pattern.WeekendVsWeekday.WeekdayAvg)
	assert.Equal(t, 5.0, pattern.WeekendVsWeekday.Ratio)
}

func TestDetectTrendsClassifiesCategories(t *testing.T) {
	// given a sharply increasing and a flat category
	now := date(2024, time.April, 1)
	entries := []transaction.Transaction{
		expense(1, 10, "Dining", date(2024, time.January, 10)),
		expense(2, 20, "Dining", date(2024, time.February, 10)),
		expense(3, 30, "Dining", date(2024, time.March, 10)),
		expense(4, 20, "Rent", date(2024, time.January, 5)),
		expense(5, 20, "Rent", date(2024, time.February, 5)),
		expense(6, 20, "Rent", date(2024, time.March, 5)),
		expense(7, 99, "Travel", date(2024, time.March, 15)),
	}

	// when
	trends := DetectTrends(entries, 3, now)

	// then the lone Travel entry is skipped and the rest classified
	require.Len(t, trends, 2)
	assert.Equal(t, "Dining", trends[0].Category)
	assert.Equal(t, "increasing", trends[0].PatternType)
	assert.Equal(t, 150.0, trends[0].TrendPercentage)
	assert.Equal(t, "Rent", trends[1].Category)
	assert.Equal(t, "stable", trends[1].PatternType)
}
