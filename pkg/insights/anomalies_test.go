package insights

import (
	"testing"
	"time"

	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectAmountAnomaliesFlagsOutliers(t *testing.T) {
	// given ten ordinary expenses and one large one
	var entries []transaction.Transaction
	for i := 1; i <= 10; i++ {
		entries = append(entries, expense(i, 10, "Groceries", date(2024, time.March, i)))
	}
	entries = append(entries, expense(11, 200, "Electronics", date(2024, time.March, 15)))

	// when
	anomalies := DetectAmountAnomalies(entries)

	// then only the outlier is flagged
	require.Len(t, anomalies, 1)
	require.NotNil(t, anomalies[0].TransactionID)
	assert.Equal(t, 11, *anomalies[0].TransactionID)
	assert.Equal(t, "amount", anomalies[0].Type)
	assert.Greater(t, anomalies[0].ZScore, 2.5)
}

func TestDetectAmountAnomaliesUniformSpending(t *testing.T) {
	var entries []transaction.Transaction
	for i := 1; i <= 10; i++ {
		entries = append(entries, expense(i, 10, "Groceries", date(2024, time.March, i)))
	}

	assert.Empty(t, DetectAmountAnomalies(entries))
}

func TestDetectCategoryAnomaliesNeedsEnoughDataPoints(t *testing.T) {
	// given a category with six entries, one of them unusual, and a sparse one
	var entries []transaction.Transaction
	for i := 1; i <= 5; i++ {
		entries = append(entries, expense(i, 10, "Groceries", date(2024, time.March, i)))
	}
	entries = append(entries, expense(6, 60, "Groceries", date(2024, time.March, 10)))
	entries = append(entries, expense(7, 500, "Travel", date(2024, time.March, 11)))

	// when
	anomalies := DetectCategoryAnomalies(entries)

	// then the sparse Travel category is not judged
	require.Len(t, anomalies, 1)
	require.NotNil(t, anomalies[0].TransactionID)
	assert.Equal(t, 6, *anomalies[0].TransactionID)
	assert.Equal(t, "category", anomalies[0].Type)
	assert.Equal(t, "Groceries", anomalies[0].Category)
}

func TestDetectFrequencyAnomaliesFlagsBusyDays(t *testing.T) {
	// given nine quiet days and one with six purchases
	var entries []transaction.Transaction
	id := 0
	for day := 1; day <= 9; day++ {
		id++
		entries = append(entries, expense(id, 10, "Misc", date(2024, time.March, day)))
	}
	for i := 0; i < 6; i++ {
		id++
		entries = append(entries, expense(id, 10, "Misc", date(2024, time.March, 10)))
	}

	// when
	anomalies := DetectFrequencyAnomalies(entries)

	// then
	require.Len(t, anomalies, 1)
	assert.Equal(t, "frequency", anomalies[0].Type)
	assert.Equal(t, date(2024, time.March, 10), anomalies[0].Date)
	assert.Equal(t, 60.0, anomalies[0].Amount)
	assert.Nil(t, anomalies[0].TransactionID)
}

func TestDetectSpendingSpikesAgainstPrecedingWeek(t *testing.T) {
	// given two weeks of small daily totals followed by one huge day
	var entries []transaction.Transaction
	for day := 1; day <= 13; day++ {
		amount := int64(10)
		if day%2 == 0 {
			amount = 12
		}
		entries = append(entries, expense(day, amount, "Misc", date(2024, time.March, day)))
	}
	entries = append(entries, expense(14, 100, "Misc", date(2024, time.March, 14)))

	// when
	anomalies := DetectSpendingSpikes(entries)

	// then only the spike day is flagged
	require.Len(t, anomalies, 1)
	assert.Equal(t, "spike", anomalies[0].Type)
	assert.Equal(t, date(2024, time.March, 14), anomalies[0].Date)
	assert.Equal(t, SeverityHigh, anomalies[0].Severity)
}

func TestDetectAllAnomaliesDeduplicatesAndSorts(t *testing.T) {
	// given a ledger whose outlier trips both the amount and category checks
	var entries []transaction.Transaction
	for i := 1; i <= 10; i++ {
		entries = append(entries, expense(i, 10, "Groceries", date(2024, time.March, i)))
	}
	entries = append(entries, expense(11, 200, "Groceries", date(2024, time.March, 15)))

	// when
	all := DetectAllAnomalies(entries)

	// then the transaction appears once
	flagged := 0
	for _, anomaly := range all {
		if anomaly.TransactionID != nil && *anomaly.TransactionID == 11 {
			flagged++
		}
	}
	assert.Equal(t, 1, flagged)

	severityOrder := map[string]int{SeverityHigh: 0, SeverityMedium: 1, SeverityLow: 2}
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, severityOrder[all[i-1].Severity], severityOrder[all[i].Severity])
	}
}

func TestAnalyzeAnomaliesSummarizesBySeverity(t *testing.T) {
	// given
	var entries []transaction.Transaction
	for i := 1; i <= 10; i++ {
		entries = append(entries, expense(i, 10, "Groceries", date(2024, time.March, i)))
	}
	entries = append(entries, expense(11, 200, "Electronics", date(2024, time.March, 15)))

	// when
	report := AnalyzeAnomalies(entries)

	// then counts line up with the returned anomalies
	total := report.Summary.BySeverity[SeverityHigh] +
		report.Summary.BySeverity[SeverityMedium] +
		report.Summary.BySeverity[SeverityLow]
	assert.Equal(t, report.Summary.TotalAnomalies, total)
	assert.LessOrEqual(t, len(report.Anomalies), 20)
	assert.NotEmpty(t, report.Anomalies)
}
