package insights

import (
	"fmt"
	"sort"
	"time"

	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/transaction"
)

const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Anomaly flags a suspicious ledger entry or day. TransactionID is nil for
// day-level findings (frequency, spike).
type Anomaly struct {
	TransactionID *int      `json:"transactionId,omitempty"`
	Amount        float64   `json:"amount"`
	Category      string    `json:"category"`
	Date          time.Time `json:"date"`
	Type          string    `json:"anomalyType"`
	Severity      string    `json:"severity"`
	Description   string    `json:"description"`
	ZScore        float64   `json:"zScore"`
}

type AnomalySummary struct {
	TotalAnomalies  int            `json:"totalAnomalies"`
	BySeverity      map[string]int `json:"bySeverity"`
	ByType          map[string]int `json:"byType"`
	HasHighPriority bool           `json:"hasHighPriority"`
}

type AnomalyReport struct {
	Summary   AnomalySummary `json:"summary"`
	Anomalies []Anomaly      `json:"anomalies"`
}

// DetectAmountAnomalies flags expenses whose z-score against the overall
// amount distribution exceeds the threshold (2.5).
func DetectAmountAnomalies(entries []transaction.Transaction) []Anomaly {
	expenses := expensesOf(entries)
	if len(expenses) == 0 {
		return nil
	}

	amounts := make([]float64, len(expenses))
	for i, entry := range expenses {
		amounts[i] = amountOf(entry)
	}
	avg := mean(amounts)
	std := sampleStd(amounts)
	if std == 0 {
		return nil
	}

	var anomalies []Anomaly
	for i, entry := range expenses {
		z := (amounts[i] - avg) / std
		if z <= 2.5 {
			continue
		}
		severity := SeverityLow
		if z > 4 {
			severity = SeverityHigh
		} else if z > 3 {
			severity = SeverityMedium
		}
		id := entry.ID
		anomalies = append(anomalies, Anomaly{
			TransactionID: &id,
			Amount:        round2(amounts[i]),
			Category:      categoryOf(entry),
			Date:          entry.Date,
			Type:          "amount",
			Severity:      severity,
			Description:   fmt.Sprintf("Transaction %.2f is %.1fx above your average of %.2f", amounts[i], z, avg),
			ZScore:        round2(z),
		})
	}
	return anomalies
}

// DetectCategoryAnomalies flags expenses that stand out within their own
// category. Categories with fewer than five entries are skipped.
func DetectCategoryAnomalies(entries []transaction.Transaction) []Anomaly {
	expenses := expensesOf(entries)
	if len(expenses) == 0 {
		return nil
	}

	byCategory := map[string][]transaction.Transaction{}
	for _, entry := range expenses {
		category := categoryOf(entry)
		byCategory[category] = append(byCategory[category], entry)
	}

	var anomalies []Anomaly
	for category, group := range byCategory {
		if len(group) < 5 {
			continue
		}
		amounts := make([]float64, len(group))
		for i, entry := range group {
			amounts[i] = amountOf(entry)
		}
		avg := mean(amounts)
		std := sampleStd(amounts)
		if std == 0 {
			continue
		}

		for i, entry := range group {
			z := (amounts[i] - avg) / std
			if z <= 2.0 {
				continue
			}
			severity := SeverityLow
			if z > 3 {
				severity = SeverityHigh
			} else if z > 2.5 {
				severity = SeverityMedium
			}
			id := entry.ID
			anomalies = append(anomalies, Anomaly{
				TransactionID: &id,
				Amount:        round2(amounts[i]),
				Category:      category,
				Date:          entry.Date,
				Type:          "category",
				Severity:      severity,
				Description:   fmt.Sprintf("Unusual %s expense: %.2f vs avg %.2f", category, amounts[i], avg),
				ZScore:        round2(z),
			})
		}
	}
	return anomalies
}

// DetectFrequencyAnomalies flags days with an unusual number of expenses.
// Needs at least seven distinct days of data.
func DetectFrequencyAnomalies(entries []transaction.Transaction) []Anomaly {
	expenses := expensesOf(entries)
	if len(expenses) == 0 {
		return nil
	}

	counts := map[string]int{}
	totals := map[string]float64{}
	for _, entry := range expenses {
		day := entry.Date.Format("2006-01-02")
		counts[day]++
		totals[day] += amountOf(entry)
	}
	if len(counts) < 7 {
		return nil
	}

	days := make([]string, 0, len(counts))
	values := make([]float64, 0, len(counts))
	for day, count := range counts {
		days = append(days, day)
		values = append(values, float64(count))
	}
	sort.Strings(days)
	avg := mean(values)
	std := sampleStd(values)
	if std == 0 {
		return nil
	}

	var anomalies []Anomaly
	for _, day := range days {
		z := (float64(counts[day]) - avg) / std
		if z <= 2.5 {
			continue
		}
		severity := SeverityMedium
		if z >= 3.5 {
			severity = SeverityHigh
		}
		date, _ := time.Parse("2006-01-02", day)
		anomalies = append(anomalies, Anomaly{
			Amount:      round2(totals[day]),
			Category:    "Multiple",
			Date:        date,
			Type:        "frequency",
			Severity:    severity,
			Description: fmt.Sprintf("Unusual activity: %d transactions on %s (avg: %.1f/day)", counts[day], day, avg),
			ZScore:      round2(z),
		})
	}
	return anomalies
}

// DetectSpendingSpikes flags days whose total stands out against the rolling
// window of the preceding seven days. The baseline excludes the current day,
// otherwise a single spike inflates the deviation enough to hide itself.
// Needs at least fourteen expenses and two windows of days.
func DetectSpendingSpikes(entries []transaction.Transaction) []Anomaly {
	const window = 7

	expenses := expensesOf(entries)
	if len(expenses) < 14 {
		return nil
	}

	totals := map[string]float64{}
	for _, entry := range expenses {
		totals[entry.Date.Format("2006-01-02")] += amountOf(entry)
	}
	if len(totals) < window*2 {
		return nil
	}

	days := make([]string, 0, len(totals))
	for day := range totals {
		days = append(days, day)
	}
	sort.Strings(days)

	var anomalies []Anomaly
	for i, day := range days {
		start := i - window
		if start < 0 {
			start = 0
		}
		baseline := make([]float64, 0, window)
		for _, past := range days[start:i] {
			baseline = append(baseline, totals[past])
		}
		if len(baseline) < 3 {
			continue
		}
		avg := mean(baseline)
		std := sampleStd(baseline)
		if std == 0 {
			continue
		}

		z := (totals[day] - avg) / std
		if z <= 2.5 {
			continue
		}
		severity := SeverityMedium
		if z > 3.5 {
			severity = SeverityHigh
		}
		date, _ := time.Parse("2006-01-02", day)
		anomalies = append(anomalies, Anomaly{
			Amount:      round2(totals[day]),
			Category:    "Daily Total",
			Date:        date,
			Type:        "spike",
			Severity:    severity,
			Description: fmt.Sprintf("Spending spike: %.2f vs %d-day avg %.2f", totals[day], window, avg),
			ZScore:      round2(z),
		})
	}
	return anomalies
}

// DetectAllAnomalies merges every detector, deduplicating per-transaction
// findings and sorting by severity then z-score.
func DetectAllAnomalies(entries []transaction.Transaction) []Anomaly {
	var all []Anomaly
	seen := map[int]bool{}

	for _, anomaly := range DetectAmountAnomalies(entries) {
		all = append(all, anomaly)
		if anomaly.TransactionID != nil {
			seen[*anomaly.TransactionID] = true
		}
	}
	for _, anomaly := range DetectCategoryAnomalies(entries) {
		if anomaly.TransactionID != nil && seen[*anomaly.TransactionID] {
			continue
		}
		all = append(all, anomaly)
		if anomaly.TransactionID != nil {
			seen[*anomaly.TransactionID] = true
		}
	}
	all = append(all, DetectFrequencyAnomalies(entries)...)
	all = append(all, DetectSpendingSpikes(entries)...)

	severityOrder := map[string]int{SeverityHigh: 0, SeverityMedium: 1, SeverityLow: 2}
	sort.SliceStable(all, func(i, j int) bool {
		if severityOrder[all[i].Severity] != severityOrder[all[j].Severity] {
			return severityOrder[all[i].Severity] < severityOrder[all[j].Severity]
		}
		return all[i].ZScore > all[j].ZScore
	})
	return all
}

func AnalyzeAnomalies(entries []transaction.Transaction) AnomalyReport {
	all := DetectAllAnomalies(entries)

	summary := AnomalySummary{
		TotalAnomalies: len(all),
		BySeverity:     map[string]int{SeverityHigh: 0, SeverityMedium: 0, SeverityLow: 0},
		ByType:         map[string]int{},
	}
	for _, anomaly := range all {
		summary.BySeverity[anomaly.Severity]++
		summary.ByType[anomaly.Type]++
	}
	summary.HasHighPriority = summary.BySeverity[SeverityHigh] > 0

	if len(all) > 20 {
		all = all[:20]
	}
	return AnomalyReport{Summary: summary, Anomalies: all}
}
