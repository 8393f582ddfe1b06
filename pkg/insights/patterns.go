package insights

import (
	"math"
	"sort"
	"time"

	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/transaction"
)

// CategoryBreakdown is one category's share of recent spending.
type CategoryBreakdown struct {
	Category         string  `json:"category"`
	Total            float64 `json:"total"`
	Percentage       float64 `json:"percentage"`
	TransactionCount int     `json:"transactionCount"`
	AvgTransaction   float64 `json:"avgTransaction"`
}

// MonthlyTotal is one calendar month's spending.
type MonthlyTotal struct {
	Month            string  `json:"month"`
	Total            float64 `json:"total"`
	TransactionCount int     `json:"transactionCount"`
}

type DayPattern struct {
	Day     string  `json:"day"`
	Total   float64 `json:"total"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

type WeekendComparison struct {
	WeekendAvg float64 `json:"weekendAvg"`
	WeekdayAvg float64 `json:"weekdayAvg"`
	Ratio      float64 `json:"ratio"`
}

type WeeklyPattern struct {
	Days             []DayPattern      `json:"days"`
	PeakDay          string            `json:"peakDay,omitempty"`
	QuietestDay      string            `json:"quietestDay,omitempty"`
	WeekendVsWeekday WeekendComparison `json:"weekendVsWeekday"`
}

// Trend describes how one category's spending moves over the window.
type Trend struct {
	Category         string  `json:"category"`
	PatternType      string  `json:"patternType"`
	AvgAmount        float64 `json:"avgAmount"`
	TrendPercentage  float64 `json:"trendPercentage"`
	TransactionCount int     `json:"transactionCount"`
}

type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
}

type Summary struct {
	TotalSpending      float64    `json:"totalSpending"`
	AvgMonthlySpending float64    `json:"avgMonthlySpending"`
	TopCategory        string     `json:"topCategory,omitempty"`
	TransactionCount   int        `json:"transactionCount"`
	DateRange          *DateRange `json:"dateRange,omitempty"`
}

type SpendingReport struct {
	Summary           Summary             `json:"summary"`
	CategoryBreakdown []CategoryBreakdown `json:"categoryBreakdown"`
	MonthlyTrend      []MonthlyTotal      `json:"monthlyTrend"`
	WeeklyPattern     WeeklyPattern       `json:"weeklyPattern"`
	Trends            []Trend             `json:"trends"`
}

// dayNames is Monday-first so the weekly view reads like a calendar week.
var dayNames = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func SpendingSummary(entries []transaction.Transaction) Summary {
	expenses := expensesOf(entries)
	if len(expenses) == 0 {
		return Summary{}
	}

	total := 0.0
	first, last := expenses[0].Date, expenses[0].Date
	byCategory := map[string]float64{}
	for _, entry := range expenses {
		amount := amountOf(entry)
		total += amount
		byCategory[categoryOf(entry)] += amount
		if entry.Date.Before(first) {
			first = entry.Date
		}
		if entry.Date.After(last) {
			last = entry.Date
		}
	}

	rangeDays := int(last.Sub(first).Hours() / 24)
	months := math.Max(float64(rangeDays)/30, 1)

	topCategory := ""
	topTotal := math.Inf(-1)
	for category, categoryTotal := range byCategory {
		if categoryTotal > topTotal {
			topCategory, topTotal = category, categoryTotal
		}
	}

	return Summary{
		TotalSpending:      round2(total),
		AvgMonthlySpending: round2(total / months),
		TopCategory:        topCategory,
		TransactionCount:   len(expenses),
		DateRange:          &DateRange{Start: first, End: last, Days: rangeDays},
	}
}

func CategoryBreakdowns(entries []transaction.Transaction, months int, now time.Time) []CategoryBreakdown {
	cutoff := now.AddDate(0, 0, -months*30)
	recent := filterExpenses(entries, func(entry transaction.Transaction) bool {
		return !entry.Date.Before(cutoff)
	})
	if len(recent) == 0 {
		return nil
	}

	total := 0.0
	type bucket struct {
		total float64
		count int
	}
	buckets := map[string]*bucket{}
	for _, entry := range recent {
		amount := amountOf(entry)
		total += amount
		category := categoryOf(entry)
		if buckets[category] == nil {
			buckets[category] = &bucket{}
		}
		buckets[category].total += amount
		buckets[category].count++
	}

	breakdown := make([]CategoryBreakdown, 0, len(buckets))
	for category, b := range buckets {
		percentage := 0.0
		if total > 0 {
			percentage = round1(b.total / total * 100)
		}
		breakdown = append(breakdown, CategoryBreakdown{
			Category:         category,
			Total:            round2(b.total),
			Percentage:       percentage,
			TransactionCount: b.count,
			AvgTransaction:   round2(b.total / float64(b.count)),
		})
	}
	sort.Slice(breakdown, func(i, j int) bool { return breakdown[i].Total > breakdown[j].Total })
	return breakdown
}

func MonthlyTrend(entries []transaction.Transaction, months int) []MonthlyTotal {
	expenses := expensesOf(entries)
	if len(expenses) == 0 {
		return nil
	}

	type bucket struct {
		total float64
		count int
	}
	buckets := map[string]*bucket{}
	for _, entry := range expenses {
		month := entry.Date.Format("2006-01")
		if buckets[month] == nil {
			buckets[month] = &bucket{}
		}
		buckets[month].total += amountOf(entry)
		buckets[month].count++
	}

	keys := make([]string, 0, len(buckets))
	for month := range buckets {
		keys = append(keys, month)
	}
	sort.Strings(keys)
	if len(keys) > months {
		keys = keys[len(keys)-months:]
	}

	trend := make([]MonthlyTotal, 0, len(keys))
	for _, month := range keys {
		trend = append(trend, MonthlyTotal{
			Month:            month,
			Total:            round2(buckets[month].total),
			TransactionCount: buckets[month].count,
		})
	}
	return trend
}

func WeekdayPattern(entries []transaction.Transaction) WeeklyPattern {
	expenses := expensesOf(entries)
	pattern := WeeklyPattern{Days: make([]DayPattern, 7)}
	for i := range pattern.Days {
		pattern.Days[i].Day = dayNames[i]
	}
	if len(expenses) == 0 {
		return pattern
	}

	totals := make([]float64, 7)
	counts := make([]int, 7)
	var weekendSum, weekdaySum float64
	var weekendCount, weekdayCount int
	for _, entry := range expenses {
		day := mondayIndex(entry.Date.Weekday())
		amount := amountOf(entry)
		totals[day] += amount
		counts[day]++
		if day >= 5 {
			weekendSum += amount
			weekendCount++
		} else {
			weekdaySum += amount
			weekdayCount++
		}
	}

	peak, quiet := 0, 0
	for i := 0; i < 7; i++ {
		pattern.Days[i].Total = round2(totals[i])
		pattern.Days[i].Count = counts[i]
		if counts[i] > 0 {
			pattern.Days[i].Average = round2(totals[i] / float64(counts[i]))
		}
		if totals[i] > totals[peak] {
			peak = i
		}
		if totals[i] < totals[quiet] {
			quiet = i
		}
	}
	pattern.PeakDay = dayNames[peak]
	pattern.QuietestDay = dayNames[quiet]

	comparison := WeekendComparison{}
	if weekendCount > 0 {
		comparison.WeekendAvg = round2(weekendSum / float64(weekendCount))
	}
	if weekdayCount > 0 {
		comparison.WeekdayAvg = round2(weekdaySum / float64(weekdayCount))
	}
	if comparison.WeekdayAvg > 0 {
		comparison.Ratio = round2(comparison.WeekendAvg / comparison.WeekdayAvg)
	}
	pattern.WeekendVsWeekday = comparison
	return pattern
}

// DetectTrends fits a least-squares line per category over the window and
// classifies the projected change. Categories with fewer than three recent
// entries are skipped.
func DetectTrends(entries []transaction.Transaction, months int, now time.Time) []Trend {
	cutoff := now.AddDate(0, 0, -months*30)
	recent := filterExpenses(entries, func(entry transaction.Transaction) bool {
		return !entry.Date.Before(cutoff)
	})
	if len(recent) == 0 {
		return nil
	}

	byCategory := map[string][]transaction.Transaction{}
	for _, entry := range recent {
		category := categoryOf(entry)
		byCategory[category] = append(byCategory[category], entry)
	}

	var trends []Trend
	for category, group := range byCategory {
		if len(group) < 3 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].Date.Before(group[j].Date) })

		amounts := make([]float64, len(group))
		for i, entry := range group {
			amounts[i] = amountOf(entry)
		}
		slope := leastSquaresSlope(amounts)
		avg := mean(amounts)

		trendPct := 0.0
		if avg > 0 {
			trendPct = slope * float64(len(amounts)) / avg * 100
		}
		patternType := "stable"
		if math.Abs(trendPct) >= 10 {
			if trendPct > 0 {
				patternType = "increasing"
			} else {
				patternType = "decreasing"
			}
		}

		trends = append(trends, Trend{
			Category:         category,
			PatternType:      patternType,
			AvgAmount:        round2(avg),
			TrendPercentage:  round1(trendPct),
			TransactionCount: len(group),
		})
	}
	sort.Slice(trends, func(i, j int) bool {
		return math.Abs(trends[i].TrendPercentage) > math.Abs(trends[j].TrendPercentage)
	})
	return trends
}

func AnalyzeSpending(entries []transaction.Transaction, now time.Time) SpendingReport {
	return SpendingReport{
		Summary:           SpendingSummary(entries),
		CategoryBreakdown: CategoryBreakdowns(entries, 3, now),
		MonthlyTrend:      MonthlyTrend(entries, 6),
		WeeklyPattern:     WeekdayPattern(entries),
		Trends:            DetectTrends(entries, 3, now),
	}
}

func expensesOf(entries []transaction.Transaction) []transaction.Transaction {
	return filterExpenses(entries, func(transaction.Transaction) bool { return true })
}

func filterExpenses(entries []transaction.Transaction, keep func(transaction.Transaction) bool) []transaction.Transaction {
	var expenses []transaction.Transaction
	for _, entry := range entries {
		if entry.Kind == transaction.KindExpense && keep(entry) {
			expenses = append(expenses, entry)
		}
	}
	return expenses
}

func amountOf(entry transaction.Transaction) float64 {
	return entry.Amount.InexactFloat64()
}

func categoryOf(entry transaction.Transaction) string {
	if entry.Category == "" {
		return "Uncategorized"
	}
	return entry.Category
}

// mondayIndex maps Go's Sunday-first weekday to a Monday-first index.
func mondayIndex(weekday time.Weekday) int {
	return (int(weekday) + 6) % 7
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStd is the n-1 standard deviation; zero for fewer than two values.
func sampleStd(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	avg := mean(values)
	sum := 0.0
	for _, v := range values {
		sum += (v - avg) * (v - avg)
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

func leastSquaresSlope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}
	xMean := (n - 1) / 2
	yMean := mean(values)
	var num, den float64
	for i, v := range values {
		dx := float64(i) - xMean
		num += dx * (v - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
