package report

import (
	"time"

	"fintrack/internal/core"
)

// LabelFormat is a time layout used to key month buckets.
type LabelFormat string

const (
	// LabelMonthYear ("Jan 2025") keeps months of different years apart.
	LabelMonthYear LabelFormat = "Jan 2006"
	// LabelMonthName ("January") collides across years; use on ranges of
	// at most twelve months.
	LabelMonthName LabelFormat = "January"
)

// DefaultComparisonMonths is the window of the month comparison chart.
const DefaultComparisonMonths = 6

// ParseLabelFormat maps "short"/"month" and "long"/"monthYear" to a format.
func ParseLabelFormat(s string) (LabelFormat, bool) {
	switch s {
	case "", "long", "monthYear":
		return LabelMonthYear, true
	case "short", "month":
		return LabelMonthName, true
	}
	return "", false
}

// MonthBucket holds the income and expense totals of one calendar month.
type MonthBucket struct {
	Label    string     `json:"label"`
	Month    time.Time  `json:"month"`
	Income   core.Money `json:"income"`
	Expenses core.Money `json:"expenses"`
}

func (b MonthBucket) Net() core.Money {
	return b.Income.Sub(b.Expenses)
}

// BucketByMonth groups the transactions in r by calendar month, one bucket
// per month from the first day of r.Start's month up to r.End, ascending.
// Empty months are present with zero totals. When r is unbounded the span
// of the transactions is used.
//
// Buckets are keyed by their label: if two months format to the same label
// the first one keeps its position and both months accumulate into it.
// Transactions whose label has no bucket are dropped.
func BucketByMonth(txs []core.Transaction, r Range, format LabelFormat) []MonthBucket {
	if format == "" {
		format = LabelMonthYear
	}
	if !r.Bounded() {
		s, ok := span(txs)
		if !ok {
			return []MonthBucket{}
		}
		r = s
	}
	if r.End.Before(r.Start) {
		return []MonthBucket{}
	}

	loc := r.Start.Location()
	layout := string(format)
	buckets := []MonthBucket{}
	index := map[string]int{}
	cur := time.Date(r.Start.Year(), r.Start.Month(), 1, 0, 0, 0, 0, loc)
	for !cur.After(r.End) {
		label := cur.Format(layout)
		if _, seen := index[label]; !seen {
			index[label] = len(buckets)
			buckets = append(buckets, MonthBucket{Label: label, Month: cur})
		}
		cur = cur.AddDate(0, 1, 0)
	}

	for _, t := range txs {
		if !r.Contains(t.Date) {
			continue
		}
		i, ok := index[t.Date.In(loc).Format(layout)]
		if !ok {
			continue
		}
		switch t.Type {
		case core.Income:
			buckets[i].Income = buckets[i].Income.Add(t.Amount)
		case core.Expense:
			buckets[i].Expenses = buckets[i].Expenses.Add(t.Amount)
		}
	}
	return buckets
}

// CompareMonths buckets the last months calendar months of r by month
// name. The window starts at the later of r.Start and the first day of the
// month months-1 before r.End's month. months <= 0 means the default of six.
func CompareMonths(txs []core.Transaction, r Range, months int) []MonthBucket {
	if months <= 0 {
		months = DefaultComparisonMonths
	}
	if !r.Bounded() {
		s, ok := span(txs)
		if !ok {
			return []MonthBucket{}
		}
		r = s
	}
	end := r.End.In(r.Start.Location())
	windowStart := time.Date(end.Year(), end.Month()-time.Month(months-1), 1, 0, 0, 0, 0, end.Location())
	start := r.Start
	if windowStart.After(start) {
		start = windowStart
	}
	format := LabelMonthName
	if months > 12 {
		format = LabelMonthYear
	}
	return BucketByMonth(txs, Range{Start: start, End: r.End}, format)
}
