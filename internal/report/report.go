package report

import (
	"time"

	"fintrack/internal/core"
)

// Snapshot is the data a report is computed from.
type Snapshot struct {
	Transactions []core.Transaction
	Categories   []core.Category
}

// Options configures Build. Zero limits fall back to the defaults.
type Options struct {
	Range            Range
	Labels           LabelFormat
	TopLimit         int
	BreakdownLimit   int
	RecentLimit      int
	ComparisonMonths int
	// Reference anchors the month-over-month trend. Defaults to Range.End,
	// then to the newest transaction.
	Reference time.Time
}

func (o Options) withDefaults() Options {
	if o.Labels == "" {
		o.Labels = LabelMonthYear
	}
	if o.TopLimit <= 0 {
		o.TopLimit = DefaultTopLimit
	}
	if o.BreakdownLimit <= 0 {
		o.BreakdownLimit = DefaultBreakdownLimit
	}
	if o.RecentLimit <= 0 {
		o.RecentLimit = DefaultRecentLimit
	}
	if o.ComparisonMonths <= 0 {
		o.ComparisonMonths = DefaultComparisonMonths
	}
	return o
}

// Report bundles every view of the analytics page for one range.
type Report struct {
	Range         Range              `json:"range"`
	Days          int                `json:"days"`
	Summary       Summary            `json:"summary"`
	SavingsRate   float64            `json:"savingsRate"`
	Monthly       []MonthBucket      `json:"monthly"`
	Comparison    []MonthBucket      `json:"comparison"`
	TopCategories []CategoryAmount   `json:"topCategories"`
	Breakdown     []CategoryAmount   `json:"breakdown"`
	Recent        []core.Transaction `json:"recent"`
	Trend         *Trend             `json:"trend,omitempty"`
}

// Build computes a Report over the transactions of s that fall in o.Range.
// Short month labels are widened to month-year when the range spans more
// than twelve months, so buckets never merge across years.
func Build(s Snapshot, o Options) Report {
	o = o.withDefaults()
	inRange := FilterRange(s.Transactions, o.Range)
	labels := o.Labels
	if labels == LabelMonthName && (!o.Range.Bounded() || o.Range.Months() > 12) {
		labels = LabelMonthYear
	}

	sum := Summarize(inRange, o.Range)
	rep := Report{
		Range:         o.Range,
		Days:          o.Range.Days(),
		Summary:       sum,
		SavingsRate:   sum.SavingsRate(),
		Monthly:       BucketByMonth(inRange, o.Range, labels),
		Comparison:    CompareMonths(inRange, o.Range, o.ComparisonMonths),
		TopCategories: RankCategories(inRange, s.Categories, o.TopLimit),
		Breakdown:     RankCategories(inRange, s.Categories, o.BreakdownLimit),
		Recent:        Recent(inRange, o.RecentLimit),
	}

	ref := o.Reference
	if ref.IsZero() {
		ref = o.Range.End
	}
	if ref.IsZero() {
		if latest, ok := span(s.Transactions); ok {
			ref = latest.End
		}
	}
	if !ref.IsZero() {
		tr := MonthOverMonth(s.Transactions, ref)
		rep.Trend = &tr
	}
	return rep
}
