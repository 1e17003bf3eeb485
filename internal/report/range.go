// Package report is the reporting engine: pure functions that turn an
// already-fetched snapshot of transactions and categories into summaries,
// month series and category rankings.
//
// Nothing here touches a store, a clock or shared state. Every function
// returns fresh values and tolerates empty input.
package report

import (
	"time"

	"fintrack/internal/core"
)

// Range is a closed interval [Start, End]. A zero bound means unbounded.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Preset names a range relative to a reference instant.
type Preset string

const (
	Last7Days    Preset = "last7Days"
	LastMonth    Preset = "lastMonth"
	Last3Months  Preset = "last3Months"
	LastYear     Preset = "lastYear"
	AllTime      Preset = "allTime"
	CurrentMonth Preset = "currentMonth"
	ThisYear     Preset = "thisYear"
)

// Presets lists every supported preset in display order.
var Presets = []Preset{Last7Days, LastMonth, Last3Months, LastYear, AllTime, CurrentMonth, ThisYear}

// DefaultEpoch is the allTime floor when none is configured.
var DefaultEpoch = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// NormalizeRange floors start to 00:00:00.000 and ceils end to 23:59:59.999,
// each in its own location. Zero bounds stay zero.
func NormalizeRange(start, end time.Time) Range {
	r := Range{}
	if !start.IsZero() {
		r.Start = StartOfDay(start)
	}
	if !end.IsZero() {
		r.End = EndOfDay(end)
	}
	return r
}

// StartOfDay is midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay is the last millisecond of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// PresetRange resolves p against ref using DefaultEpoch for allTime.
func PresetRange(p Preset, ref time.Time) (Range, bool) {
	return PresetRangeWithEpoch(p, ref, time.Time{})
}

// PresetRangeWithEpoch resolves p against ref. Calendar arithmetic happens
// in ref's location and overflowing days normalise forward (May 31 minus
// three months is March 3). The epoch is only used by allTime.
func PresetRangeWithEpoch(p Preset, ref time.Time, epoch time.Time) (Range, bool) {
	loc := ref.Location()
	y, m, d := ref.Date()
	var start, end time.Time

	switch p {
	case Last7Days:
		start, end = time.Date(y, m, d-6, 0, 0, 0, 0, loc), ref
	case LastMonth:
		start, end = time.Date(y, m-1, 1, 0, 0, 0, 0, loc), time.Date(y, m, 0, 0, 0, 0, 0, loc)
	case Last3Months:
		start, end = time.Date(y, m-3, d, 0, 0, 0, 0, loc), ref
	case LastYear:
		start, end = time.Date(y-1, m, d, 0, 0, 0, 0, loc), ref
	case AllTime:
		if epoch.IsZero() {
			epoch = DefaultEpoch
		}
		ey, em, ed := epoch.Date()
		start, end = time.Date(ey, em, ed, 0, 0, 0, 0, loc), ref
	case CurrentMonth:
		start, end = time.Date(y, m, 1, 0, 0, 0, 0, loc), time.Date(y, m+1, 0, 0, 0, 0, 0, loc)
	case ThisYear:
		start, end = time.Date(y, time.January, 1, 0, 0, 0, 0, loc), ref
	default:
		return Range{}, false
	}
	return NormalizeRange(start, end), true
}

// Bounded reports whether both ends are set. Unbounded ranges do not filter.
func (r Range) Bounded() bool {
	return !r.Start.IsZero() && !r.End.IsZero()
}

// Contains is inclusive on both ends. An unbounded range contains everything.
func (r Range) Contains(t time.Time) bool {
	if !r.Bounded() {
		return true
	}
	return !t.Before(r.Start) && !t.After(r.End)
}

// Days is the inclusive number of calendar days covered, 0 when unbounded.
func (r Range) Days() int {
	if !r.Bounded() || r.End.Before(r.Start) {
		return 0
	}
	sy, sm, sd := r.Start.Date()
	ey, em, ed := r.End.In(r.Start.Location()).Date()
	a := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	return int((b.Unix()-a.Unix())/86400) + 1
}

// Months is the inclusive number of calendar months covered, 0 when unbounded.
func (r Range) Months() int {
	if !r.Bounded() || r.End.Before(r.Start) {
		return 0
	}
	end := r.End.In(r.Start.Location())
	return (end.Year()-r.Start.Year())*12 + int(end.Month()) - int(r.Start.Month()) + 1
}

// FilterRange keeps the transactions inside r, preserving input order.
func FilterRange(txs []core.Transaction, r Range) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if r.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out
}

// span returns the day-normalised range covering every transaction date.
func span(txs []core.Transaction) (Range, bool) {
	if len(txs) == 0 {
		return Range{}, false
	}
	lo, hi := txs[0].Date, txs[0].Date
	for _, t := range txs[1:] {
		if t.Date.Before(lo) {
			lo = t.Date
		}
		if t.Date.After(hi) {
			hi = t.Date
		}
	}
	return NormalizeRange(lo, hi.In(lo.Location())), true
}
