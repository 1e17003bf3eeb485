package report

import (
	"sort"
	"time"

	"fintrack/internal/core"
)

const DefaultRecentLimit = 5

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

// Trend compares the expenses of ref's calendar month with the month before.
// PercentChange is nil when the previous month has no expenses.
type Trend struct {
	Current       core.Money `json:"current"`
	Previous      core.Money `json:"previous"`
	PercentChange *float64   `json:"percentChange"`
	Direction     Direction  `json:"direction"`
}

// MonthOverMonth computes the expense trend for ref's month.
func MonthOverMonth(txs []core.Transaction, ref time.Time) Trend {
	loc := ref.Location()
	y, m, _ := ref.Date()
	this := NormalizeRange(time.Date(y, m, 1, 0, 0, 0, 0, loc), time.Date(y, m+1, 0, 0, 0, 0, 0, loc))
	last := NormalizeRange(time.Date(y, m-1, 1, 0, 0, 0, 0, loc), time.Date(y, m, 0, 0, 0, 0, 0, loc))

	tr := Trend{
		Current:  Summarize(txs, this).TotalExpenses,
		Previous: Summarize(txs, last).TotalExpenses,
	}
	switch {
	case tr.Current.Cents > tr.Previous.Cents:
		tr.Direction = DirectionUp
	case tr.Current.Cents < tr.Previous.Cents:
		tr.Direction = DirectionDown
	default:
		tr.Direction = DirectionFlat
	}
	if tr.Previous.Cents > 0 {
		pct := tr.Current.Sub(tr.Previous).Ratio(tr.Previous)
		tr.PercentChange = &pct
	}
	return tr
}

// Recent returns the n newest transactions. Same-date entries are ordered by
// descending ID. n <= 0 returns all of them.
func Recent(txs []core.Transaction, n int) []core.Transaction {
	out := make([]core.Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Date.Compare(out[j].Date); c != 0 {
			return c > 0
		}
		return out[i].ID > out[j].ID
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
