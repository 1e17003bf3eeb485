package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"fintrack/internal/core"
)

// SortField names the key search results are ordered by.
type SortField string

const (
	SortByDate     SortField = "date"
	SortByAmount   SortField = "amount"
	SortByCategory SortField = "category"
)

// ParseSortField accepts "", "date", "amount" and "category". Empty means date.
func ParseSortField(s string) (SortField, error) {
	switch SortField(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortByDate:
		return SortByDate, nil
	case SortByAmount:
		return SortByAmount, nil
	case SortByCategory:
		return SortByCategory, nil
	}
	return "", fmt.Errorf("unknown sort field %q", s)
}

// Criteria narrows and orders a transaction list. Zero values impose no
// constraint; the default order is newest first.
type Criteria struct {
	Query     string      `json:"query,omitempty"` // case-insensitive substring of Description
	Category  string      `json:"category,omitempty"`
	Type      core.TxType `json:"type,omitempty"`
	Start     time.Time   `json:"start"`
	End       time.Time   `json:"end"`
	MinAmount *core.Money `json:"minAmount,omitempty"`
	MaxAmount *core.Money `json:"maxAmount,omitempty"`
	SortBy    SortField   `json:"sortBy,omitempty"`
	SortAsc   bool        `json:"sortAsc,omitempty"`
}

// Match reports whether t satisfies every constraint of c. Date and amount
// bounds are inclusive and apply independently.
func (c Criteria) Match(t core.Transaction) bool {
	if c.Query != "" && !strings.Contains(strings.ToLower(t.Description), strings.ToLower(c.Query)) {
		return false
	}
	if c.Category != "" && t.Category != c.Category {
		return false
	}
	if c.Type != "" && t.Type != c.Type {
		return false
	}
	if !c.Start.IsZero() && t.Date.Before(c.Start) {
		return false
	}
	if !c.End.IsZero() && t.Date.After(c.End) {
		return false
	}
	if c.MinAmount != nil && t.Amount.Cents < c.MinAmount.Cents {
		return false
	}
	if c.MaxAmount != nil && t.Amount.Cents > c.MaxAmount.Cents {
		return false
	}
	return true
}

// Filter returns the matching transactions in the order c asks for. The
// sort is stable: ties keep their input order.
func Filter(txs []core.Transaction, c Criteria) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if c.Match(t) {
			out = append(out, t)
		}
	}
	Sort(out, c.SortBy, c.SortAsc)
	return out
}

// Sort orders txs in place by field. Category names compare with English
// collation, so "apple" sorts before "Banana".
func Sort(txs []core.Transaction, field SortField, asc bool) {
	var cmp func(a, b core.Transaction) int
	switch field {
	case SortByAmount:
		cmp = func(a, b core.Transaction) int { return compareInt64(a.Amount.Cents, b.Amount.Cents) }
	case SortByCategory:
		col := collate.New(language.English)
		cmp = func(a, b core.Transaction) int { return col.CompareString(a.Category, b.Category) }
	default:
		cmp = func(a, b core.Transaction) int { return a.Date.Compare(b.Date) }
	}
	sort.SliceStable(txs, func(i, j int) bool {
		if asc {
			return cmp(txs[i], txs[j]) < 0
		}
		return cmp(txs[i], txs[j]) > 0
	})
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
