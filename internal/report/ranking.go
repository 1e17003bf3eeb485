package report

import (
	"sort"

	"fintrack/internal/core"
)

// UnknownCategoryColor is used when a spent-on name has no category record.
const UnknownCategoryColor = "#e0e0e0"

const (
	DefaultTopLimit       = 5
	DefaultBreakdownLimit = 8
)

// CategoryAmount is the total spent under one category name.
type CategoryAmount struct {
	Name   string     `json:"name"`
	Amount core.Money `json:"amount"`
	Color  string     `json:"color"`
}

// Share is Amount as a percentage of total.
func (c CategoryAmount) Share(total core.Money) float64 {
	return c.Amount.Ratio(total)
}

// RankCategories totals expense transactions by category name and returns
// them sorted by amount descending. Equal amounts keep first-seen order.
// limit <= 0 returns every category.
//
// Colors come from the category record with the same name, preferring an
// expense category, else UnknownCategoryColor.
func RankCategories(txs []core.Transaction, cats []core.Category, limit int) []CategoryAmount {
	colors := categoryColors(cats)
	index := map[string]int{}
	ranked := []CategoryAmount{}
	for _, t := range txs {
		if t.Type != core.Expense {
			continue
		}
		i, ok := index[t.Category]
		if !ok {
			color, known := colors[t.Category]
			if !known {
				color = UnknownCategoryColor
			}
			i = len(ranked)
			index[t.Category] = i
			ranked = append(ranked, CategoryAmount{Name: t.Category, Color: color})
		}
		ranked[i].Amount = ranked[i].Amount.Add(t.Amount)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Amount.Cents > ranked[j].Amount.Cents
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func categoryColors(cats []core.Category) map[string]string {
	colors := make(map[string]string, len(cats))
	for _, c := range cats {
		if c.Type == core.Expense {
			colors[c.Name] = c.Color
			continue
		}
		if _, ok := colors[c.Name]; !ok {
			colors[c.Name] = c.Color
		}
	}
	return colors
}
