package report

import "fintrack/internal/core"

// Summary holds the totals of a set of transactions.
type Summary struct {
	TotalIncome   core.Money `json:"totalIncome"`
	TotalExpenses core.Money `json:"totalExpenses"`
	NetBalance    core.Money `json:"netBalance"`
	Count         int        `json:"count"`
}

// Summarize totals the transactions inside r. NetBalance is always
// TotalIncome minus TotalExpenses.
func Summarize(txs []core.Transaction, r Range) Summary {
	var s Summary
	for _, t := range txs {
		if !r.Contains(t.Date) {
			continue
		}
		switch t.Type {
		case core.Income:
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
		case core.Expense:
			s.TotalExpenses = s.TotalExpenses.Add(t.Amount)
		default:
			continue
		}
		s.Count++
	}
	s.NetBalance = s.TotalIncome.Sub(s.TotalExpenses)
	return s
}

// SavingsRate is the share of income kept, as a percentage. 0 without income.
func (s Summary) SavingsRate() float64 {
	return s.NetBalance.Ratio(s.TotalIncome)
}
