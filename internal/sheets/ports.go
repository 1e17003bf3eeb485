// Package sheets defines the outbound ports the ledger exporter writes to.
package sheets

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// LedgerHeader is the first row of an export sheet.
var LedgerHeader = []any{"Timestamp", "Action", "ID", "Date", "Type", "Category", "Amount", "Description"}

// LedgerRow is one audit line: a transaction snapshot and what happened to it.
type LedgerRow struct {
	Timestamp   time.Time
	Action      string
	Transaction core.Transaction
}

// Values renders the row in LedgerHeader order. Amounts are decimal strings
// so the sheet never sees a float.
func (r LedgerRow) Values() []any {
	t := r.Transaction
	return []any{
		r.Timestamp.UTC().Format(time.RFC3339),
		r.Action,
		fmt.Sprintf("%d", t.ID),
		t.Date.Format("2006-01-02"),
		string(t.Type),
		t.Category,
		t.Amount.String(),
		t.Description,
	}
}

// Ports for outbound adapters.
type (
	LedgerWriter interface {
		// Append writes one row and returns a reference to where it landed.
		Append(ctx context.Context, row LedgerRow) (rowRef string, err error)
	}

	// HeaderEnsurer is implemented by writers that can prepare an empty sheet.
	HeaderEnsurer interface {
		EnsureHeader(ctx context.Context) error
	}
)
