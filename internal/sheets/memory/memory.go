// Package memory is an in-process LedgerWriter, used for dry runs and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ports "fintrack/internal/sheets"
)

var (
	_ ports.LedgerWriter  = (*Sheet)(nil)
	_ ports.HeaderEnsurer = (*Sheet)(nil)
)

// Sheet keeps rendered rows in memory, header first once EnsureHeader ran.
type Sheet struct {
	mu   sync.Mutex
	rows [][]any
	failNext int
}

func New() *Sheet { return &Sheet{} }

// Append stores the row and returns a synthetic row reference.
func (s *Sheet) Append(_ context.Context, row ports.LedgerRow) (string, error) {
	if row.Transaction.ID <= 0 {
		return "", errors.New("ledger row without transaction id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext > 0 {
		s.failNext--
		return "", errors.New("sheet unavailable")
	}
	s.rows = append(s.rows, row.Values())
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

func (s *Sheet) EnsureHeader(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rows) == 0 {
		s.rows = append(s.rows, ports.LedgerHeader)
	}
	return nil
}

// FailNext makes the next n appends return an error.
func (s *Sheet) FailNext(n int) {
	s.mu.Lock()
	s.failNext = n
	s.mu.Unlock()
}

// Rows returns a copy of everything written so far.
func (s *Sheet) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}
