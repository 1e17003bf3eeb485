// Package worker turns ledger events into rows of an export sheet.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
)

const (
	// DefaultDedupSize is how many recent message ids are remembered.
	DefaultDedupSize = 1024
	dedupTTL         = 24 * time.Hour
)

// Stats counts what the worker did since start.
type Stats struct {
	Exported   int64
	Duplicates int64
	Failed     int64
}

// ExportWorker appends one audit row per ledger event. Redelivered events
// (same message id) are written once.
type ExportWorker struct {
	sheet  sheets.LedgerWriter
	seen   cache.Cache[struct{}]
	logger *log.Logger

	exported   atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
}

// NewExportWorker builds a worker; seen may be nil for a default LRU.
func NewExportWorker(sheet sheets.LedgerWriter, seen cache.Cache[struct{}], logger *log.Logger) *ExportWorker {
	if seen == nil {
		seen = cache.NewLRUCache[struct{}](DefaultDedupSize, dedupTTL)
	}
	if logger == nil {
		logger = log.Default(log.ComponentWorker)
	}
	return &ExportWorker{sheet: sheet, seen: seen, logger: logger}
}

// Prepare writes the header row when the sink supports it.
func (w *ExportWorker) Prepare(ctx context.Context) error {
	if h, ok := w.sheet.(sheets.HeaderEnsurer); ok {
		if err := h.EnsureHeader(ctx); err != nil {
			return fmt.Errorf("ensure header: %w", err)
		}
	}
	return nil
}

// HandleEvent is an amqp.Handler. A returned error requeues the delivery.
func (w *ExportWorker) HandleEvent(ctx context.Context, e *amqp.LedgerEvent) error {
	if _, dup := w.seen.Get(ctx, e.MessageID); dup {
		w.duplicates.Add(1)
		w.logger.DebugContext(ctx, "Skipping duplicate ledger event",
			log.FieldMessageID, e.MessageID)
		return nil
	}

	ref, err := w.sheet.Append(ctx, RowFromEvent(e))
	if err != nil {
		w.failed.Add(1)
		w.logger.ErrorContext(ctx, "Failed to export ledger event",
			log.FieldMessageID, e.MessageID,
			log.FieldAction, e.Action,
			log.FieldTransactionID, e.Transaction.ID,
			log.FieldError, err)
		return fmt.Errorf("append ledger row: %w", err)
	}

	w.seen.Set(ctx, e.MessageID, struct{}{})
	w.exported.Add(1)
	w.logger.InfoContext(ctx, "Exported ledger event",
		log.FieldMessageID, e.MessageID,
		log.FieldAction, e.Action,
		log.FieldTransactionID, e.Transaction.ID,
		log.FieldAmountCents, e.Transaction.Amount.Cents,
		log.FieldSheetsRef, ref)
	return nil
}

func (w *ExportWorker) Stats() Stats {
	return Stats{
		Exported:   w.exported.Load(),
		Duplicates: w.duplicates.Load(),
		Failed:     w.failed.Load(),
	}
}

// RowFromEvent renders an event as an audit row.
func RowFromEvent(e *amqp.LedgerEvent) sheets.LedgerRow {
	return sheets.LedgerRow{
		Timestamp:   e.Timestamp,
		Action:      string(e.Action),
		Transaction: e.Transaction,
	}
}
