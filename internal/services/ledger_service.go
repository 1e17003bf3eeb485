package services

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/report"
	"fintrack/internal/store"
)

// Publisher delivers ledger events to the export pipeline.
type Publisher interface {
	Publish(ctx context.Context, e *amqp.LedgerEvent) error
}

// ChangeListener is told about every successful write.
type ChangeListener interface {
	Invalidate()
}

// LedgerService is the write path of the Record Store: it persists changes,
// publishes ledger events and invalidates derived reports.
type LedgerService struct {
	store     store.Store
	publisher Publisher
	listeners []ChangeListener
	logger    *log.Logger
	events    *log.StructuredLogger
}

// NewLedgerService wires a store with an optional publisher (nil disables
// events) and listeners notified after each write.
func NewLedgerService(s store.Store, publisher Publisher, logger *log.Logger, listeners ...ChangeListener) *LedgerService {
	if logger == nil {
		logger = log.Default(log.ComponentLedger)
	}
	return &LedgerService{
		store:     s,
		publisher: publisher,
		listeners: listeners,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
	}
}

func (s *LedgerService) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx)
}

func (s *LedgerService) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

func (s *LedgerService) SearchTransactions(ctx context.Context, c report.Criteria) ([]core.Transaction, error) {
	return s.store.SearchTransactions(ctx, c)
}

func (s *LedgerService) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	id, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	saved, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("reload transaction %d: %w", id, err)
	}

	s.changed(ctx, amqp.ActionCreated, saved)
	s.events.LogTransactionChange(ctx, log.OpCreate, saved.ID, saved.Type.String(), saved.Category, saved.Amount.Cents)
	return saved, nil
}

func (s *LedgerService) UpdateTransaction(ctx context.Context, id int64, p core.TransactionPatch) (core.Transaction, error) {
	if err := s.store.UpdateTransaction(ctx, id, p); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	saved, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("reload transaction %d: %w", id, err)
	}

	s.changed(ctx, amqp.ActionUpdated, saved)
	s.events.LogTransactionChange(ctx, log.OpUpdate, saved.ID, saved.Type.String(), saved.Category, saved.Amount.Cents)
	return saved, nil
}

// DeleteTransaction reports false when id did not exist.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) (bool, error) {
	before, err := s.store.GetTransaction(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load transaction %d: %w", id, err)
	}

	deleted, err := s.store.DeleteTransaction(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete transaction: %w", err)
	}
	if deleted {
		s.changed(ctx, amqp.ActionDeleted, before)
		s.events.LogTransactionChange(ctx, log.OpDelete, before.ID, before.Type.String(), before.Category, before.Amount.Cents)
	}
	return deleted, nil
}

// ListCategories returns every category, or only those of typ when set.
func (s *LedgerService) ListCategories(ctx context.Context, typ core.TxType) ([]core.Category, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil || typ == "" {
		return cats, err
	}
	out := make([]core.Category, 0, len(cats))
	for _, c := range cats {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *LedgerService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	id, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	s.notify()
	return s.store.GetCategory(ctx, id)
}

// UpdateCategory applies p. A rename rewrites the category of every
// transaction of the same type, and each of them gets an updated event.
func (s *LedgerService) UpdateCategory(ctx context.Context, id int64, p core.CategoryPatch) (core.Category, error) {
	old, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	var renamed []core.Transaction
	if p.Name != nil && s.publisher != nil {
		renamed, err = s.store.SearchTransactions(ctx, report.Criteria{Category: old.Name, Type: old.Type})
		if err != nil {
			return core.Category{}, fmt.Errorf("find category references: %w", err)
		}
	}

	if err := s.store.UpdateCategory(ctx, id, p); err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	s.notify()
	updated, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, err
	}
	if updated.Name != old.Name {
		for _, t := range renamed {
			t.Category = updated.Name
			s.publish(ctx, amqp.ActionUpdated, t)
		}
	}
	return updated, nil
}

// DeleteCategory returns a *core.ConflictError while the category is in use.
func (s *LedgerService) DeleteCategory(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.store.DeleteCategory(ctx, id)
	if err != nil {
		if c, ok := core.AsConflict(err); ok {
			s.logger.InfoContext(ctx, "Category delete blocked",
				log.FieldCategoryID, id,
				log.FieldCategory, c.Category,
				"usage", c.Count)
		}
		return false, err
	}
	if deleted {
		s.notify()
	}
	return deleted, nil
}

func (s *LedgerService) CategoryUsage(ctx context.Context, name string) (int, error) {
	return s.store.CountTransactionsByCategory(ctx, name)
}

// Close closes the store and the publisher when it is closable.
func (s *LedgerService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (s *LedgerService) changed(ctx context.Context, action amqp.Action, t core.Transaction) {
	s.notify()
	s.publish(ctx, action, t)
}

func (s *LedgerService) publish(ctx context.Context, action amqp.Action, t core.Transaction) {
	if s.publisher == nil {
		return
	}
	// Publish failures never fail the write.
	if err := s.publisher.Publish(ctx, amqp.NewLedgerEvent(action, t)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldError, err,
			log.FieldAction, action,
			log.FieldTransactionID, t.ID)
	}
}

func (s *LedgerService) notify() {
	for _, l := range s.listeners {
		l.Invalidate()
	}
}
