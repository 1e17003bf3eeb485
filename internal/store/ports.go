// Package store defines the Record Store contract shared by the memory and
// SQLite backends, plus the integrity rules both of them enforce.
package store

import (
	"context"

	"fintrack/internal/core"
	"fintrack/internal/report"
)

type (
	TransactionReader interface {
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
		// GetTransaction returns core.ErrNotFound for unknown ids.
		GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
		SearchTransactions(ctx context.Context, c report.Criteria) ([]core.Transaction, error)
		CountTransactionsByCategory(ctx context.Context, name string) (int, error)
	}

	TransactionWriter interface {
		CreateTransaction(ctx context.Context, t core.Transaction) (int64, error)
		// UpdateTransaction merges p into the stored record and revalidates it.
		UpdateTransaction(ctx context.Context, id int64, p core.TransactionPatch) error
		// DeleteTransaction reports false when id does not exist.
		DeleteTransaction(ctx context.Context, id int64) (bool, error)
	}

	CategoryReader interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		GetCategory(ctx context.Context, id int64) (core.Category, error)
	}

	CategoryWriter interface {
		CreateCategory(ctx context.Context, c core.Category) (int64, error)
		// UpdateCategory changes name and color. A rename is carried over to
		// the transactions of the same type that used the old name.
		UpdateCategory(ctx context.Context, id int64, p core.CategoryPatch) error
		// DeleteCategory returns a *core.ConflictError while any transaction
		// references the category name, and false when id does not exist.
		DeleteCategory(ctx context.Context, id int64) (bool, error)
	}

	// Store is the full Record Store.
	Store interface {
		TransactionReader
		TransactionWriter
		CategoryReader
		CategoryWriter
		Close() error
	}
)
