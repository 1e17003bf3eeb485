package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/report"
	"fintrack/internal/store"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the durable Record Store.
type SQLiteRepository struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; keeps the read-check-write sequences below serialised.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const transactionColumns = `id, amount_cents, category, type, description, occurred_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t        core.Transaction
		typ      string
		occurred string
	)
	if err := row.Scan(&t.ID, &t.Amount.Cents, &t.Category, &typ, &t.Description, &occurred); err != nil {
		return core.Transaction{}, err
	}
	date, err := time.Parse(time.RFC3339Nano, occurred)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse occurred_at %q: %w", occurred, err)
	}
	t.Type = core.TxType(typ)
	t.Date = date
	return t, nil
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	txs, err := r.queryTransactions(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

// SearchTransactions narrows rows in SQL on the exact-match and range
// criteria, then applies the full criteria and ordering in Go so both
// backends agree on text matching and collation.
func (r *SQLiteRepository) SearchTransactions(ctx context.Context, c report.Criteria) ([]core.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if c.Category != "" {
		where = append(where, "category = ?")
		args = append(args, c.Category)
	}
	if c.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(c.Type))
	}
	if !c.Start.IsZero() {
		where = append(where, "occurred_ms >= ?")
		args = append(args, c.Start.UnixMilli())
	}
	if !c.End.IsZero() {
		where = append(where, "occurred_ms <= ?")
		args = append(args, c.End.UnixMilli())
	}
	if c.MinAmount != nil {
		where = append(where, "amount_cents >= ?")
		args = append(args, c.MinAmount.Cents)
	}
	if c.MaxAmount != nil {
		where = append(where, "amount_cents <= ?")
		args = append(args, c.MaxAmount.Cents)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id`

	txs, err := r.queryTransactions(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search transactions: %w", err)
	}
	return report.Filter(txs, c), nil
}

func (r *SQLiteRepository) CountTransactionsByCategory(ctx context.Context, name string) (int, error) {
	return countUsage(ctx, r.db, name)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func countUsage(ctx context.Context, q querier, name string) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE category = ?`, name).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions by category: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	t.Category = strings.TrimSpace(t.Category)
	t.Description = strings.TrimSpace(t.Description)
	if err := t.Validate(); err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (amount_cents, category, type, description, occurred_at, occurred_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.Amount.Cents, t.Category, string(t.Type), t.Description,
		t.Date.Format(time.RFC3339Nano), t.Date.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"type", t.Type,
		"category", t.Category,
		"amount_cents", t.Amount.Cents)

	return id, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id int64, p core.TransactionPatch) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
		current, err := scanTransaction(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load transaction %d: %w", id, err)
		}

		merged := p.Apply(current)
		if err := merged.Validate(); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE transactions
			 SET amount_cents = ?, category = ?, type = ?, description = ?, occurred_at = ?, occurred_ms = ?,
			     updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`,
			merged.Amount.Cents, merged.Category, string(merged.Type), merged.Description,
			merged.Date.Format(time.RFC3339Nano), merged.Date.UnixMilli(), id)
		if err != nil {
			return fmt.Errorf("update transaction %d: %w", id, err)
		}
		return nil
	})
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete transaction %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return n > 0, nil
}

const categoryColumns = `id, name, color, type`

func scanCategory(row rowScanner) (core.Category, error) {
	var (
		c   core.Category
		typ string
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Color, &typ); err != nil {
		return core.Category{}, err
	}
	c.Type = core.TxType(typ)
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	return listCategories(ctx, r.db)
}

type rowsQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listCategories(ctx context.Context, q rowsQuerier) ([]core.Category, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	return getCategory(ctx, r.db, id)
}

func getCategory(ctx context.Context, q querier, id int64) (core.Category, error) {
	c, err := scanCategory(q.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (int64, error) {
	c = c.Normalize()
	if err := c.Validate(); err != nil {
		return 0, err
	}

	var id int64
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		existing, err := listCategories(ctx, tx)
		if err != nil {
			return err
		}
		if err := store.CheckDuplicate(existing, c, 0); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO categories (name, name_key, color, type) VALUES (?, ?, ?, ?)`,
			c.Name, core.NameKey(c.Name), c.Color, string(c.Type))
		if err != nil {
			return fmt.Errorf("create category: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, id int64, p core.CategoryPatch) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		old, err := getCategory(ctx, tx, id)
		if err != nil {
			return err
		}
		updated := p.Apply(old)
		if err := updated.Validate(); err != nil {
			return err
		}
		existing, err := listCategories(ctx, tx)
		if err != nil {
			return err
		}
		if err := store.CheckDuplicate(existing, updated, id); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE categories SET name = ?, name_key = ?, color = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			updated.Name, core.NameKey(updated.Name), updated.Color, id); err != nil {
			return fmt.Errorf("update category %d: %w", id, err)
		}

		if updated.Name != old.Name {
			res, err := tx.ExecContext(ctx,
				`UPDATE transactions SET category = ?, updated_at = CURRENT_TIMESTAMP WHERE category = ? AND type = ?`,
				updated.Name, old.Name, string(old.Type))
			if err != nil {
				return fmt.Errorf("rename category references: %w", err)
			}
			n, _ := res.RowsAffected()
			slog.InfoContext(ctx, "Category renamed",
				"id", id,
				"from", old.Name,
				"to", updated.Name,
				"transactions", n)
		}
		return nil
	})
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) (bool, error) {
	deleted := false
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		c, err := getCategory(ctx, tx, id)
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		usage, err := countUsage(ctx, tx, c.Name)
		if err != nil {
			return err
		}
		if err := store.GuardDelete(c, usage); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete category %d: %w", id, err)
		}
		deleted = true
		return nil
	})
	return deleted, err
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
