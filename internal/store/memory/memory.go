package memory

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/report"
	"fintrack/internal/store"
)

// Store keeps transactions and categories in process memory.
type Store struct {
	mu      sync.Mutex
	cats    []core.Category
	items   []core.Transaction
	nextTx  int64
	nextCat int64
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{nextTx: 1, nextCat: 1}
}

var defaultCategories = []core.Category{
	{Name: "Salary", Type: core.Income, Color: "#4CAF50"},
	{Name: "Food", Type: core.Expense, Color: "#FF5722"},
	{Name: "Transport", Type: core.Expense, Color: "#3F51B5"},
	{Name: "Housing", Type: core.Expense, Color: "#795548"},
}

// NewFromFiles seeds a store from base/seed_categories.txt
// ("type,name[,color]" per line) and base/seed_transactions.csv
// ("date,type,category,amount[,description]"). Missing category seeds fall
// back to a small default set; invalid lines are logged and skipped.
func NewFromFiles(base string, loc *time.Location) *Store {
	if loc == nil {
		loc = time.Local
	}
	s := New()
	ctx := context.Background()

	cats := readCategories(filepath.Join(base, "seed_categories.txt"))
	if len(cats) == 0 {
		cats = defaultCategories
	}
	for _, c := range cats {
		if _, err := s.CreateCategory(ctx, c); err != nil {
			slog.Warn("Skipping seed category", "name", c.Name, "error", err)
		}
	}

	for _, t := range readTransactions(filepath.Join(base, "seed_transactions.csv"), loc) {
		if _, err := s.CreateTransaction(ctx, t); err != nil {
			slog.Warn("Skipping seed transaction", "category", t.Category, "error", err)
		}
	}
	return s
}

func (s *Store) Close() error { return nil }

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.items...), nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.txIndex(id); i >= 0 {
		return s.items[i], nil
	}
	return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
}

func (s *Store) SearchTransactions(ctx context.Context, c report.Criteria) ([]core.Transaction, error) {
	txs, _ := s.ListTransactions(ctx)
	return report.Filter(txs, c), nil
}

func (s *Store) CountTransactionsByCategory(_ context.Context, name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return store.Usage(s.items, name), nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (int64, error) {
	t.Category = strings.TrimSpace(t.Category)
	t.Description = strings.TrimSpace(t.Description)
	if err := t.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.nextTx
	s.nextTx++
	s.items = append(s.items, t)
	return t.ID, nil
}

func (s *Store) UpdateTransaction(_ context.Context, id int64, p core.TransactionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.txIndex(id)
	if i < 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	merged := p.Apply(s.items[i])
	if err := merged.Validate(); err != nil {
		return err
	}
	s.items[i] = merged
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.txIndex(id)
	if i < 0 {
		return false, nil
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return true, nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Category(nil), s.cats...), nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.catIndex(id); i >= 0 {
		return s.cats[i], nil
	}
	return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (int64, error) {
	c = c.Normalize()
	if err := c.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := store.CheckDuplicate(s.cats, c, 0); err != nil {
		return 0, err
	}
	c.ID = s.nextCat
	s.nextCat++
	s.cats = append(s.cats, c)
	return c.ID, nil
}

func (s *Store) UpdateCategory(_ context.Context, id int64, p core.CategoryPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.catIndex(id)
	if i < 0 {
		return fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	old := s.cats[i]
	updated := p.Apply(old)
	if err := updated.Validate(); err != nil {
		return err
	}
	if err := store.CheckDuplicate(s.cats, updated, id); err != nil {
		return err
	}
	s.cats[i] = updated
	if updated.Name != old.Name {
		for j := range s.items {
			if s.items[j].Type == old.Type && s.items[j].Category == old.Name {
				s.items[j].Category = updated.Name
			}
		}
	}
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.catIndex(id)
	if i < 0 {
		return false, nil
	}
	if err := store.GuardDelete(s.cats[i], store.Usage(s.items, s.cats[i].Name)); err != nil {
		return false, err
	}
	s.cats = append(s.cats[:i], s.cats[i+1:]...)
	return true, nil
}

func (s *Store) txIndex(id int64) int {
	for i, t := range s.items {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) catIndex(id int64) int {
	for i, c := range s.cats {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func readCategories(path string) []core.Category {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []core.Category
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			slog.Warn("Malformed seed category line", "line", line)
			continue
		}
		typ, err := core.ParseTxType(parts[0])
		if err != nil {
			slog.Warn("Malformed seed category line", "line", line, "error", err)
			continue
		}
		c := core.Category{Type: typ, Name: parts[1]}
		if len(parts) > 2 {
			c.Color = parts[2]
		}
		out = append(out, c)
	}
	return out
}

func readTransactions(path string, loc *time.Location) []core.Transaction {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var out []core.Transaction
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			slog.Warn("Malformed seed transactions file", "path", path, "error", err)
			break
		}
		t, err := parseSeedTransaction(rec, loc)
		if err != nil {
			slog.Warn("Skipping seed transaction", "record", rec, "error", err)
			continue
		}
		out = append(out, t)
	}
	return out
}

func parseSeedTransaction(rec []string, loc *time.Location) (core.Transaction, error) {
	if len(rec) < 4 {
		return core.Transaction{}, fmt.Errorf("expected at least 4 fields, got %d", len(rec))
	}
	date, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(rec[0]), loc)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("date: %w", err)
	}
	typ, err := core.ParseTxType(rec[1])
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(rec[3])
	if err != nil {
		return core.Transaction{}, err
	}
	t := core.Transaction{Date: date, Type: typ, Category: rec[2], Amount: amount}
	if len(rec) > 4 {
		t.Description = rec[4]
	}
	return t, nil
}
