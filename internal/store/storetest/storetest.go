// Package storetest is a behavioural test suite every store.Store
// implementation must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/report"
	"fintrack/internal/store"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) store.Store

func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"CreateAndGetTransaction", testCreateAndGetTransaction},
		{"CreateTransactionValidation", testCreateTransactionValidation},
		{"UpdateTransaction", testUpdateTransaction},
		{"DeleteTransaction", testDeleteTransaction},
		{"SearchTransactions", testSearchTransactions},
		{"CategoryLifecycle", testCategoryLifecycle},
		{"CategoryDuplicate", testCategoryDuplicate},
		{"CategoryRenameCascades", testCategoryRenameCascades},
		{"DeletionGuard", testDeletionGuard},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tc.fn(t, s)
		})
	}
}

func day(d int) time.Time {
	return time.Date(2025, time.January, d, 0, 0, 0, 0, time.UTC)
}

func mustCreateTx(t *testing.T, s store.Store, tx core.Transaction) int64 {
	t.Helper()
	id, err := s.CreateTransaction(context.Background(), tx)
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return id
}

func mustCreateCat(t *testing.T, s store.Store, c core.Category) int64 {
	t.Helper()
	id, err := s.CreateCategory(context.Background(), c)
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	return id
}

func testCreateAndGetTransaction(t *testing.T, s store.Store) {
	ctx := context.Background()
	in := core.Transaction{
		Amount: core.Money{Cents: 1250}, Type: core.Expense, Category: " Food ",
		Date: day(10), Description: "lunch",
	}
	id := mustCreateTx(t, s, in)
	if id <= 0 {
		t.Fatalf("expected positive id, got %d", id)
	}
	got, err := s.GetTransaction(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != id || got.Amount.Cents != 1250 || got.Category != "Food" || !got.Date.Equal(day(10)) || got.Description != "lunch" {
		t.Fatalf("unexpected transaction %+v", got)
	}

	other := mustCreateTx(t, s, in)
	if other == id {
		t.Fatal("ids must be unique")
	}
	all, _ := s.ListTransactions(ctx)
	if len(all) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(all))
	}

	if _, err := s.GetTransaction(ctx, 9999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testCreateTransactionValidation(t *testing.T, s store.Store) {
	cases := []struct {
		name string
		tx   core.Transaction
		want error
	}{
		{"zero amount", core.Transaction{Type: core.Expense, Category: "Food", Date: day(1)}, core.ErrInvalidAmount},
		{"blank category", core.Transaction{Amount: core.Money{Cents: 1}, Type: core.Expense, Category: "  ", Date: day(1)}, core.ErrEmptyCategory},
	}
	for _, tc := range cases {
		_, err := s.CreateTransaction(context.Background(), tc.tx)
		if !errors.Is(err, tc.want) || !core.IsValidation(err) {
			t.Errorf("%s: expected validation error %v, got %v", tc.name, tc.want, err)
		}
	}
	all, _ := s.ListTransactions(context.Background())
	if len(all) != 0 {
		t.Fatalf("invalid input must not be stored, got %d rows", len(all))
	}
}

func testUpdateTransaction(t *testing.T, s store.Store) {
	ctx := context.Background()
	id := mustCreateTx(t, s, core.Transaction{Amount: core.Money{Cents: 100}, Type: core.Expense, Category: "Food", Date: day(1)})

	amount := core.Money{Cents: 300}
	desc := "groceries"
	if err := s.UpdateTransaction(ctx, id, core.TransactionPatch{Amount: &amount, Description: &desc}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := s.GetTransaction(ctx, id)
	if got.Amount.Cents != 300 || got.Description != "groceries" || got.Category != "Food" {
		t.Fatalf("unexpected after update %+v", got)
	}

	zero := core.Money{}
	if err := s.UpdateTransaction(ctx, id, core.TransactionPatch{Amount: &zero}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	got, _ = s.GetTransaction(ctx, id)
	if got.Amount.Cents != 300 {
		t.Fatalf("failed update must not change the record, got %+v", got)
	}

	if err := s.UpdateTransaction(ctx, 9999, core.TransactionPatch{Amount: &amount}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testDeleteTransaction(t *testing.T, s store.Store) {
	ctx := context.Background()
	id := mustCreateTx(t, s, core.Transaction{Amount: core.Money{Cents: 100}, Type: core.Expense, Category: "Food", Date: day(1)})

	ok, err := s.DeleteTransaction(ctx, id)
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	ok, err = s.DeleteTransaction(ctx, id)
	if err != nil || ok {
		t.Fatalf("second delete should be a no-op: ok=%v err=%v", ok, err)
	}
}

func testSearchTransactions(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := mustCreateTx(t, s, core.Transaction{Amount: core.Money{Cents: 1200}, Type: core.Expense, Category: "Food", Date: day(3), Description: "Weekly GROCERIES"})
	b := mustCreateTx(t, s, core.Transaction{Amount: core.Money{Cents: 800}, Type: core.Expense, Category: "Food", Date: day(4), Description: "groceries top-up"})
	mustCreateTx(t, s, core.Transaction{Amount: core.Money{Cents: 500000}, Type: core.Income, Category: "Salary", Date: day(1)})

	got, err := s.SearchTransactions(ctx, report.Criteria{Query: "groceries", Type: core.Expense})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 || got[0].ID != b || got[1].ID != a {
		t.Fatalf("expected newest first [%d %d], got %+v", b, a, got)
	}

	min := core.Money{Cents: 1000}
	got, _ = s.SearchTransactions(ctx, report.Criteria{MinAmount: &min, End: day(3), SortBy: report.SortByAmount, SortAsc: true})
	if len(got) != 2 || got[0].ID != a {
		t.Fatalf("unexpected amount search %+v", got)
	}

	n, err := s.CountTransactionsByCategory(ctx, "Food")
	if err != nil || n != 2 {
		t.Fatalf("expected 2 Food transactions, got %d (%v)", n, err)
	}
}

func testCategoryLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()
	id := mustCreateCat(t, s, core.Category{Name: "  Travel ", Type: core.Expense})
	got, err := s.GetCategory(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Travel" || got.Color != core.DefaultCategoryColor || got.Type != core.Expense {
		t.Fatalf("unexpected category %+v", got)
	}

	color := "#123ABC"
	if err := s.UpdateCategory(ctx, id, core.CategoryPatch{Color: &color}); err != nil {
		t.Fatalf("update: %v", err)
	}
	bad := "red"
	if err := s.UpdateCategory(ctx, id, core.CategoryPatch{Color: &bad}); !errors.Is(err, core.ErrInvalidColor) {
		t.Fatalf("expected invalid color, got %v", err)
	}
	if err := s.UpdateCategory(ctx, 9999, core.CategoryPatch{Color: &color}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	ok, err := s.DeleteCategory(ctx, id)
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	ok, err = s.DeleteCategory(ctx, id)
	if err != nil || ok {
		t.Fatalf("deleting a missing category should return false, got ok=%v err=%v", ok, err)
	}
	cats, _ := s.ListCategories(ctx)
	if len(cats) != 0 {
		t.Fatalf("expected no categories, got %+v", cats)
	}
}

func testCategoryDuplicate(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustCreateCat(t, s, core.Category{Name: "Food", Type: core.Expense})

	if _, err := s.CreateCategory(ctx, core.Category{Name: "food ", Type: core.Expense}); !errors.Is(err, core.ErrDuplicateCategory) || !core.IsValidation(err) {
		t.Fatalf("expected duplicate validation error, got %v", err)
	}
	if _, err := s.CreateCategory(ctx, core.Category{Name: "FOOD", Type: core.Income}); err != nil {
		t.Fatalf("same name in another type should be allowed: %v", err)
	}
	if _, err := s.CreateCategory(ctx, core.Category{Name: " ", Type: core.Expense}); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("expected empty name error, got %v", err)
	}

	other := mustCreateCat(t, s, core.Category{Name: "Rent", Type: core.Expense})
	name := "FOOD"
	if err := s.UpdateCategory(ctx, other, core.CategoryPatch{Name: &name}); !errors.Is(err, core.ErrDuplicateCategory) {
		t.Fatalf("rename onto an existing name should fail, got %v", err)
	}
}

func testCategoryRenameCascades(t *testing.T, s store.Store) {
	ctx := context.Background()
	id := mustCreateCat(t, s, core.Category{Name: "Food", Type: core.Expense})
	exp := mustCreateTx(t, s, core.Transaction{Amount: core.Money{Cents: 100}, Type: core.Expense, Category: "Food", Date: day(1)})
	inc := mustCreateTx(t, s, core.Transaction{Amount: core.Money{Cents: 100}, Type: core.Income, Category: "Food", Date: day(1)})

	name := "Groceries"
	if err := s.UpdateCategory(ctx, id, core.CategoryPatch{Name: &name}); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if got, _ := s.GetTransaction(ctx, exp); got.Category != "Groceries" {
		t.Fatalf("expense transaction not renamed: %+v", got)
	}
	if got, _ := s.GetTransaction(ctx, inc); got.Category != "Food" {
		t.Fatalf("income transaction must keep its category: %+v", got)
	}
}

func testDeletionGuard(t *testing.T, s store.Store) {
	ctx := context.Background()
	catID := mustCreateCat(t, s, core.Category{Name: "Food", Type: core.Expense})
	txID := mustCreateTx(t, s, core.Transaction{Amount: core.Money{Cents: 100}, Type: core.Expense, Category: "Food", Date: day(1)})

	ok, err := s.DeleteCategory(ctx, catID)
	conflict, isConflict := core.AsConflict(err)
	if ok || !isConflict || conflict.Count != 1 {
		t.Fatalf("expected conflict with count 1, got ok=%v err=%v", ok, err)
	}
	if _, err := s.GetCategory(ctx, catID); err != nil {
		t.Fatalf("category must survive a blocked delete: %v", err)
	}
	if _, err := s.GetTransaction(ctx, txID); err != nil {
		t.Fatalf("transaction must survive a blocked delete: %v", err)
	}

	if ok, err := s.DeleteTransaction(ctx, txID); err != nil || !ok {
		t.Fatalf("delete transaction: ok=%v err=%v", ok, err)
	}
	if ok, err := s.DeleteCategory(ctx, catID); err != nil || !ok {
		t.Fatalf("delete category after its last transaction: ok=%v err=%v", ok, err)
	}
}
