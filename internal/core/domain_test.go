package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validTransaction() Transaction {
	return Transaction{
		Amount:   Money{Cents: 100},
		Category: "Food",
		Date:     time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Type:     Expense,
	}
}

func TestTransactionValidate(t *testing.T) {
	if err := validTransaction().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"zero amount", func(tx *Transaction) { tx.Amount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(tx *Transaction) { tx.Amount = Money{Cents: -5} }, ErrInvalidAmount},
		{"blank category", func(tx *Transaction) { tx.Category = "   " }, ErrEmptyCategory},
		{"bad type", func(tx *Transaction) { tx.Type = "transfer" }, ErrInvalidType},
		{"zero date", func(tx *Transaction) { tx.Date = time.Time{} }, ErrInvalidDate},
		{"long description", func(tx *Transaction) { tx.Description = strings.Repeat("x", 201) }, ErrDescriptionTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := validTransaction()
			tc.mutate(&tx)
			err := tx.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !IsValidation(err) {
				t.Fatalf("expected a ValidationError, got %T", err)
			}
		})
	}
}

func TestTransactionPatchApply(t *testing.T) {
	tx := validTransaction()
	amount := Money{Cents: 999}
	cat := "  Rent "
	got := TransactionPatch{Amount: &amount, Category: &cat}.Apply(tx)
	if got.Amount.Cents != 999 || got.Category != "Rent" {
		t.Fatalf("unexpected patch result: %+v", got)
	}
	if got.Type != tx.Type || !got.Date.Equal(tx.Date) {
		t.Fatalf("untouched fields changed: %+v", got)
	}
	if tx.Amount.Cents != 100 {
		t.Fatal("Apply must not mutate its input")
	}
}

func TestCategoryValidate(t *testing.T) {
	good := Category{Name: " Food ", Type: Expense}.Normalize()
	if good.Color != DefaultCategoryColor || good.Name != "Food" {
		t.Fatalf("unexpected normalization: %+v", good)
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		c    Category
		want error
	}{
		{Category{Name: "", Color: "#000000", Type: Expense}, ErrEmptyName},
		{Category{Name: strings.Repeat("n", 31), Color: "#000000", Type: Expense}, ErrNameTooLong},
		{Category{Name: "A", Color: "red", Type: Expense}, ErrInvalidColor},
		{Category{Name: "A", Color: "#12345", Type: Expense}, ErrInvalidColor},
		{Category{Name: "A", Color: "#123456", Type: ""}, ErrInvalidType},
	}
	for i, tc := range bads {
		if err := tc.c.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestParseTxType(t *testing.T) {
	if tt, err := ParseTxType(" Income "); err != nil || tt != Income {
		t.Fatalf("got %q, %v", tt, err)
	}
	if _, err := ParseTxType("refund"); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestConflictError(t *testing.T) {
	var err error = &ConflictError{Category: "Food", Count: 2}
	wrapped := errors.Join(errors.New("delete category"), err)
	ce, ok := AsConflict(wrapped)
	if !ok || ce.Count != 2 {
		t.Fatalf("expected conflict with count 2, got %v %v", ce, ok)
	}
	if !strings.Contains(err.Error(), "2 transaction") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestNameKey(t *testing.T) {
	if NameKey("  FOOD ") != NameKey("food") {
		t.Fatal("name keys should compare case-insensitively after trimming")
	}
}
