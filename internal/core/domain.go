package core

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

const (
	// DefaultCategoryColor is applied when a category is created without a color.
	DefaultCategoryColor = "#2196F3"

	MaxDescriptionLength  = 200
	MaxCategoryNameLength = 30
)

type (
	TxType string

	Transaction struct {
		ID          int64     `json:"id"`
		Amount      Money     `json:"amount"`
		Category    string    `json:"category"` // Category.Name, soft reference
		Date        time.Time `json:"date"`
		Description string    `json:"description,omitempty"`
		Type        TxType    `json:"type"`
	}

	Category struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Color string `json:"color"`
		Type  TxType `json:"type"`
	}

	// TransactionPatch carries a partial update; nil fields are left untouched.
	TransactionPatch struct {
		Amount      *Money     `json:"amount,omitempty"`
		Category    *string    `json:"category,omitempty"`
		Date        *time.Time `json:"date,omitempty"`
		Description *string    `json:"description,omitempty"`
		Type        *TxType    `json:"type,omitempty"`
	}

	// CategoryPatch updates name and/or color. The type of a category is fixed.
	CategoryPatch struct {
		Name  *string `json:"name,omitempty"`
		Color *string `json:"color,omitempty"`
	}
)

var (
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrEmptyCategory      = errors.New("category is required")
	ErrInvalidType        = errors.New("type must be income or expense")
	ErrInvalidDate        = errors.New("date is required")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrEmptyName          = errors.New("name is required")
	ErrNameTooLong        = errors.New("name too long (max 30 characters)")
	ErrInvalidColor       = errors.New("color must be #RRGGBB")
	ErrDuplicateCategory  = errors.New("category already exists")
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ParseTxType accepts "income" or "expense" in any case.
func ParseTxType(s string) (TxType, error) {
	t := TxType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrInvalidType
	}
	return t, nil
}

func (t TxType) Valid() bool {
	return t == Income || t == Expense
}

func (t TxType) String() string {
	return string(t)
}

func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return invalid("amount", err)
	}
	if strings.TrimSpace(t.Category) == "" {
		return invalid("category", ErrEmptyCategory)
	}
	if !t.Type.Valid() {
		return invalid("type", ErrInvalidType)
	}
	if t.Date.IsZero() {
		return invalid("date", ErrInvalidDate)
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLength {
		return invalid("description", ErrDescriptionTooLong)
	}
	return nil
}

// Apply returns a copy of t with the patch merged in.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Category != nil {
		t.Category = strings.TrimSpace(*p.Category)
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	return t
}

// Normalize trims the name and fills in the default color.
func (c Category) Normalize() Category {
	c.Name = strings.TrimSpace(c.Name)
	c.Color = strings.TrimSpace(c.Color)
	if c.Color == "" {
		c.Color = DefaultCategoryColor
	}
	return c
}

func (c Category) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return invalid("name", ErrEmptyName)
	}
	if utf8.RuneCountInString(name) > MaxCategoryNameLength {
		return invalid("name", ErrNameTooLong)
	}
	if !colorPattern.MatchString(c.Color) {
		return invalid("color", ErrInvalidColor)
	}
	if !c.Type.Valid() {
		return invalid("type", ErrInvalidType)
	}
	return nil
}

func (p CategoryPatch) Apply(c Category) Category {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	return c.Normalize()
}

// NameKey is the comparison key for category uniqueness.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
