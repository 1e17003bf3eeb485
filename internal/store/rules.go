package store

import (
	"fmt"

	"fintrack/internal/core"
)

// CheckDuplicate fails when another category of the same type already uses
// c's name, compared case-insensitively. skipID excludes the record being
// updated.
func CheckDuplicate(existing []core.Category, c core.Category, skipID int64) error {
	key := core.NameKey(c.Name)
	for _, e := range existing {
		if e.ID == skipID || e.Type != c.Type {
			continue
		}
		if core.NameKey(e.Name) == key {
			return core.NewValidationError("name", fmt.Errorf("%w: %q (%s)", core.ErrDuplicateCategory, e.Name, e.Type))
		}
	}
	return nil
}

// Usage counts the transactions referencing name exactly, across both types.
func Usage(txs []core.Transaction, name string) int {
	n := 0
	for _, t := range txs {
		if t.Category == name {
			n++
		}
	}
	return n
}

// GuardDelete returns the conflict that blocks deleting c, if any.
func GuardDelete(c core.Category, usage int) error {
	if usage > 0 {
		return &core.ConflictError{Category: c.Name, Count: usage}
	}
	return nil
}
