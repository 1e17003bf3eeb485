// Package backend assembles the record store, event publisher and report
// cache selected by configuration into ready-to-use services.
package backend

import (
	"context"
	"errors"

	"fintrack/internal/services"
	"fintrack/internal/store"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the wired services and a cleanup releasing the
// store, broker connection and cache client.
type BackendResult struct {
	Store   store.Store
	Ledger  *services.LedgerService
	Reports *services.ReportService
	Cleanup CleanupFunc
}

// Close runs Cleanup once; it is safe on a nil result.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	cleanup := r.Cleanup
	r.Cleanup = nil
	return cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

func joinCleanups(fns ...CleanupFunc) CleanupFunc {
	return func() error {
		var errs []error
		for i := len(fns) - 1; i >= 0; i-- {
			if fns[i] == nil {
				continue
			}
			if err := fns[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
