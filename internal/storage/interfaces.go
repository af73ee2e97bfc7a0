package storage

import (
	"context"

	"github.com/SprengerV/volume-analyzer/internal/domain"
)

// AnalysisStore persists the latest analysis per address.
type AnalysisStore interface {
	// Save inserts or replaces the analysis for a.Address. Last write wins.
	// Returns ErrInvalidInput if a is nil or has no address.
	Save(ctx context.Context, a *domain.Analysis) error

	// ListAddresses returns every stored address in ascending order.
	ListAddresses(ctx context.Context) ([]string, error)

	// Get retrieves the analysis of an address. Returns ErrNotFound if not exists.
	Get(ctx context.Context, address string) (*domain.Analysis, error)

	// Delete removes the analysis of an address. Deleting a missing address is not an error.
	Delete(ctx context.Context, address string) error

	// Close releases the underlying resources.
	Close() error
}

// SwapArchive keeps the swaps behind every analysis run.
type SwapArchive interface {
	// Append stores swaps under runID. Re-appending a swap of the same run
	// (same signature and event index) is a no-op.
	Append(ctx context.Context, address, runID string, swaps []domain.SwapEvent) error

	// GetByRun returns the swaps of a run ordered by timestamp, signature, event index.
	GetByRun(ctx context.Context, runID string) ([]domain.SwapEvent, error)
}
