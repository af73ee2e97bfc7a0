package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/SprengerV/volume-analyzer/internal/domain"
	"github.com/SprengerV/volume-analyzer/internal/idhash"
	"github.com/SprengerV/volume-analyzer/internal/storage"
)

// SwapArchive is an in-memory implementation of storage.SwapArchive.
type SwapArchive struct {
	mu   sync.RWMutex
	runs map[string]map[string]domain.SwapEvent // run_id -> swap_id -> swap
}

// NewSwapArchive creates a new in-memory swap archive.
func NewSwapArchive() *SwapArchive {
	return &SwapArchive{
		runs: make(map[string]map[string]domain.SwapEvent),
	}
}

// Compile-time interface check.
var _ storage.SwapArchive = (*SwapArchive)(nil)

// Append stores swaps under runID, skipping swaps already present.
func (a *SwapArchive) Append(_ context.Context, address, runID string, swaps []domain.SwapEvent) error {
	if address == "" || runID == "" {
		return storage.ErrInvalidInput
	}
	if len(swaps) == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	run, ok := a.runs[runID]
	if !ok {
		run = make(map[string]domain.SwapEvent)
		a.runs[runID] = run
	}
	for _, s := range swaps {
		id := idhash.ComputeSwapID(s.TxSignature, s.EventIndex)
		if _, exists := run[id]; exists {
			continue
		}
		run[id] = s
	}
	return nil
}

// GetByRun returns the swaps of a run ordered by timestamp, signature, event index.
func (a *SwapArchive) GetByRun(_ context.Context, runID string) ([]domain.SwapEvent, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	run := a.runs[runID]
	out := make([]domain.SwapEvent, 0, len(run))
	for _, s := range run {
		out = append(out, s)
	}
	sortSwaps(out)
	return out, nil
}

// sortSwaps orders by timestamp ASC (unknown first), signature, event index.
func sortSwaps(swaps []domain.SwapEvent) {
	sort.Slice(swaps, func(i, j int) bool {
		ti, tj := tsOrZero(swaps[i]), tsOrZero(swaps[j])
		if ti != tj {
			return ti < tj
		}
		if swaps[i].TxSignature != swaps[j].TxSignature {
			return swaps[i].TxSignature < swaps[j].TxSignature
		}
		return swaps[i].EventIndex < swaps[j].EventIndex
	})
}

func tsOrZero(s domain.SwapEvent) int64 {
	if s.Timestamp == nil {
		return 0
	}
	return *s.Timestamp
}
