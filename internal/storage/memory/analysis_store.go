package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/SprengerV/volume-analyzer/internal/domain"
	"github.com/SprengerV/volume-analyzer/internal/storage"
)

// AnalysisStore is an in-memory implementation of storage.AnalysisStore.
type AnalysisStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Analysis // keyed by address
}

// NewAnalysisStore creates a new in-memory analysis store.
func NewAnalysisStore() *AnalysisStore {
	return &AnalysisStore{
		data: make(map[string]*domain.Analysis),
	}
}

// Compile-time interface check.
var _ storage.AnalysisStore = (*AnalysisStore)(nil)

// Save inserts or replaces the analysis of a.Address.
func (s *AnalysisStore) Save(_ context.Context, a *domain.Analysis) error {
	if a == nil || a.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *a
	s.data[a.Address] = &stored
	return nil
}

// ListAddresses returns every stored address in ascending order.
func (s *AnalysisStore) ListAddresses(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.data))
	for addr := range s.data {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out, nil
}

// Get retrieves the analysis of an address.
func (s *AnalysisStore) Get(_ context.Context, address string) (*domain.Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.data[address]
	if !ok {
		return nil, storage.ErrNotFound
	}
	stored := *a
	return &stored, nil
}

// Delete removes the analysis of an address.
func (s *AnalysisStore) Delete(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, address)
	return nil
}

// Close is a no-op.
func (s *AnalysisStore) Close() error {
	return nil
}
