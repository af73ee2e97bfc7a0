package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SprengerV/volume-analyzer/internal/domain"
	"github.com/SprengerV/volume-analyzer/internal/storage"
)

func makeAnalysis(address string, label domain.Label) *domain.Analysis {
	return &domain.Analysis{
		Address:    address,
		Label:      label,
		Report:     "Classification: " + string(label) + "\n",
		Stats:      domain.Stats{Total: 3, Recent: 1, Dominance: 0.333},
		RunID:      "run-" + address,
		AnalyzedAt: time.Unix(1700000000, 0).UTC(),
	}
}

func TestAnalysisStore_SaveAndGet(t *testing.T) {
	store := NewAnalysisStore()
	ctx := context.Background()

	a := makeAnalysis("addr1", domain.LabelOrganic)
	if err := store.Save(ctx, a); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Get(ctx, "addr1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Label != domain.LabelOrganic || got.Stats.Total != 3 {
		t.Errorf("unexpected analysis: %+v", got)
	}

	// stored value is a copy
	a.Label = domain.LabelMixed
	got, _ = store.Get(ctx, "addr1")
	if got.Label != domain.LabelOrganic {
		t.Error("store kept a reference to the caller's value")
	}
}

func TestAnalysisStore_LastWriteWins(t *testing.T) {
	store := NewAnalysisStore()
	ctx := context.Background()

	store.Save(ctx, makeAnalysis("addr1", domain.LabelOrganic))
	store.Save(ctx, makeAnalysis("addr1", domain.LabelIgnition))

	got, err := store.Get(ctx, "addr1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Label != domain.LabelIgnition {
		t.Errorf("expected Ignition Bot, got %s", got.Label)
	}

	addrs, _ := store.ListAddresses(ctx)
	if len(addrs) != 1 {
		t.Errorf("expected 1 address, got %v", addrs)
	}
}

func TestAnalysisStore_ListDeleteNotFound(t *testing.T) {
	store := NewAnalysisStore()
	ctx := context.Background()

	store.Save(ctx, makeAnalysis("b", domain.LabelOrganic))
	store.Save(ctx, makeAnalysis("a", domain.LabelOrganic))

	addrs, err := store.ListAddresses(ctx)
	if err != nil {
		t.Fatalf("ListAddresses: %v", err)
	}
	if len(addrs) != 2 || addrs[0] != "a" || addrs[1] != "b" {
		t.Errorf("expected [a b], got %v", addrs)
	}

	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete of missing address should succeed, got %v", err)
	}

	_, err = store.Get(ctx, "a")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAnalysisStore_InvalidInput(t *testing.T) {
	store := NewAnalysisStore()
	if err := store.Save(context.Background(), nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Save(context.Background(), &domain.Analysis{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty address, got %v", err)
	}
}
