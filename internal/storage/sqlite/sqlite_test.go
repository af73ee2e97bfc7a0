package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SprengerV/volume-analyzer/internal/domain"
	"github.com/SprengerV/volume-analyzer/internal/storage"
)

func openTestStore(t *testing.T) *AnalysisStore {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testAnalysis(address string, label domain.Label) *domain.Analysis {
	return &domain.Analysis{
		Address: address,
		Label:   label,
		Report:  "Classification: " + string(label) + "\n",
		Stats: domain.Stats{
			Total:              12,
			Recent:             3,
			Dominance:          0.25,
			Wash:               0.5,
			Rotation:           1,
			Net:                0.1,
			UniqueWalletsRatio: 0.75,
		},
		RunID:      "run-1",
		AnalyzedAt: time.Date(2024, 5, 10, 8, 30, 0, 0, time.UTC),
	}
}

func TestAnalysisStore_SaveAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	a := testAnalysis("Addr1", domain.LabelPriceAnchor)
	require.NoError(t, store.Save(ctx, a))

	got, err := store.Get(ctx, "Addr1")
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestAnalysisStore_Upsert(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testAnalysis("Addr1", domain.LabelOrganic)))
	second := testAnalysis("Addr1", domain.LabelIgnition)
	second.RunID = "run-2"
	require.NoError(t, store.Save(ctx, second))

	got, err := store.Get(ctx, "Addr1")
	require.NoError(t, err)
	assert.Equal(t, domain.LabelIgnition, got.Label)
	assert.Equal(t, "run-2", got.RunID)
}

func TestAnalysisStore_ListAndDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	addrs, err := store.ListAddresses(ctx)
	require.NoError(t, err)
	assert.Empty(t, addrs)

	for _, addr := range []string{"Ccc", "Aaa", "Bbb"} {
		require.NoError(t, store.Save(ctx, testAnalysis(addr, domain.LabelMixed)))
	}

	addrs, err = store.ListAddresses(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Aaa", "Bbb", "Ccc"}, addrs)

	require.NoError(t, store.Delete(ctx, "Bbb"))
	require.NoError(t, store.Delete(ctx, "missing"))

	_, err = store.Get(ctx, "Bbb")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAnalysisStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analyses.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, testAnalysis("Addr1", domain.LabelFakeVolume)))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Get(ctx, "Addr1")
	require.NoError(t, err)
	assert.Equal(t, domain.LabelFakeVolume, got.Label)
}

func TestAnalysisStore_InvalidInput(t *testing.T) {
	store := openTestStore(t)
	assert.ErrorIs(t, store.Save(context.Background(), nil), storage.ErrInvalidInput)
}
