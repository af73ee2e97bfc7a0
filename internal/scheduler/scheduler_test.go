package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SprengerV/volume-analyzer/internal/analysis"
	"github.com/SprengerV/volume-analyzer/internal/domain"
	"github.com/SprengerV/volume-analyzer/internal/storage/memory"
)

type fakeAnalyzer struct {
	mu       sync.Mutex
	calls    []string
	lookback []int
	fail     map[string]error
	block    chan struct{}
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, address string, lookback int) (*analysis.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, address)
	f.lookback = append(f.lookback, lookback)
	err := f.fail[address]
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &analysis.Result{
		Address:    address,
		RunID:      "run-" + address,
		Label:      domain.LabelOrganic,
		Report:     "re-analyzed",
		AnalyzedAt: time.Unix(1700000000, 0).UTC(),
	}, nil
}

func seed(t *testing.T, store *memory.AnalysisStore, addrs ...string) {
	t.Helper()
	for _, a := range addrs {
		require.NoError(t, store.Save(context.Background(), &domain.Analysis{
			Address: a,
			Label:   domain.LabelMixed,
			Report:  "old",
		}))
	}
}

func TestRunNow(t *testing.T) {
	ctx := context.Background()
	store := memory.NewAnalysisStore()
	seed(t, store, "addrB", "addrA", "addrC")

	fa := &fakeAnalyzer{fail: map[string]error{"addrB": errors.New("rpc down")}}
	s, err := New(ctx, Options{Spec: "@every 1h", Store: store, Analyzer: fa, Lookback: 50})
	require.NoError(t, err)

	sum, err := s.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Addresses: 3, Updated: 2, Failed: 1}, sum)
	assert.Equal(t, []string{"addrA", "addrB", "addrC"}, fa.calls)
	assert.Equal(t, []int{50, 50, 50}, fa.lookback)

	a, err := store.Get(ctx, "addrA")
	require.NoError(t, err)
	assert.Equal(t, "re-analyzed", a.Report)
	assert.Equal(t, domain.LabelOrganic, a.Label)

	b, err := store.Get(ctx, "addrB")
	require.NoError(t, err)
	assert.Equal(t, "old", b.Report, "failed address keeps its previous analysis")
}

func TestRunNow_Busy(t *testing.T) {
	ctx := context.Background()
	store := memory.NewAnalysisStore()
	seed(t, store, "addrA")

	fa := &fakeAnalyzer{block: make(chan struct{})}
	s, err := New(ctx, Options{Spec: "@every 1h", Store: store, Analyzer: fa})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.RunNow(ctx)
	}()

	require.Eventually(t, func() bool {
		fa.mu.Lock()
		defer fa.mu.Unlock()
		return len(fa.calls) == 1
	}, time.Second, 5*time.Millisecond)

	_, err = s.RunNow(ctx)
	assert.ErrorIs(t, err, ErrBusy)

	close(fa.block)
	<-done
}

func TestRunNow_Cancelled(t *testing.T) {
	store := memory.NewAnalysisStore()
	seed(t, store, "addrA", "addrB")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := New(context.Background(), Options{Spec: "@every 1h", Store: store, Analyzer: &fakeAnalyzer{}})
	require.NoError(t, err)

	_, err = s.RunNow(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_Validation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewAnalysisStore()

	_, err := New(ctx, Options{Spec: "not a cron", Store: store, Analyzer: &fakeAnalyzer{}})
	assert.Error(t, err)

	_, err = New(ctx, Options{Spec: "@every 1h", Analyzer: &fakeAnalyzer{}})
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	store := memory.NewAnalysisStore()
	seed(t, store, "addrA")
	fa := &fakeAnalyzer{}

	s, err := New(context.Background(), Options{Spec: "@every 1s", Store: store, Analyzer: fa})
	require.NoError(t, err)

	s.Start()
	require.Eventually(t, func() bool {
		fa.mu.Lock()
		defer fa.mu.Unlock()
		return len(fa.calls) > 0
	}, 3*time.Second, 20*time.Millisecond)
	s.Stop()
}
