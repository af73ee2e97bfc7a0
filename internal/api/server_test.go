package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SprengerV/volume-analyzer/internal/analysis"
	"github.com/SprengerV/volume-analyzer/internal/domain"
	"github.com/SprengerV/volume-analyzer/internal/eventsink"
	"github.com/SprengerV/volume-analyzer/internal/monitor"
	"github.com/SprengerV/volume-analyzer/internal/scheduler"
	"github.com/SprengerV/volume-analyzer/internal/solana/stub"
	"github.com/SprengerV/volume-analyzer/internal/storage/memory"
)

const (
	address = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	wsol    = "So11111111111111111111111111111111111111112"
)

type fakeReanalyzer struct {
	sum scheduler.Summary
	err error
}

func (f *fakeReanalyzer) RunNow(context.Context) (scheduler.Summary, error) {
	return f.sum, f.err
}

type fixture struct {
	rpc      *stub.RPCClient
	store    *memory.AnalysisStore
	registry *monitor.Registry
	handler  http.Handler
}

func newFixture(t *testing.T, re Reanalyzer) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	rpc := stub.NewRPCClient()
	store := memory.NewAnalysisStore()
	registry := monitor.NewRegistry(context.Background(), monitor.RegistryOptions{
		RPC:      rpc,
		Defaults: monitor.Config{PollInterval: time.Hour, FetchDelay: -1},
		Logger:   logger,
	})
	t.Cleanup(registry.StopAll)

	srv := New(Options{
		RPC:        rpc,
		Store:      store,
		Analyzer:   analysis.New(analysis.Options{RPC: rpc, FetchDelay: -1, Logger: logger}),
		Registry:   registry,
		Reanalyzer: re,
		Logger:     logger,
	})
	return &fixture{rpc: rpc, store: store, registry: registry, handler: srv.Router()}
}

func (f *fixture) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	f.rpc.SetSlot(12345)

	rec := f.do(t, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, 12345.0, body["slot"])

	f.rpc.FailSignatures(errors.New("node down"))
	rec = f.do(t, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetrics(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "volume_analyzer_")
}

func TestAnalyses_Lifecycle(t *testing.T) {
	f := newFixture(t, nil)
	f.rpc.SetSignatures(address, "s1")
	f.rpc.AddTransaction(stub.SwapTx("s1", time.Now().Unix(),
		stub.Swap{InputMint: address, AmountIn: "10", OutputMint: wsol, AmountOut: "2"}))

	rec := f.do(t, http.MethodGet, "/analyses/"+address)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/analyses/"+address+"?lookback=10")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[AnalysisResponse](t, rec)
	assert.Equal(t, address, resp.Address)
	assert.Equal(t, 1, resp.Swaps)
	assert.Equal(t, 1, resp.SignaturesFetched)
	assert.True(t, resp.Saved)
	assert.Contains(t, resp.Report, "Total swaps parsed: 1")

	rec = f.do(t, http.MethodGet, "/analyses/"+address)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[domain.Analysis](t, rec)
	assert.Equal(t, resp.Label, got.Label)

	rec = f.do(t, http.MethodGet, "/analyses")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Analysis](t, rec), 1)

	rec = f.do(t, http.MethodDelete, "/analyses/"+address)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodDelete, "/analyses/"+address)
	assert.Equal(t, http.StatusNoContent, rec.Code, "delete is idempotent")

	rec = f.do(t, http.MethodGet, "/analyses")
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestAnalysisRun_Errors(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/analyses/not-an-address")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/analyses/"+address+"?lookback=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/analyses/"+address+"?save=maybe")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.rpc.FailSignatures(errors.New("node down"))
	rec = f.do(t, http.MethodPost, "/analyses/"+address)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAnalysisRun_NoSave(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/analyses/"+address+"?save=false")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[AnalysisResponse](t, rec)
	assert.Equal(t, domain.LabelNoData, resp.Label)
	assert.False(t, resp.Saved)

	addrs, err := f.store.ListAddresses(context.Background())
	require.NoError(t, err)
	assert.Empty(t, addrs)
}

func TestMonitors(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/monitors/"+address)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	state := decode[monitor.State](t, rec)
	assert.Equal(t, address, state.Address)
	assert.True(t, state.Running)

	rec = f.do(t, http.MethodPost, "/monitors/"+address)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/monitors/bad")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/monitors")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]monitor.State](t, rec), 1)

	rec = f.do(t, http.MethodDelete, "/monitors/"+address)
	require.Equal(t, http.StatusOK, rec.Code)
	state = decode[monitor.State](t, rec)
	assert.Equal(t, address, state.Address)
	assert.False(t, state.Running)

	rec = f.do(t, http.MethodDelete, "/monitors/"+address)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMonitorEvents(t *testing.T) {
	f := newFixture(t, nil)
	f.rpc.FailSignatures(errors.New("node down"))

	rec := f.do(t, http.MethodGet, "/monitors/"+address+"/events")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, err := f.registry.Start(address)
	require.NoError(t, err)

	var envs []eventsink.Envelope
	require.Eventually(t, func() bool {
		rec := f.do(t, http.MethodGet, "/monitors/"+address+"/events")
		if rec.Code != http.StatusOK {
			return false
		}
		var raw []map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil || len(raw) == 0 {
			return false
		}
		envs = make([]eventsink.Envelope, len(raw))
		for i, r := range raw {
			envs[i].Kind = domain.EventKind(r["kind"].(string))
			envs[i].Address = r["address"].(string)
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, domain.EventError, envs[0].Kind)
	assert.Equal(t, address, envs[0].Address)
}

func TestReanalyze(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodPost, "/reanalyze")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	re := &fakeReanalyzer{sum: scheduler.Summary{Addresses: 2, Updated: 2}}
	f = newFixture(t, re)
	rec = f.do(t, http.MethodPost, "/reanalyze")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, re.sum, decode[scheduler.Summary](t, rec))

	rec = f.do(t, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[StatusResponse](t, rec)
	require.NotNil(t, status.LastReanalysis)
	assert.Equal(t, 2, status.LastReanalysis.Updated)

	re.err = scheduler.ErrBusy
	rec = f.do(t, http.MethodPost, "/reanalyze")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStatus(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.registry.Start(address)
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[StatusResponse](t, rec)
	assert.Equal(t, "running", status.Status)
	assert.Equal(t, 1, status.Monitors)
	assert.Equal(t, 1, status.RunningMonitor)
	assert.Nil(t, status.LastAnalysis)
}
