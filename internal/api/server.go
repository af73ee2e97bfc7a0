// Package api exposes analyses and live monitors over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/SprengerV/volume-analyzer/internal/analysis"
	"github.com/SprengerV/volume-analyzer/internal/classify"
	"github.com/SprengerV/volume-analyzer/internal/domain"
	"github.com/SprengerV/volume-analyzer/internal/eventsink"
	"github.com/SprengerV/volume-analyzer/internal/monitor"
	"github.com/SprengerV/volume-analyzer/internal/observability"
	"github.com/SprengerV/volume-analyzer/internal/scheduler"
	"github.com/SprengerV/volume-analyzer/internal/solana"
	"github.com/SprengerV/volume-analyzer/internal/storage"
)

const healthTimeout = 5 * time.Second

// Reanalyzer runs a re-analysis pass over stored addresses.
type Reanalyzer interface {
	RunNow(ctx context.Context) (scheduler.Summary, error)
}

// Options configures a Server.
type Options struct {
	RPC      solana.RPCClient
	Store    storage.AnalysisStore
	Analyzer scheduler.Analyzer
	Registry *monitor.Registry

	Reanalyzer Reanalyzer // optional
	Logger     logrus.FieldLogger
	Now        func() time.Time
}

// Server handles the HTTP API.
type Server struct {
	rpc        solana.RPCClient
	store      storage.AnalysisStore
	analyzer   scheduler.Analyzer
	registry   *monitor.Registry
	reanalyzer Reanalyzer
	logger     logrus.FieldLogger
	now        func() time.Time
	started    time.Time

	mu             sync.Mutex
	analysesRun    int64
	lastAnalysis   time.Time
	lastReanalysis *scheduler.Summary
}

// New creates a Server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Server{
		rpc:        opts.RPC,
		store:      opts.Store,
		analyzer:   opts.Analyzer,
		registry:   opts.Registry,
		reanalyzer: opts.Reanalyzer,
		logger:     logger,
		now:        now,
		started:    now(),
	}
}

// Router returns the HTTP handler with every route registered.
func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(observability.Handler()))
	r.GET("/status", s.handleStatus)
	r.POST("/reanalyze", s.handleReanalyze)

	analyses := r.Group("/analyses")
	analyses.GET("", s.handleAnalysesList)
	analyses.GET("/:address", s.handleAnalysisGet)
	analyses.POST("/:address", s.handleAnalysisRun)
	analyses.DELETE("/:address", s.handleAnalysisDelete)

	monitors := r.Group("/monitors")
	monitors.GET("", s.handleMonitorsList)
	monitors.POST("/:address", s.handleMonitorStart)
	monitors.DELETE("/:address", s.handleMonitorStop)
	monitors.GET("/:address/events", s.handleMonitorEvents)

	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	c.JSON(status, errorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	slot, err := s.rpc.GetSlot(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "slot": slot})
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Status         string             `json:"status"`
	Uptime         string             `json:"uptime"`
	StartedAt      time.Time          `json:"started_at"`
	AnalysesRun    int64              `json:"analyses_run"`
	LastAnalysis   *time.Time         `json:"last_analysis,omitempty"`
	Monitors       int                `json:"monitors"`
	RunningMonitor int                `json:"running_monitors"`
	LastReanalysis *scheduler.Summary `json:"last_reanalysis,omitempty"`
}

func (s *Server) handleStatus(c *gin.Context) {
	states := s.registry.List()
	running := 0
	for _, st := range states {
		if st.Running {
			running++
		}
	}

	s.mu.Lock()
	resp := StatusResponse{
		Status:         "running",
		Uptime:         s.now().Sub(s.started).Truncate(time.Second).String(),
		StartedAt:      s.started,
		AnalysesRun:    s.analysesRun,
		Monitors:       len(states),
		RunningMonitor: running,
		LastReanalysis: s.lastReanalysis,
	}
	if !s.lastAnalysis.IsZero() {
		last := s.lastAnalysis
		resp.LastAnalysis = &last
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleAnalysesList(c *gin.Context) {
	ctx := c.Request.Context()
	addrs, err := s.store.ListAddresses(ctx)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	out := make([]*domain.Analysis, 0, len(addrs))
	for _, addr := range addrs {
		a, err := s.store.Get(ctx, addr)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			s.fail(c, http.StatusInternalServerError, err)
			return
		}
		out = append(out, a)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleAnalysisGet(c *gin.Context) {
	a, err := s.store.Get(c.Request.Context(), c.Param("address"))
	if errors.Is(err, storage.ErrNotFound) {
		s.fail(c, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// AnalysisResponse is returned by POST /analyses/:address.
type AnalysisResponse struct {
	*domain.Analysis
	AddressKind         solana.AddressKind    `json:"address_kind"`
	Rules               []classify.RuleResult `json:"rules,omitempty"`
	Swaps               int                   `json:"swaps"`
	SignaturesFetched   int                   `json:"signatures_fetched"`
	TransactionsSkipped int                   `json:"transactions_skipped"`
	Saved               bool                  `json:"saved"`
}

// handleAnalysisRun runs an analysis. Query parameters: lookback (int) and
// save (bool, default true).
func (s *Server) handleAnalysisRun(c *gin.Context) {
	ctx := c.Request.Context()
	address := c.Param("address")

	lookback := 0
	if v := c.Query("lookback"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.fail(c, http.StatusBadRequest, errors.New("lookback must be a non-negative integer"))
			return
		}
		lookback = n
	}
	save := true
	if v := c.Query("save"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.fail(c, http.StatusBadRequest, errors.New("save must be a boolean"))
			return
		}
		save = b
	}

	res, err := s.analyzer.Analyze(ctx, address, lookback)
	if errors.Is(err, solana.ErrInvalidAddress) {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		s.fail(c, http.StatusBadGateway, err)
		return
	}

	s.mu.Lock()
	s.analysesRun++
	s.lastAnalysis = res.AnalyzedAt
	s.mu.Unlock()

	resp := toAnalysisResponse(res)
	if save {
		if err := s.store.Save(ctx, resp.Analysis); err != nil {
			s.fail(c, http.StatusInternalServerError, err)
			return
		}
		resp.Saved = true
	}
	c.JSON(http.StatusOK, resp)
}

func toAnalysisResponse(res *analysis.Result) AnalysisResponse {
	return AnalysisResponse{
		Analysis:            res.Analysis(),
		AddressKind:         res.AddressKind,
		Rules:               res.Rules,
		Swaps:               len(res.Swaps),
		SignaturesFetched:   res.SignaturesFetched,
		TransactionsSkipped: res.TransactionsSkipped,
	}
}

func (s *Server) handleAnalysisDelete(c *gin.Context) {
	if err := s.store.Delete(c.Request.Context(), c.Param("address")); err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleReanalyze(c *gin.Context) {
	if s.reanalyzer == nil {
		s.fail(c, http.StatusNotImplemented, errors.New("re-analysis schedule is not configured"))
		return
	}
	sum, err := s.reanalyzer.RunNow(c.Request.Context())
	if errors.Is(err, scheduler.ErrBusy) {
		s.fail(c, http.StatusConflict, err)
		return
	}
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	s.mu.Lock()
	s.lastReanalysis = &sum
	s.mu.Unlock()
	c.JSON(http.StatusOK, sum)
}

func (s *Server) handleMonitorsList(c *gin.Context) {
	c.JSON(http.StatusOK, s.registry.List())
}

func (s *Server) handleMonitorStart(c *gin.Context) {
	m, err := s.registry.Start(c.Param("address"))
	switch {
	case errors.Is(err, solana.ErrInvalidAddress):
		s.fail(c, http.StatusBadRequest, err)
		return
	case errors.Is(err, monitor.ErrAlreadyRunning):
		s.fail(c, http.StatusConflict, err)
		return
	case err != nil:
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusCreated, m.State())
}

func (s *Server) handleMonitorStop(c *gin.Context) {
	address := c.Param("address")
	m, err := s.registry.Stop(address)
	if errors.Is(err, monitor.ErrNotRunning) {
		s.fail(c, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, m.State())
}

func (s *Server) handleMonitorEvents(c *gin.Context) {
	events, ok := s.registry.Events(c.Param("address"))
	if !ok {
		s.fail(c, http.StatusNotFound, monitor.ErrNotRunning)
		return
	}
	out := make([]json.RawMessage, 0, len(events))
	for _, ev := range events {
		data, err := eventsink.Encode(ev)
		if err != nil {
			s.fail(c, http.StatusInternalServerError, err)
			return
		}
		out = append(out, data)
	}
	c.JSON(http.StatusOK, out)
}
