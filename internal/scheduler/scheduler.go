// Package scheduler periodically re-analyzes every saved address.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/SprengerV/volume-analyzer/internal/analysis"
	"github.com/SprengerV/volume-analyzer/internal/storage"
)

// Analyzer runs one historical analysis.
type Analyzer interface {
	Analyze(ctx context.Context, address string, lookback int) (*analysis.Result, error)
}

var _ Analyzer = (*analysis.Analyzer)(nil)

// ErrBusy is returned by RunNow while another pass is in progress.
var ErrBusy = errors.New("re-analysis already running")

// Options configures a Scheduler.
type Options struct {
	// Spec is a cron expression (five fields or a descriptor like "@every 1h").
	Spec     string
	Store    storage.AnalysisStore
	Analyzer Analyzer
	Lookback int // 0 uses the analyzer default
	Logger   logrus.FieldLogger
}

// Summary describes one re-analysis pass.
type Summary struct {
	Addresses int
	Updated   int
	Failed    int
}

// Scheduler re-analyzes stored addresses on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
	store    storage.AnalysisStore
	analyzer Analyzer
	lookback int
	logger   logrus.FieldLogger
	running  atomic.Bool
}

// New creates a Scheduler. Jobs run under ctx.
func New(ctx context.Context, opts Options) (*Scheduler, error) {
	if opts.Store == nil || opts.Analyzer == nil {
		return nil, errors.New("scheduler requires a store and an analyzer")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Scheduler{
		cron:     cron.New(),
		ctx:      ctx,
		cancel:   cancel,
		store:    opts.Store,
		analyzer: opts.Analyzer,
		lookback: opts.Lookback,
		logger:   logger.WithField("component", "scheduler"),
	}

	if _, err := s.cron.AddFunc(opts.Spec, s.tick); err != nil {
		cancel()
		return nil, fmt.Errorf("register re-analysis %q: %w", opts.Spec, err)
	}
	return s, nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop cancels the running pass, if any, and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) tick() {
	sum, err := s.RunNow(s.ctx)
	if errors.Is(err, ErrBusy) {
		s.logger.Warn("previous re-analysis still running, skipping")
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("re-analysis failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"addresses": sum.Addresses,
		"updated":   sum.Updated,
		"failed":    sum.Failed,
	}).Info("re-analysis complete")
}

// RunNow re-analyzes every stored address once and saves the new results.
// A failing address is logged and counted; the pass continues.
func (s *Scheduler) RunNow(ctx context.Context) (Summary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Summary{}, ErrBusy
	}
	defer s.running.Store(false)

	addresses, err := s.store.ListAddresses(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list addresses: %w", err)
	}

	sum := Summary{Addresses: len(addresses)}
	for _, addr := range addresses {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		log := s.logger.WithField("address", addr)

		res, err := s.analyzer.Analyze(ctx, addr, s.lookback)
		if err != nil {
			sum.Failed++
			log.WithError(err).Warn("re-analysis failed")
			continue
		}
		if err := s.store.Save(ctx, res.Analysis()); err != nil {
			sum.Failed++
			log.WithError(err).Warn("save failed")
			continue
		}
		sum.Updated++
		log.WithField("label", res.Label).Debug("re-analyzed")
	}
	return sum, nil
}
