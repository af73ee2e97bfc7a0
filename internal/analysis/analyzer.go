// Package analysis runs the one-shot historical analysis of an address:
// fetch recent transactions, extract swaps, aggregate, classify, report.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/SprengerV/volume-analyzer/internal/classify"
	"github.com/SprengerV/volume-analyzer/internal/domain"
	"github.com/SprengerV/volume-analyzer/internal/metrics"
	"github.com/SprengerV/volume-analyzer/internal/observability"
	"github.com/SprengerV/volume-analyzer/internal/reporting"
	"github.com/SprengerV/volume-analyzer/internal/solana"
	"github.com/SprengerV/volume-analyzer/internal/storage"
	"github.com/SprengerV/volume-analyzer/internal/swaps"
)

// Defaults.
const (
	// MaxFetch caps the signatures fetched per analysis regardless of lookback.
	MaxFetch          = 120
	DefaultLookback   = 200
	DefaultFetchDelay = 120 * time.Millisecond
)

// Options for creating an Analyzer.
type Options struct {
	RPC solana.RPCClient

	MaxFetch        int           // hard cap on signatures, default MaxFetch
	DefaultLookback int           // used when Analyze gets lookback <= 0
	FetchDelay      time.Duration // minimum spacing of GetTransaction calls; negative disables
	RecentWindow    time.Duration // default metrics.RecentWindow

	Classifier *classify.Classifier // nil uses the default rules
	Archive    storage.SwapArchive  // optional; receives the swaps of every run

	Logger logrus.FieldLogger
	Now    func() time.Time
}

// Analyzer performs historical analyses. Safe for concurrent use.
type Analyzer struct {
	rpc             solana.RPCClient
	maxFetch        int
	defaultLookback int
	fetchDelay      time.Duration
	window          time.Duration
	classifier      *classify.Classifier
	archive         storage.SwapArchive
	logger          logrus.FieldLogger
	now             func() time.Time
}

// Result is the outcome of one analysis.
type Result struct {
	Address     string
	AddressKind solana.AddressKind
	RunID       string
	AnalyzedAt  time.Time

	Label  domain.Label
	Report string
	Swaps  []domain.SwapEvent // sorted by time; empty for No data / No swaps
	Stats  domain.Stats       // zero for No data / No swaps
	Rules  []classify.RuleResult

	SignaturesFetched   int
	TransactionsSkipped int
}

// New creates a new Analyzer.
func New(opts Options) *Analyzer {
	maxFetch := opts.MaxFetch
	if maxFetch <= 0 {
		maxFetch = MaxFetch
	}
	lookback := opts.DefaultLookback
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	delay := opts.FetchDelay
	if delay == 0 {
		delay = DefaultFetchDelay
	}
	window := opts.RecentWindow
	if window <= 0 {
		window = metrics.RecentWindow
	}
	classifier := opts.Classifier
	if classifier == nil {
		classifier = classify.New(nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Analyzer{
		rpc:             opts.RPC,
		maxFetch:        maxFetch,
		defaultLookback: lookback,
		fetchDelay:      delay,
		window:          window,
		classifier:      classifier,
		archive:         opts.Archive,
		logger:          logger,
		now:             now,
	}
}

// Analyze fetches up to min(lookback, MaxFetch) recent signatures of address
// and classifies the swaps found in them. A lookback <= 0 uses the default.
//
// "No data" and "No swaps" are results, not errors. Errors are returned for
// an invalid address, a failed signature listing or a cancelled context.
// A failed transaction fetch only skips that transaction.
func (a *Analyzer) Analyze(ctx context.Context, address string, lookback int) (*Result, error) {
	kind, err := solana.ClassifyAddress(address)
	if err != nil {
		return nil, err
	}
	if lookback <= 0 {
		lookback = a.defaultLookback
	}
	limit := min(lookback, a.maxFetch)

	start := a.now()
	res := &Result{
		Address:     address,
		AddressKind: kind,
		RunID:       uuid.NewString(),
		Swaps:       []domain.SwapEvent{},
	}
	log := a.logger.WithFields(logrus.Fields{
		"address": address,
		"run_id":  res.RunID,
	})

	sigs, err := a.rpc.GetSignaturesForAddress(ctx, address, &solana.SignaturesOpts{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list signatures for %s: %w", address, err)
	}
	res.SignaturesFetched = len(sigs)

	if len(sigs) == 0 {
		res.Label = domain.LabelNoData
		res.Report = reporting.NoSignaturesReport
		res.AnalyzedAt = a.now()
		log.Info("no signatures found")
		return res, nil
	}

	var limiter *rate.Limiter
	if a.fetchDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(a.fetchDelay), 1)
	}

	var extracted []domain.SwapEvent
	for _, sig := range sigs {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, ctx.Err()
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tx, err := a.rpc.GetTransaction(ctx, sig.Signature)
		observability.RecordSignatureProcessed()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			res.TransactionsSkipped++
			observability.RecordTransactionSkipped()
			log.WithError(err).WithField("signature", sig.Signature).Warn("skipping transaction")
			continue
		}
		if tx == nil {
			continue
		}
		extracted = append(extracted, swaps.Extract(tx)...)
	}
	observability.RecordSwapsExtracted(len(extracted))

	if len(extracted) == 0 {
		res.Label = domain.LabelNoSwaps
		res.Report = reporting.RenderNoSwaps(len(sigs) - res.TransactionsSkipped)
		res.AnalyzedAt = a.now()
		log.WithField("signatures", len(sigs)).Info("no swaps parsed")
		return res, nil
	}

	res.AnalyzedAt = a.now()
	res.Swaps = metrics.SortByTime(extracted)
	res.Stats = metrics.AggregateWindow(res.Swaps, res.AnalyzedAt, a.window)
	res.Rules = a.classifier.Explain(res.Stats)
	res.Label = a.classifier.Classify(res.Stats)
	res.Report = reporting.RenderText(res.Label, res.Stats)

	if a.archive != nil {
		if err := a.archive.Append(ctx, address, res.RunID, res.Swaps); err != nil {
			log.WithError(err).Warn("archive swaps failed")
		}
	}

	elapsed := res.AnalyzedAt.Sub(start)
	observability.RecordAnalysis(res.Label.String(), elapsed.Seconds(), res.AnalyzedAt.Unix())
	log.WithFields(logrus.Fields{
		"label":    res.Label,
		"swaps":    res.Stats.Total,
		"skipped":  res.TransactionsSkipped,
		"duration": elapsed,
	}).Info("analysis complete")

	return res, nil
}

// Analysis returns the persisted form of the result.
func (r *Result) Analysis() *domain.Analysis {
	return &domain.Analysis{
		Address:    r.Address,
		Label:      r.Label,
		Report:     r.Report,
		Stats:      r.Stats,
		RunID:      r.RunID,
		AnalyzedAt: r.AnalyzedAt,
	}
}

// ReportData returns the result in the shape the reporting renderers take.
func (r *Result) ReportData() *reporting.Report {
	return &reporting.Report{
		Address:             r.Address,
		AddressKind:         string(r.AddressKind),
		RunID:               r.RunID,
		GeneratedAt:         r.AnalyzedAt,
		Label:               r.Label,
		Stats:               r.Stats,
		Rules:               r.Rules,
		Swaps:               r.Swaps,
		SignaturesFetched:   r.SignaturesFetched,
		TransactionsSkipped: r.TransactionsSkipped,
	}
}
