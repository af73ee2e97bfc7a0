// Package app wires configuration into the running components shared by
// the command line tools and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/SprengerV/volume-analyzer/internal/analysis"
	"github.com/SprengerV/volume-analyzer/internal/config"
	"github.com/SprengerV/volume-analyzer/internal/eventsink"
	"github.com/SprengerV/volume-analyzer/internal/logging"
	"github.com/SprengerV/volume-analyzer/internal/monitor"
	"github.com/SprengerV/volume-analyzer/internal/solana"
	"github.com/SprengerV/volume-analyzer/internal/storage"
	"github.com/SprengerV/volume-analyzer/internal/storage/badger"
	chstore "github.com/SprengerV/volume-analyzer/internal/storage/clickhouse"
	"github.com/SprengerV/volume-analyzer/internal/storage/memory"
	"github.com/SprengerV/volume-analyzer/internal/storage/migrations"
	"github.com/SprengerV/volume-analyzer/internal/storage/postgres"
	"github.com/SprengerV/volume-analyzer/internal/storage/sqlite"
)

// App holds the wired components. Build it with New and release it with Close.
type App struct {
	Config *config.Config
	Logger *logrus.Logger

	RPC     solana.RPCClient
	Watcher solana.LogsWatcher // nil without a websocket endpoint

	Store   storage.AnalysisStore
	Archive storage.SwapArchive // nil without ClickHouse

	Sinks    *eventsink.Async // nil when no sink is configured
	Analyzer *analysis.Analyzer
	Registry *monitor.Registry

	closers []io.Closer
}

// New builds every component from cfg. Monitors started through the
// registry run until ctx is done or Close is called.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, logCloser, err := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger}
	a.closers = append(a.closers, logCloser)

	a.RPC = NewRPCClient(cfg.RPC)
	if cfg.RPC.WSEndpoint != "" {
		a.Watcher = solana.NewWSClient(cfg.RPC.WSEndpoint, nil, logger.WithField("component", "ws"))
	}

	store, err := OpenStore(ctx, cfg.Storage, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, store)

	if cfg.Storage.ClickHouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickHouseDSN, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("clickhouse: %w", err)
		}
		a.Archive = chstore.NewSwapArchive(conn)
		a.closers = append(a.closers, conn)
	}

	if pubs := publishers(cfg.Sinks); len(pubs) > 0 {
		a.Sinks = eventsink.NewAsync(eventsink.AsyncOptions{
			Logger: logger.WithField("component", "eventsink"),
		}, pubs...)
		a.closers = append(a.closers, a.Sinks)
	}

	a.Analyzer = analysis.New(analysis.Options{
		RPC:             a.RPC,
		MaxFetch:        cfg.Analysis.MaxFetch,
		DefaultLookback: cfg.Analysis.Lookback,
		FetchDelay:      cfg.Analysis.FetchDelay,
		RecentWindow:    cfg.Analysis.RecentWindow,
		Archive:         a.Archive,
		Logger:          logger.WithField("component", "analyzer"),
	})

	regOpts := monitor.RegistryOptions{
		RPC: a.RPC,
		Defaults: monitor.Config{
			PollInterval:     cfg.Monitor.PollInterval,
			History:          cfg.Monitor.History,
			SilenceThreshold: cfg.Monitor.SilenceThreshold,
			FetchDelay:       cfg.Monitor.FetchDelay,
			MaxFetchAttempts: cfg.Monitor.MaxFetchAttempts,
		},
		Watcher:     a.Watcher,
		EventBuffer: cfg.Monitor.EventBuffer,
		Logger:      logger.WithField("component", "monitor"),
	}
	if a.Sinks != nil {
		regOpts.Observer = a.Sinks
	}
	a.Registry = monitor.NewRegistry(ctx, regOpts)

	return a, nil
}

// Close stops every monitor, then releases resources in reverse order of
// acquisition.
func (a *App) Close() error {
	if a.Registry != nil {
		a.Registry.StopAll()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewRPCClient creates the HTTP RPC client with failover across endpoints.
func NewRPCClient(cfg config.RPCConfig) *solana.HTTPClient {
	opts := []solana.ClientOption{
		solana.WithTimeout(cfg.Timeout),
		solana.WithMaxRetries(cfg.MaxRetries),
		solana.WithRetryDelay(cfg.RetryDelay),
		solana.WithMaxDelay(cfg.MaxDelay),
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, solana.WithRateLimit(cfg.RateLimit, cfg.RateBurst))
	}
	return solana.NewHTTPClient(cfg.Endpoints, opts...)
}

// OpenStore opens the configured analysis store, applying migrations where
// the backend needs them.
func OpenStore(ctx context.Context, cfg config.StorageConfig, logger logrus.FieldLogger) (storage.AnalysisStore, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.NewAnalysisStore(), nil
	case config.BackendSQLite:
		return sqlite.Open(cfg.SQLitePath)
	case config.BackendBadger:
		return badger.Open(badger.Options{Path: cfg.BadgerPath})
	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		return postgres.NewAnalysisStore(pool), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func publishers(cfg config.SinksConfig) []eventsink.Publisher {
	var pubs []eventsink.Publisher
	if cfg.Redis.Addr != "" {
		pubs = append(pubs, eventsink.NewRedisSink(eventsink.RedisOptions{
			Addr:   cfg.Redis.Addr,
			Stream: cfg.Redis.Stream,
			MaxLen: cfg.Redis.MaxLen,
		}))
	}
	if len(cfg.Kafka.Brokers) > 0 {
		pubs = append(pubs, eventsink.NewKafkaSink(eventsink.KafkaOptions{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}))
	}
	return pubs
}
