// Package config loads runtime settings from a YAML file, an optional .env
// file and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendBadger   = "badger"
	BackendMemory   = "memory"
)

// DefaultRPCEndpoint is the public mainnet endpoint.
const DefaultRPCEndpoint = "https://api.mainnet-beta.solana.com"

// Config is the complete application configuration.
type Config struct {
	RPC      RPCConfig      `yaml:"rpc"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Storage  StorageConfig  `yaml:"storage"`
	Sinks    SinksConfig    `yaml:"sinks"`
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
}

// RPCConfig configures the Solana RPC gateway.
type RPCConfig struct {
	Endpoints  []string      `yaml:"endpoints"`
	WSEndpoint string        `yaml:"ws_endpoint"` // empty disables log-driven wakeups
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
	RateLimit  float64       `yaml:"rate_limit"` // requests per second, 0 = unlimited
	RateBurst  int           `yaml:"rate_burst"`
}

// AnalysisConfig configures historical analysis.
type AnalysisConfig struct {
	Lookback     int           `yaml:"lookback"`
	MaxFetch     int           `yaml:"max_fetch"`
	FetchDelay   time.Duration `yaml:"fetch_delay"`
	RecentWindow time.Duration `yaml:"recent_window"`
	Schedule     string        `yaml:"schedule"` // cron spec for re-analysis of saved addresses; empty disables
}

// MonitorConfig configures live monitors.
type MonitorConfig struct {
	PollInterval     time.Duration `yaml:"poll_interval"`
	History          int           `yaml:"history"`
	SilenceThreshold time.Duration `yaml:"silence_threshold"`
	FetchDelay       time.Duration `yaml:"fetch_delay"`
	MaxFetchAttempts int           `yaml:"max_fetch_attempts"`
	EventBuffer      int           `yaml:"event_buffer"`
	ExportDir        string        `yaml:"export_dir"`
}

// StorageConfig selects and configures the persistence backends.
type StorageConfig struct {
	Backend       string `yaml:"backend"`
	SQLitePath    string `yaml:"sqlite_path"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	BadgerPath    string `yaml:"badger_path"`
	ClickHouseDSN string `yaml:"clickhouse_dsn"` // empty disables the swap archive
}

// SinksConfig configures event forwarding. Empty addresses disable a sink.
type SinksConfig struct {
	Redis RedisConfig `yaml:"redis"`
	Kafka KafkaConfig `yaml:"kafka"`
}

// RedisConfig configures the Redis stream sink.
type RedisConfig struct {
	Addr   string `yaml:"addr"`
	Stream string `yaml:"stream"`
	MaxLen int64  `yaml:"max_len"`
}

// KafkaConfig configures the Kafka sink.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// LogConfig controls log level, format and file rotation.
type LogConfig struct {
	Level      string `yaml:"level"`  // debug | info | warn | error
	Format     string `yaml:"format"` // text | json
	File       string `yaml:"file"`   // empty logs to stderr
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads the YAML file at path, loads .env if present, applies
// environment overrides and defaults, then validates. An empty path skips
// the file.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides overwrites values with environment variables when set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SOLANA_RPC_ENDPOINTS"); v != "" {
		cfg.RPC.Endpoints = splitList(v)
	}
	if v := os.Getenv("SOLANA_WS_ENDPOINT"); v != "" {
		cfg.RPC.WSEndpoint = v
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		cfg.Storage.ClickHouseDSN = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("BADGER_PATH"); v != "" {
		cfg.Storage.BadgerPath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Sinks.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Sinks.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
}

// SetDefaults fills every unset value.
func (c *Config) SetDefaults() {
	if len(c.RPC.Endpoints) == 0 {
		c.RPC.Endpoints = []string{DefaultRPCEndpoint}
	}
	if c.RPC.Timeout <= 0 {
		c.RPC.Timeout = 30 * time.Second
	}
	if c.RPC.MaxRetries <= 0 {
		c.RPC.MaxRetries = 3
	}
	if c.RPC.RetryDelay <= 0 {
		c.RPC.RetryDelay = time.Second
	}
	if c.RPC.MaxDelay <= 0 {
		c.RPC.MaxDelay = 10 * time.Second
	}

	if c.Analysis.Lookback <= 0 {
		c.Analysis.Lookback = 200
	}
	if c.Analysis.MaxFetch <= 0 {
		c.Analysis.MaxFetch = 120
	}
	if c.Analysis.FetchDelay <= 0 {
		c.Analysis.FetchDelay = 120 * time.Millisecond
	}
	if c.Analysis.RecentWindow <= 0 {
		c.Analysis.RecentWindow = time.Hour
	}

	if c.Monitor.PollInterval <= 0 {
		c.Monitor.PollInterval = 8 * time.Second
	}
	if c.Monitor.History <= 0 {
		c.Monitor.History = 200
	}
	if c.Monitor.SilenceThreshold <= 0 {
		c.Monitor.SilenceThreshold = 300 * time.Second
	}
	if c.Monitor.FetchDelay <= 0 {
		c.Monitor.FetchDelay = 80 * time.Millisecond
	}
	if c.Monitor.MaxFetchAttempts <= 0 {
		c.Monitor.MaxFetchAttempts = 3
	}
	if c.Monitor.EventBuffer <= 0 {
		c.Monitor.EventBuffer = 100
	}
	if c.Monitor.ExportDir == "" {
		c.Monitor.ExportDir = "."
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendSQLite
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "analyses.db"
	}
	if c.Storage.BadgerPath == "" {
		c.Storage.BadgerPath = "data/badger"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays <= 0 {
		c.Log.MaxAgeDays = 28
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Backend {
	case BackendSQLite, BackendBadger, BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}

	for _, ep := range c.RPC.Endpoints {
		if !strings.HasPrefix(ep, "http://") && !strings.HasPrefix(ep, "https://") {
			errs = append(errs, fmt.Errorf("rpc endpoint %q must be http(s)", ep))
		}
	}
	if ws := c.RPC.WSEndpoint; ws != "" && !strings.HasPrefix(ws, "ws://") && !strings.HasPrefix(ws, "wss://") {
		errs = append(errs, fmt.Errorf("ws endpoint %q must be ws(s)", ws))
	}
	if c.RPC.RateLimit < 0 {
		errs = append(errs, errors.New("rpc.rate_limit must not be negative"))
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// splitList splits a comma separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
