// Package sqlite implements storage.AnalysisStore on an embedded SQLite file
// (pure Go driver, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/SprengerV/volume-analyzer/internal/domain"
	"github.com/SprengerV/volume-analyzer/internal/observability"
	"github.com/SprengerV/volume-analyzer/internal/storage"
)

// DefaultPath is the database file used when none is configured.
const DefaultPath = "analyses.db"

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
    address              TEXT PRIMARY KEY,
    classification       TEXT    NOT NULL,
    report               TEXT    NOT NULL,
    total_swaps          INTEGER NOT NULL DEFAULT 0,
    recent_swaps         INTEGER NOT NULL DEFAULT 0,
    dominance            REAL    NOT NULL DEFAULT 0,
    wash                 REAL    NOT NULL DEFAULT 0,
    rotation             REAL    NOT NULL DEFAULT 0,
    net                  REAL    NOT NULL DEFAULT 0,
    unique_wallets_ratio REAL    NOT NULL DEFAULT 0,
    run_id               TEXT    NOT NULL DEFAULT '',
    analyzed_at_ms       INTEGER NOT NULL
);
`

// AnalysisStore implements storage.AnalysisStore using SQLite.
type AnalysisStore struct {
	db *sql.DB
}

// Compile-time interface check.
var _ storage.AnalysisStore = (*AnalysisStore)(nil)

// Open opens (or creates) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(path string) (*AnalysisStore, error) {
	if path == "" {
		path = DefaultPath
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // single writer
	db.SetMaxIdleConns(1)

	if path != ":memory:" {
		if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable wal: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &AnalysisStore{db: db}, nil
}

// Save upserts the analysis of a.Address.
func (s *AnalysisStore) Save(ctx context.Context, a *domain.Analysis) (err error) {
	if a == nil || a.Address == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("save_analysis", start, err) }(time.Now())

	analyzedAt := a.AnalyzedAt
	if analyzedAt.IsZero() {
		analyzedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analyses (
			address, classification, report, total_swaps, recent_swaps,
			dominance, wash, rotation, net, unique_wallets_ratio, run_id, analyzed_at_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			classification       = excluded.classification,
			report               = excluded.report,
			total_swaps          = excluded.total_swaps,
			recent_swaps         = excluded.recent_swaps,
			dominance            = excluded.dominance,
			wash                 = excluded.wash,
			rotation             = excluded.rotation,
			net                  = excluded.net,
			unique_wallets_ratio = excluded.unique_wallets_ratio,
			run_id               = excluded.run_id,
			analyzed_at_ms       = excluded.analyzed_at_ms`,
		a.Address,
		string(a.Label),
		a.Report,
		a.Stats.Total,
		a.Stats.Recent,
		a.Stats.Dominance,
		a.Stats.Wash,
		a.Stats.Rotation,
		a.Stats.Net,
		a.Stats.UniqueWalletsRatio,
		a.RunID,
		analyzedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert analysis: %w", err)
	}
	return nil
}

// ListAddresses returns every stored address in ascending order.
func (s *AnalysisStore) ListAddresses(ctx context.Context) (addrs []string, err error) {
	defer func(start time.Time) { observe("list_addresses", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx, `SELECT address FROM analyses ORDER BY address ASC`)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	addrs = []string{}
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("scan address row: %w", err)
		}
		addrs = append(addrs, addr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate address rows: %w", err)
	}
	return addrs, nil
}

// Get retrieves the analysis of an address.
func (s *AnalysisStore) Get(ctx context.Context, address string) (_ *domain.Analysis, err error) {
	defer func(start time.Time) { observe("get_analysis", start, err) }(time.Now())

	var (
		a          domain.Analysis
		label      string
		analyzedAt int64
	)
	err = s.db.QueryRowContext(ctx, `
		SELECT address, classification, report, total_swaps, recent_swaps,
			dominance, wash, rotation, net, unique_wallets_ratio, run_id, analyzed_at_ms
		FROM analyses
		WHERE address = ?`, address).Scan(
		&a.Address,
		&label,
		&a.Report,
		&a.Stats.Total,
		&a.Stats.Recent,
		&a.Stats.Dominance,
		&a.Stats.Wash,
		&a.Stats.Rotation,
		&a.Stats.Net,
		&a.Stats.UniqueWalletsRatio,
		&a.RunID,
		&analyzedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	a.Label = domain.Label(label)
	a.AnalyzedAt = time.UnixMilli(analyzedAt).UTC()
	return &a, nil
}

// Delete removes the analysis of an address.
func (s *AnalysisStore) Delete(ctx context.Context, address string) (err error) {
	defer func(start time.Time) { observe("delete_analysis", start, err) }(time.Now())

	if _, err = s.db.ExecContext(ctx, `DELETE FROM analyses WHERE address = ?`, address); err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *AnalysisStore) Close() error {
	return s.db.Close()
}

func observe(operation string, start time.Time, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		err = nil
	}
	observability.RecordDBQuery("sqlite", operation, time.Since(start).Seconds(), err)
}
