package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/SprengerV/volume-analyzer/internal/domain"
	"github.com/SprengerV/volume-analyzer/internal/storage"
)

// AnalysisStore implements storage.AnalysisStore using PostgreSQL.
type AnalysisStore struct {
	pool *Pool
}

// NewAnalysisStore creates a new AnalysisStore.
func NewAnalysisStore(pool *Pool) *AnalysisStore {
	return &AnalysisStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AnalysisStore = (*AnalysisStore)(nil)

// Save upserts the analysis of a.Address.
func (s *AnalysisStore) Save(ctx context.Context, a *domain.Analysis) (err error) {
	if a == nil || a.Address == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("save_analysis", start, err) }(time.Now())

	query := `
		INSERT INTO analyses (
			address, classification, report, total_swaps, recent_swaps,
			dominance, wash, rotation, net, unique_wallets_ratio, run_id, analyzed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (address) DO UPDATE SET
			classification = EXCLUDED.classification,
			report = EXCLUDED.report,
			total_swaps = EXCLUDED.total_swaps,
			recent_swaps = EXCLUDED.recent_swaps,
			dominance = EXCLUDED.dominance,
			wash = EXCLUDED.wash,
			rotation = EXCLUDED.rotation,
			net = EXCLUDED.net,
			unique_wallets_ratio = EXCLUDED.unique_wallets_ratio,
			run_id = EXCLUDED.run_id,
			analyzed_at = EXCLUDED.analyzed_at
	`

	analyzedAt := a.AnalyzedAt
	if analyzedAt.IsZero() {
		analyzedAt = time.Now()
	}

	_, err = s.pool.Exec(ctx, query,
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
		analyzedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert analysis: %w", err)
	}
	return nil
}

// ListAddresses returns every stored address in ascending order.
func (s *AnalysisStore) ListAddresses(ctx context.Context) (addrs []string, err error) {
	defer func(start time.Time) { observe("list_addresses", start, err) }(time.Now())

	rows, err := s.pool.Query(ctx, `SELECT address FROM analyses ORDER BY address ASC`)
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

	query := `
		SELECT address, classification, report, total_swaps, recent_swaps,
			dominance, wash, rotation, net, unique_wallets_ratio, run_id, analyzed_at
		FROM analyses
		WHERE address = $1
	`

	var (
		a     domain.Analysis
		label string
	)
	err = s.pool.QueryRow(ctx, query, address).Scan(
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
		&a.AnalyzedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	a.Label = domain.Label(label)
	a.AnalyzedAt = a.AnalyzedAt.UTC()
	return &a, nil
}

// Delete removes the analysis of an address.
func (s *AnalysisStore) Delete(ctx context.Context, address string) (err error) {
	defer func(start time.Time) { observe("delete_analysis", start, err) }(time.Now())

	if _, err = s.pool.Exec(ctx, `DELETE FROM analyses WHERE address = $1`, address); err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	return nil
}

// Close closes the underlying pool.
func (s *AnalysisStore) Close() error {
	s.pool.Close()
	return nil
}
