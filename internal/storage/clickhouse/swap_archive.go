package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/SprengerV/volume-analyzer/internal/domain"
	"github.com/SprengerV/volume-analyzer/internal/idhash"
	"github.com/SprengerV/volume-analyzer/internal/observability"
	"github.com/SprengerV/volume-analyzer/internal/storage"
)

// SwapArchive implements storage.SwapArchive using ClickHouse.
// Rows land in a ReplacingMergeTree keyed by (run_id, swap_id), and reads use
// FINAL, so appending the same swap twice leaves one row.
type SwapArchive struct {
	conn *Conn
}

// NewSwapArchive creates a new SwapArchive.
func NewSwapArchive(conn *Conn) *SwapArchive {
	return &SwapArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.SwapArchive = (*SwapArchive)(nil)

// Append stores swaps under runID in one batch.
func (a *SwapArchive) Append(ctx context.Context, address, runID string, swaps []domain.SwapEvent) (err error) {
	if address == "" || runID == "" {
		return storage.ErrInvalidInput
	}
	if len(swaps) == 0 {
		return nil
	}
	defer func(start time.Time) {
		observability.RecordDBQuery("clickhouse", "append_swaps", time.Since(start).Seconds(), err)
	}(time.Now())

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO swap_events (
			run_id, swap_id, address, tx_signature, event_index, slot, block_time,
			input_mint, amount_in, output_mint, amount_out, price, account_keys
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, s := range swaps {
		keys := s.AccountKeys
		if keys == nil {
			keys = []string{}
		}
		// Pass nil values directly for Nullable columns
		err = batch.Append(
			runID, idhash.ComputeSwapID(s.TxSignature, s.EventIndex), address,
			s.TxSignature, uint32(s.EventIndex), uint64(s.Slot), s.Timestamp,
			s.InputMint, s.AmountIn, s.OutputMint, s.AmountOut, s.Price, keys,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRun returns the swaps of a run ordered by timestamp, signature, event index.
// Unknown timestamps sort first.
func (a *SwapArchive) GetByRun(ctx context.Context, runID string) (swaps []domain.SwapEvent, err error) {
	defer func(start time.Time) {
		observability.RecordDBQuery("clickhouse", "get_swaps_by_run", time.Since(start).Seconds(), err)
	}(time.Now())

	query := `
		SELECT tx_signature, event_index, slot, block_time,
			input_mint, amount_in, output_mint, amount_out, price, account_keys
		FROM swap_events FINAL
		WHERE run_id = ?
		ORDER BY ifNull(block_time, 0) ASC, tx_signature ASC, event_index ASC
	`

	rows, err := a.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query swaps by run: %w", err)
	}
	defer rows.Close()

	return scanSwapEvents(rows)
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanSwapEvents scans multiple rows into a slice.
func scanSwapEvents(rows chRows) ([]domain.SwapEvent, error) {
	swaps := []domain.SwapEvent{}

	for rows.Next() {
		var (
			s          domain.SwapEvent
			eventIndex uint32
			slot       uint64
			blockTime  *int64
			price      *float64
			keys       []string
		)
		err := rows.Scan(
			&s.TxSignature, &eventIndex, &slot, &blockTime,
			&s.InputMint, &s.AmountIn, &s.OutputMint, &s.AmountOut, &price, &keys,
		)
		if err != nil {
			return nil, fmt.Errorf("scan swap event: %w", err)
		}
		s.EventIndex = int(eventIndex)
		s.Slot = int64(slot)
		s.Timestamp = blockTime
		s.Price = price
		if len(keys) > 0 {
			s.AccountKeys = keys
		}
		swaps = append(swaps, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swap events: %w", err)
	}
	return swaps, nil
}
