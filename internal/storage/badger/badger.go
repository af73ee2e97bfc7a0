// Package badger implements storage.AnalysisStore on an embedded Badger KV
// database. Analyses are JSON values under the "analysis/" key prefix.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/SprengerV/volume-analyzer/internal/domain"
	"github.com/SprengerV/volume-analyzer/internal/observability"
	"github.com/SprengerV/volume-analyzer/internal/storage"
)

const keyPrefix = "analysis/"

// Options configures the Badger store.
type Options struct {
	Path string
	// InMemory runs Badger without touching disk; Path is ignored.
	InMemory bool
}

// AnalysisStore implements storage.AnalysisStore using Badger.
type AnalysisStore struct {
	db *badgerdb.DB
}

// Compile-time interface check.
var _ storage.AnalysisStore = (*AnalysisStore)(nil)

// Open opens (or creates) the Badger database.
func Open(opts Options) (*AnalysisStore, error) {
	var bopts badgerdb.Options
	switch {
	case opts.InMemory:
		bopts = badgerdb.DefaultOptions("").WithInMemory(true)
	case strings.TrimSpace(opts.Path) == "":
		return nil, errors.New("badger: path is required")
	default:
		bopts = badgerdb.DefaultOptions(opts.Path)
	}
	db, err := badgerdb.Open(bopts.WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &AnalysisStore{db: db}, nil
}

// record is the stored JSON shape.
type record struct {
	Address    string       `json:"address"`
	Label      string       `json:"classification"`
	Report     string       `json:"report"`
	Stats      domain.Stats `json:"stats"`
	RunID      string       `json:"run_id"`
	AnalyzedAt time.Time    `json:"analyzed_at"`
}

func analysisKey(address string) []byte {
	return []byte(keyPrefix + address)
}

// Save upserts the analysis of a.Address.
func (s *AnalysisStore) Save(_ context.Context, a *domain.Analysis) (err error) {
	if a == nil || a.Address == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("save_analysis", start, err) }(time.Now())

	analyzedAt := a.AnalyzedAt
	if analyzedAt.IsZero() {
		analyzedAt = time.Now()
	}
	val, err := json.Marshal(record{
		Address:    a.Address,
		Label:      string(a.Label),
		Report:     a.Report,
		Stats:      a.Stats,
		RunID:      a.RunID,
		AnalyzedAt: analyzedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	err = s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(analysisKey(a.Address), val)
	})
	if err != nil {
		return fmt.Errorf("put analysis: %w", err)
	}
	return nil
}

// ListAddresses returns every stored address in ascending order.
// Badger iterates keys in byte order, which is the required order.
func (s *AnalysisStore) ListAddresses(_ context.Context) (addrs []string, err error) {
	defer func(start time.Time) { observe("list_addresses", start, err) }(time.Now())

	addrs = []string{}
	err = s.db.View(func(txn *badgerdb.Txn) error {
		it := txn.NewIterator(badgerdb.IteratorOptions{
			PrefetchValues: false,
			Prefix:         []byte(keyPrefix),
		})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			addrs = append(addrs, strings.TrimPrefix(key, keyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	return addrs, nil
}

// Get retrieves the analysis of an address.
func (s *AnalysisStore) Get(_ context.Context, address string) (_ *domain.Analysis, err error) {
	defer func(start time.Time) { observe("get_analysis", start, err) }(time.Now())

	var rec record
	err = s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(analysisKey(address))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get analysis: %w", err)
	}

	return &domain.Analysis{
		Address:    rec.Address,
		Label:      domain.Label(rec.Label),
		Report:     rec.Report,
		Stats:      rec.Stats,
		RunID:      rec.RunID,
		AnalyzedAt: rec.AnalyzedAt.UTC(),
	}, nil
}

// Delete removes the analysis of an address.
func (s *AnalysisStore) Delete(_ context.Context, address string) (err error) {
	defer func(start time.Time) { observe("delete_analysis", start, err) }(time.Now())

	err = s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(analysisKey(address))
	})
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *AnalysisStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func observe(operation string, start time.Time, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		err = nil
	}
	observability.RecordDBQuery("badger", operation, time.Since(start).Seconds(), err)
}
