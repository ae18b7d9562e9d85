// Package storage persists benchmark execution records.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"seqbench/benchmark"
	"seqbench/config"
	"seqbench/metrics"
)

// Error wraps a backend failure with the operation and record key involved.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Finder lists stored records that share a configuration key.
type Finder interface {
	Find(ctx context.Context, key benchmark.ConfigurationKey) ([]benchmark.ExecutionRecord, error)
}

// Store is a Storage that can also be searched and closed.
type Store interface {
	benchmark.Storage
	Finder
	Close() error
}

func encodeRecord(rec *benchmark.ExecutionRecord) ([]byte, error) {
	return json.Marshal(rec)
}

func decodeRecord(data []byte) (benchmark.ExecutionRecord, error) {
	var rec benchmark.ExecutionRecord
	err := json.Unmarshal(data, &rec)
	return rec, err
}

func sortByStart(recs []benchmark.ExecutionRecord) {
	slices.SortStableFunc(recs, func(a, b benchmark.ExecutionRecord) int {
		return a.StartedAt.Compare(b.StartedAt)
	})
}

// recordPath is the backend-neutral location of a record: records are
// grouped by key and addressed by run id, so runs never overwrite each other.
func recordPath(key benchmark.ConfigurationKey, id string) string {
	return key.String() + "/" + id
}

// Open builds the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger, m *metrics.Metrics) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case config.BackendMemory, "":
		s = NewMemory()
	case config.BackendBadger:
		s, err = OpenBadger(cfg.Badger, logger)
	case config.BackendOCI:
		s, err = NewOCI(ctx, cfg.OCI, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Backend == "" {
		cfg.Backend = config.BackendMemory
	}
	return Instrument(cfg.Backend, s, m), nil
}

// Instrument records Save latency of s under the given backend label.
func Instrument(backend string, s Store, m *metrics.Metrics) Store {
	if m == nil {
		return s
	}
	return &instrumented{Store: s, backend: backend, metrics: m}
}

type instrumented struct {
	Store
	backend string
	metrics *metrics.Metrics
}

func (i *instrumented) Save(ctx context.Context, rec *benchmark.ExecutionRecord) error {
	start := time.Now()
	err := i.Store.Save(ctx, rec)
	i.metrics.StorageSaveSeconds.WithLabelValues(i.backend).Observe(time.Since(start).Seconds())
	return err
}
