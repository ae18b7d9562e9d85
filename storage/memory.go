package storage

import (
	"context"
	"sync"

	"seqbench/benchmark"
)

// Memory keeps records in process memory. Records are copied on the way in
// and out so callers cannot alias stored state.
type Memory struct {
	mu      sync.RWMutex
	records map[benchmark.ConfigurationKey][]benchmark.ExecutionRecord
}

func NewMemory() *Memory {
	return &Memory{records: make(map[benchmark.ConfigurationKey][]benchmark.ExecutionRecord)}
}

func (m *Memory) Save(ctx context.Context, rec *benchmark.ExecutionRecord) error {
	if err := ctx.Err(); err != nil {
		return &Error{Op: "save", Key: rec.Key.String(), Err: err}
	}
	cp := *rec
	cp.Measurements = append([]benchmark.MeasurementRecord(nil), rec.Measurements...)

	m.mu.Lock()
	m.records[rec.Key] = append(m.records[rec.Key], cp)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Find(_ context.Context, key benchmark.ConfigurationKey) ([]benchmark.ExecutionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.records[key]
	out := make([]benchmark.ExecutionRecord, len(stored))
	for i, rec := range stored {
		out[i] = rec
		out[i].Measurements = append([]benchmark.MeasurementRecord(nil), rec.Measurements...)
	}
	sortByStart(out)
	return out, nil
}

func (m *Memory) Close() error {
	return nil
}
