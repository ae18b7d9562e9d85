package benchmark

import (
	"fmt"
	"log/slog"
)

// Insert times a single InsertAt at the configured position. The index and
// the inserted value are computed before the clock starts.
func (e *Engine) Insert() (int64, error) {
	if err := e.begin(stepInsert); err != nil {
		return 0, err
	}

	idx, err := e.index()
	if err != nil {
		return 0, fmt.Errorf("insert: %w", err)
	}
	value := e.rng.IntN(e.cfg.Bound)

	nanos, err := Measure(func() error {
		return e.seq.InsertAt(idx, value)
	})
	if err != nil {
		return 0, fmt.Errorf("insert at %d: %w", idx, err)
	}

	e.next = stepDelete
	e.logTiming("inserted", nanos, slog.Int("index", idx))
	return nanos, nil
}
