package benchmark

import (
	"fmt"
	"log/slog"
)

// Delete times a single RemoveAt at the configured position, resolved
// against the size left by Insert.
func (e *Engine) Delete() (int64, error) {
	if err := e.begin(stepDelete); err != nil {
		return 0, err
	}

	idx, err := e.index()
	if err != nil {
		return 0, fmt.Errorf("delete: %w", err)
	}

	nanos, err := Measure(func() error {
		_, err := e.seq.RemoveAt(idx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete at %d: %w", idx, err)
	}

	e.next = stepRetrieve
	e.logTiming("removed", nanos, slog.Int("index", idx))
	return nanos, nil
}
