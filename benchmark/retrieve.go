package benchmark

import (
	"fmt"
	"log/slog"
)

type getResult struct {
	value int
	err   error
}

// Retrieve times a single Get at the configured position. The container is
// not modified.
func (e *Engine) Retrieve() (int64, error) {
	if err := e.begin(stepRetrieve); err != nil {
		return 0, err
	}

	idx, err := e.index()
	if err != nil {
		return 0, fmt.Errorf("retrieve: %w", err)
	}

	nanos, res := Measure(func() getResult {
		v, err := e.seq.Get(idx)
		return getResult{value: v, err: err}
	})
	if res.err != nil {
		return 0, fmt.Errorf("retrieve at %d: %w", idx, res.err)
	}

	e.retrieved = res.value
	e.next = stepDone
	e.logTiming("retrieved", nanos, slog.Int("index", idx))
	return nanos, nil
}
