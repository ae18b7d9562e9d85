package benchmark

import "log/slog"

// Generate appends Size random values in [0, Bound) to the empty container,
// timed as one unit.
func (e *Engine) Generate() (int64, error) {
	if err := e.begin(stepGenerate); err != nil {
		return 0, err
	}

	nanos, _ := Measure(func() struct{} {
		for i := 0; i < e.cfg.Size; i++ {
			e.seq.Append(e.rng.IntN(e.cfg.Bound))
		}
		return struct{}{}
	})

	e.next = stepSort
	e.logTiming("generated", nanos, slog.Int("size", e.cfg.Size))
	return nanos, nil
}
