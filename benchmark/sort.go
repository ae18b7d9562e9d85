package benchmark

// Sort orders the container ascending in place.
func (e *Engine) Sort() (int64, error) {
	if err := e.begin(stepSort); err != nil {
		return 0, err
	}

	nanos, _ := Measure(func() struct{} {
		e.seq.Sort()
		return struct{}{}
	})

	e.next = stepInsert
	e.logTiming("sorted", nanos)
	return nanos, nil
}
