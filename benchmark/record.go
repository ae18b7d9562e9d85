package benchmark

import "time"

// MeasurementRecord holds the five timings of a single trial, in nanoseconds.
type MeasurementRecord struct {
	GenerateNanos int64 `json:"generate_nanos"`
	SortNanos     int64 `json:"sort_nanos"`
	InsertNanos   int64 `json:"insert_nanos"`
	DeleteNanos   int64 `json:"delete_nanos"`
	RetrieveNanos int64 `json:"retrieve_nanos"`
}

// ExecutionRecord is the result of all trials of one run, in trial order.
type ExecutionRecord struct {
	ID           string              `json:"id"`
	Key          ConfigurationKey    `json:"key"`
	Config       Configuration       `json:"config"`
	Measurements []MeasurementRecord `json:"measurements"`
	StartedAt    time.Time           `json:"started_at"`
	FinishedAt   time.Time           `json:"finished_at"`
}
