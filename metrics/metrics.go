// Package metrics defines the Prometheus instruments exported by seqbench.
//
// All instruments are registered against the Registerer passed to New, so
// tests can use a private registry while the server uses the default one.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "seqbench"

// Run outcome labels.
const (
	StatusAccepted     = "accepted"
	StatusRejected     = "rejected"
	StatusPersisted    = "persisted"
	StatusStorageError = "storage_error"
	StatusCancelled    = "cancelled"
	StatusFailed       = "failed"
)

// Metrics holds the instruments shared by the pool, the orchestrator and
// the storage backends.
type Metrics struct {
	// RunsSubmitted counts submissions by admission outcome.
	// Labels: status (accepted, rejected), reason
	RunsSubmitted *prometheus.CounterVec

	// RunsFinished counts finished runs by outcome.
	// Labels: status (persisted, storage_error, cancelled, failed)
	RunsFinished *prometheus.CounterVec

	// TrialsTotal counts completed trials.
	// Labels: variant, position
	TrialsTotal *prometheus.CounterVec

	// RunDurationSeconds measures the wall time of a whole run, storage included.
	RunDurationSeconds prometheus.Histogram

	// StorageSaveSeconds measures Save latency per backend.
	// Labels: backend
	StorageSaveSeconds *prometheus.HistogramVec

	// QueueDepth is the number of runs waiting for a worker.
	QueueDepth prometheus.Gauge

	// ActiveRuns is the number of runs currently executing.
	ActiveRuns prometheus.Gauge
}

// New creates and registers all instruments with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RunsSubmitted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_submitted_total",
			Help:      "Benchmark runs submitted, by admission outcome",
		}, []string{"status", "reason"}),
		RunsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_finished_total",
			Help:      "Benchmark runs finished, by outcome",
		}, []string{"status"}),
		TrialsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trials_total",
			Help:      "Completed trials by container variant and position",
		}, []string{"variant", "position"}),
		RunDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a benchmark run including persistence",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		StorageSaveSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "save_seconds",
			Help:      "Latency of execution record saves",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend"}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "queue_depth",
			Help:      "Runs waiting for a worker",
		}),
		ActiveRuns: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "active_runs",
			Help:      "Runs currently executing",
		}),
	}
}
