package benchmark

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"seqbench/metrics"
)

const saveTimeout = 30 * time.Second

// Storage persists finished execution records.
type Storage interface {
	Save(ctx context.Context, rec *ExecutionRecord) error
}

// Runner executes the trials of one configuration in the calling goroutine.
type Runner struct {
	// Logger receives per-operation debug lines. Nil discards them.
	Logger *slog.Logger
	// Seed makes trial i use seed Seed+i. Zero draws a fresh seed per trial.
	Seed uint64
	// OnTrial, when set, is called after every completed trial.
	OnTrial func(trial int, m MeasurementRecord)
}

// Run builds a fresh engine for every trial and returns the measurements in
// trial order. ctx is checked between trials and between operations; on
// cancellation the partial measurements are dropped.
func (r Runner) Run(ctx context.Context, cfg Configuration) ([]MeasurementRecord, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	out := make([]MeasurementRecord, 0, cfg.Trials)
	for i := 0; i < cfg.Trials; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("before trial %d: %w", i, err)
		}

		opts := []EngineOption{WithLogger(logger.With(slog.Int("trial", i)))}
		if r.Seed != 0 {
			opts = append(opts, WithSeed(r.Seed+uint64(i)))
		}
		engine, err := NewEngine(cfg, opts...)
		if err != nil {
			return nil, err
		}

		rec, err := engine.Run(ctx)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", i, err)
		}
		out = append(out, rec)

		if r.OnTrial != nil {
			r.OnTrial(i, rec)
		}
	}
	return out, nil
}

// Orchestrator accepts benchmark configurations and runs each one as a
// single pool task that ends with one Storage.Save call.
type Orchestrator struct {
	storage Storage
	pool    *Pool
	logger  *slog.Logger
	metrics *metrics.Metrics
	seed    uint64
	maxSize int
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithRunSeed fixes the random streams of every run, for reproducible tests.
func WithRunSeed(seed uint64) OrchestratorOption {
	return func(o *Orchestrator) {
		o.seed = seed
	}
}

// WithMaxSize rejects configurations larger than n elements. It can only
// lower MaxSize.
func WithMaxSize(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.maxSize = n
	}
}

func NewOrchestrator(storage Storage, pool *Pool, logger *slog.Logger, m *metrics.Metrics, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		storage: storage,
		pool:    pool,
		logger:  logger,
		metrics: m,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit validates cfg and schedules its run. The returned handle reports
// completion, but callers are not expected to wait for it: a nil error only
// means the run was accepted.
func (o *Orchestrator) Submit(cfg Configuration) (*Handle, error) {
	if err := o.validate(cfg); err != nil {
		o.metrics.RunsSubmitted.WithLabelValues(metrics.StatusRejected, "invalid").Inc()
		return nil, err
	}

	id := uuid.NewString()
	h, err := o.pool.Submit(id, func(ctx context.Context) error {
		return o.execute(ctx, id, cfg)
	})
	if err != nil {
		o.metrics.RunsSubmitted.WithLabelValues(metrics.StatusRejected, rejectReason(err)).Inc()
		o.logger.Warn("benchmark rejected",
			slog.Any("config", cfg),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	o.metrics.RunsSubmitted.WithLabelValues(metrics.StatusAccepted, "").Inc()
	o.logger.Info("benchmark accepted",
		slog.String("run_id", id),
		slog.Any("config", cfg),
	)
	return h, nil
}

func (o *Orchestrator) validate(cfg Configuration) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if o.maxSize > 0 && cfg.Size > o.maxSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrInvalidConfiguration, cfg.Size, o.maxSize)
	}
	return nil
}

// Lookup returns the handle of a run still tracked by the pool.
func (o *Orchestrator) Lookup(id string) (*Handle, error) {
	return o.pool.Lookup(id)
}

func (o *Orchestrator) execute(ctx context.Context, id string, cfg Configuration) error {
	started := time.Now()
	defer func() {
		o.metrics.RunDurationSeconds.Observe(time.Since(started).Seconds())
	}()

	logger := o.logger.With(slog.String("run_id", id))
	runner := Runner{
		Logger: logger,
		Seed:   o.seed,
		OnTrial: func(int, MeasurementRecord) {
			o.metrics.TrialsTotal.WithLabelValues(cfg.Variant.String(), cfg.Position.String()).Inc()
		},
	}

	measurements, err := runner.Run(ctx, cfg)
	if err != nil {
		if ctx.Err() != nil {
			o.metrics.RunsFinished.WithLabelValues(metrics.StatusCancelled).Inc()
			logger.Warn("benchmark cancelled, partial results discarded",
				slog.String("error", err.Error()),
			)
			return err
		}
		o.metrics.RunsFinished.WithLabelValues(metrics.StatusFailed).Inc()
		logger.Error("benchmark failed", slog.String("error", err.Error()))
		return err
	}

	rec := &ExecutionRecord{
		ID:           id,
		Key:          cfg.Key(),
		Config:       cfg,
		Measurements: measurements,
		StartedAt:    started.UTC(),
		FinishedAt:   time.Now().UTC(),
	}

	// A complete record is saved even if the pool is shutting down.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()

	if err := o.storage.Save(saveCtx, rec); err != nil {
		o.metrics.RunsFinished.WithLabelValues(metrics.StatusStorageError).Inc()
		logger.Error("failed to persist execution record",
			slog.String("key", rec.Key.String()),
			slog.String("error", err.Error()),
		)
		return err
	}

	o.metrics.RunsFinished.WithLabelValues(metrics.StatusPersisted).Inc()
	logger.Info("benchmark complete",
		slog.String("key", rec.Key.String()),
		slog.Int("trials", len(measurements)),
		slog.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func rejectReason(err error) string {
	switch err {
	case ErrPoolSaturated:
		return "saturated"
	case ErrRateLimited:
		return "rate_limited"
	case ErrPoolClosed:
		return "closed"
	}
	return "other"
}
