package benchmark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"

	"seqbench/container"
)

// ErrOutOfOrder is returned when an engine operation is called before the
// operations it depends on.
var ErrOutOfOrder = errors.New("engine operation called out of order")

type step int

const (
	stepGenerate step = iota
	stepSort
	stepInsert
	stepDelete
	stepRetrieve
	stepDone
)

var stepNames = [...]string{"generate", "sort", "insert", "delete", "retrieve", "done"}

func (s step) String() string {
	return stepNames[s]
}

// Engine drives one container through a single trial. Each operation
// depends on the state left by the previous one, so they must run in the
// order Generate, Sort, Insert, Delete, Retrieve.
type Engine struct {
	cfg    Configuration
	seq    container.Sequence
	rng    *rand.Rand
	logger *slog.Logger
	next   step

	retrieved int
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithSeed makes the engine's random stream deterministic.
func WithSeed(seed uint64) EngineOption {
	return func(e *Engine) {
		e.rng = newRand(seed)
	}
}

// WithLogger sets the logger used for per-operation debug lines.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewEngine validates cfg and prepares an empty container of the requested
// variant. Nothing is timed here.
func NewEngine(cfg Configuration, opts ...EngineOption) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seq, err := newSequence(cfg.Variant, cfg.Size)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:    cfg,
		seq:    seq,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = newRand(rand.Uint64())
	}
	return e, nil
}

func newSequence(v Variant, size int) (container.Sequence, error) {
	switch v {
	case ArrayBacked:
		// One spare slot so the timed insert measures the shift, not a regrowth.
		capacity := size
		if size < math.MaxInt {
			capacity++
		}
		return container.NewArray(capacity), nil
	case LinkedNodeBacked:
		return container.NewLinked(), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnsupportedVariant, int(v))
}

// Len returns the current number of elements in the engine's container.
func (e *Engine) Len() int {
	return e.seq.Len()
}

// Run executes the five operations in order and returns their timings.
func (e *Engine) Run(ctx context.Context) (MeasurementRecord, error) {
	var rec MeasurementRecord

	ops := []struct {
		run func() (int64, error)
		dst *int64
	}{
		{e.Generate, &rec.GenerateNanos},
		{e.Sort, &rec.SortNanos},
		{e.Insert, &rec.InsertNanos},
		{e.Delete, &rec.DeleteNanos},
		{e.Retrieve, &rec.RetrieveNanos},
	}
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return MeasurementRecord{}, err
		}
		nanos, err := op.run()
		if err != nil {
			return MeasurementRecord{}, err
		}
		*op.dst = nanos
	}
	return rec, nil
}

func (e *Engine) begin(s step) error {
	if e.next != s {
		return fmt.Errorf("%w: %s requested, %s expected", ErrOutOfOrder, s, e.next)
	}
	return nil
}

// index resolves the configured position against the container as it is now.
func (e *Engine) index() (int, error) {
	return e.cfg.Position.Index(e.seq.Len())
}

func (e *Engine) logTiming(op string, nanos int64, attrs ...slog.Attr) {
	attrs = append(attrs,
		slog.String("variant", e.cfg.Variant.String()),
		slog.Int64("nanos", nanos),
		slog.Float64("millis", NanosToMillis(nanos)),
	)
	e.logger.LogAttrs(context.Background(), slog.LevelDebug, op, attrs...)
}
