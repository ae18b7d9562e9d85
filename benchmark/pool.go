package benchmark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"seqbench/metrics"
)

var (
	ErrPoolSaturated = errors.New("benchmark queue is full")
	ErrPoolClosed    = errors.New("benchmark pool is shut down")
	ErrRateLimited   = errors.New("benchmark submission rate exceeded")
	ErrUnknownRun    = errors.New("unknown run id")
	ErrTaskPanicked  = errors.New("benchmark task panicked")
)

// PoolConfig holds the parameters of the worker pool.
type PoolConfig struct {
	Workers    int           // Number of concurrent runs
	QueueSize  int           // Runs that may wait for a worker before Submit rejects
	RateLimit  float64       // Accepted submissions per second (0 means no limit)
	Burst      int           // Rate limiter burst
	RunTimeout time.Duration // Optional upper bound for a single run
	History    int           // Finished handles kept for status lookups
}

// DefaultPoolConfig returns the settings used when none are configured.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Workers:   4,
		QueueSize: 64,
		Burst:     1,
		History:   1024,
	}
}

// Task is one unit of pool work. It must return promptly once ctx is done.
type Task func(ctx context.Context) error

// Status is the lifecycle state of a submitted run.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Handle tracks a submitted task. Callers are free to drop it.
type Handle struct {
	ID          string
	SubmittedAt time.Time

	mu     sync.Mutex
	status Status
	err    error
	done   chan struct{}
}

func newHandle(id string) *Handle {
	return &Handle{
		ID:          id,
		SubmittedAt: time.Now(),
		status:      StatusQueued,
		done:        make(chan struct{}),
	}
}

// Done is closed when the task has finished, whatever the outcome.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the task error once Done is closed.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

func (h *Handle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

func (h *Handle) setStatus(s Status) {
	h.mu.Lock()
	h.status = s
	h.mu.Unlock()
}

func (h *Handle) finish(err error) {
	h.mu.Lock()
	h.err = err
	switch {
	case err == nil:
		h.status = StatusDone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.status = StatusCancelled
	default:
		h.status = StatusFailed
	}
	h.mu.Unlock()
	close(h.done)
}

type job struct {
	handle *Handle
	task   Task
}

// Pool runs tasks on a fixed set of workers fed by a bounded queue.
// Submissions never block: a full queue is reported to the caller.
type Pool struct {
	cfg     PoolConfig
	queue   chan job
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	closed   bool
	handles  map[string]*Handle
	finished []string
}

// NewPool starts cfg.Workers workers.
func NewPool(cfg PoolConfig, logger *slog.Logger, m *metrics.Metrics) *Pool {
	def := DefaultPoolConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.History <= 0 {
		cfg.History = def.History
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		cfg:     cfg,
		queue:   make(chan job, cfg.QueueSize),
		logger:  logger,
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
		handles: make(map[string]*Handle),
	}
	if cfg.RateLimit > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst)
	}

	p.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.worker()
	}
	return p
}

// Submit queues task under id. It returns ErrPoolClosed, ErrRateLimited or
// ErrPoolSaturated instead of blocking.
func (p *Pool) Submit(id string, task Task) (*Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}
	// Tokens are only spent on accepted tasks. Every consumer holds p.mu,
	// so the balance cannot drop between this check and the Allow below.
	if p.limiter != nil && p.limiter.Tokens() < 1 {
		return nil, ErrRateLimited
	}

	h := newHandle(id)
	p.handles[id] = h
	p.metrics.QueueDepth.Inc()
	select {
	case p.queue <- job{handle: h, task: task}:
		if p.limiter != nil {
			p.limiter.Allow()
		}
		return h, nil
	default:
		delete(p.handles, id)
		p.metrics.QueueDepth.Dec()
		return nil, ErrPoolSaturated
	}
}

// Lookup returns the handle of a queued, running or recently finished task.
func (p *Pool) Lookup(id string) (*Handle, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	h, ok := p.handles[id]
	if !ok {
		return nil, ErrUnknownRun
	}
	return h, nil
}

// Shutdown stops accepting tasks and waits for queued and running tasks to
// finish. When ctx expires first, running tasks are cancelled and Shutdown
// still waits for the workers before returning ctx.Err().
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.queue {
		p.metrics.QueueDepth.Dec()
		p.run(j)
	}
}

func (p *Pool) run(j job) {
	ctx := p.ctx
	if p.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.RunTimeout)
		defer cancel()
	}

	j.handle.setStatus(StatusRunning)
	p.metrics.ActiveRuns.Inc()
	err := p.call(ctx, j)
	p.metrics.ActiveRuns.Dec()
	j.handle.finish(err)

	if err != nil {
		p.logger.Debug("task finished with error",
			slog.String("run_id", j.handle.ID),
			slog.String("error", err.Error()),
		)
	}
	p.retire(j.handle.ID)
}

// call runs the task and turns a panic into an error so the worker and
// the rest of the process survive it.
func (p *Pool) call(ctx context.Context, j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
			p.metrics.RunsFinished.WithLabelValues(metrics.StatusFailed).Inc()
			p.logger.Error("benchmark task panicked",
				slog.String("run_id", j.handle.ID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	return j.task(ctx)
}

// retire keeps the most recent cfg.History finished handles for lookups.
func (p *Pool) retire(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finished = append(p.finished, id)
	for len(p.finished) > p.cfg.History {
		delete(p.handles, p.finished[0])
		p.finished = p.finished[1:]
	}
}
