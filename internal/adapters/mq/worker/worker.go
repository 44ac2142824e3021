// Package worker runs refresh jobs: fetch a work's events and store the snapshot.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/calmark/internal/adapters/mq/queue"
	"github.com/okian/calmark/internal/adapters/repository"
	"github.com/okian/calmark/internal/domain/model"
	"github.com/okian/calmark/pkg/logger"
	"github.com/okian/calmark/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultJobTimeout   = 30 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Fetcher loads the current event list of a work.
type Fetcher interface {
	Fetch(ctx context.Context, workID string) ([]model.Event, error)
}

// Storer replaces a work's snapshot.
type Storer interface {
	Put(ctx context.Context, workID string, events []model.Event) (repository.Snapshot, error)
}

// Releaser forgets a pending refresh so the work can be requested again.
type Releaser interface {
	Unrecord(ctx context.Context, id string)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// DoneFunc observes every finished job. err is nil on success.
type DoneFunc func(ctx context.Context, job queue.Job, snap repository.Snapshot, err error)

// Worker processes refresh jobs.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	fetcher  Fetcher
	store    Storer
	releaser Releaser
	onDone   DoneFunc
	timeout  time.Duration
	name     string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, fetcher Fetcher, store Storer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		fetcher:  fetcher,
		store:    store,
		timeout:  defaultJobTimeout,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "refresh failed",
					logger.String("work", job.WorkID),
					logger.String("reason", job.Reason),
					logger.Error(err))
			}
		}
	}
}

// Shutdown implements Worker.Shutdown.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process fetches and stores one work. The pending marker is released on
// every outcome so a failed refresh can be retried right away.
func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) (err error) {
	start := time.Now()
	var snap repository.Snapshot
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
		if w.releaser != nil {
			w.releaser.Unrecord(ctx, job.WorkID)
		}
		if w.onDone != nil {
			w.onDone(ctx, job, snap, err)
		}
	}()

	jctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	events, err := w.fetcher.Fetch(jctx, job.WorkID)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "fetch_error")
		metrics.RecordErrorByType("fetch_error", "medium")
		return fmt.Errorf("fetch %s: %w", job.WorkID, err)
	}

	snap, err = w.store.Put(jctx, job.WorkID, events)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "store_error")
		metrics.RecordErrorByType("store_error", "high")
		return fmt.Errorf("store %s: %w", job.WorkID, err)
	}

	w.logger.Debug(ctx, "work refreshed",
		logger.String("work", job.WorkID),
		logger.String("reason", job.Reason),
		logger.Int("events", len(snap.Events)),
		logger.Any("version", snap.Version),
		logger.Duration("queued", start.Sub(job.RequestedAt)))
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers. Options are applied to
// every worker; each gets its own name.
func NewPool(workerCount int, q Queue, fetcher Fetcher, store Storer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	probe := &InMemoryWorker{logger: logger.Nop()}
	for _, opt := range opts {
		opt(probe)
	}
	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  probe.logger.Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append(append([]Option{}, opts...), WithName("worker-"+strconv.Itoa(i)))
		pool.workers[i] = NewInMemoryWorker(q, fetcher, store, wopts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue, then waits for every worker to drain.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("pool shutdown: %w", shutdownCtx.Err())
		}
	}
	metrics.UpdateWorkerCount(0)
	return nil
}
