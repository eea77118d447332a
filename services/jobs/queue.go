package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"legal_marketplace_go/services"
	"legal_marketplace_go/services/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrQueueFull   = errors.New("processing queue is full")
	ErrQueueClosed = errors.New("processing queue is closed")
)

// Handler processes one job. Errors are logged by the dispatcher.
type Handler func(ctx context.Context, job services.ProcessingJob) error

// Dispatcher runs processing jobs on a fixed pool of workers fed by a bounded
// buffer. Enqueue never blocks: a full buffer is reported to the caller.
type Dispatcher struct {
	handler Handler
	workers int
	queue   chan services.ProcessingJob

	mu      sync.RWMutex
	closed  bool
	started bool
	group   *errgroup.Group
	cancel  context.CancelFunc
}

// NewDispatcher creates a dispatcher with the given worker count and buffer size
func NewDispatcher(workers, size int, handler Handler) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if size < 1 {
		size = 1
	}
	return &Dispatcher{
		handler: handler,
		workers: workers,
		queue:   make(chan services.ProcessingJob, size),
	}
}

// Start launches the workers. Jobs run with a context derived from ctx that is
// only cancelled when Shutdown gives up waiting.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true

	ctx, d.cancel = context.WithCancel(ctx)
	d.group = &errgroup.Group{}
	for i := 0; i < d.workers; i++ {
		worker := i
		d.group.Go(func() error {
			d.work(ctx, worker)
			return nil
		})
	}
	zap.L().Info("processing workers started", zap.Int("workers", d.workers), zap.Int("buffer", cap(d.queue)))
}

// Enqueue hands a job to the workers
func (d *Dispatcher) Enqueue(job services.ProcessingJob) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}

	select {
	case d.queue <- job:
		metrics.QueueDepth.Inc()
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting jobs and waits for queued and running jobs to finish.
// If ctx expires first, running jobs are cancelled and ctx's error is returned.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	group, cancel := d.group, d.cancel
	d.mu.Unlock()

	if group == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		_ = group.Wait()
		close(done)
	}()

	select {
	case <-done:
		cancel()
		zap.L().Info("processing workers stopped")
		return nil
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

func (d *Dispatcher) work(ctx context.Context, worker int) {
	for job := range d.queue {
		metrics.QueueDepth.Dec()
		d.run(ctx, worker, job)
	}
}

func (d *Dispatcher) run(ctx context.Context, worker int, job services.ProcessingJob) {
	log := zap.L().With(zap.Int("worker", worker), zap.String("case_id", job.CaseID), zap.String("flow", job.Flow))

	defer func() {
		if r := recover(); r != nil {
			log.Error("processing job panicked", zap.String("panic", fmt.Sprint(r)), zap.Stack("stack"))
		}
	}()

	if err := d.handler(ctx, job); err != nil {
		log.Warn("processing job failed", zap.Error(err))
	}
}
