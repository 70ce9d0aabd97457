package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/radiotx/internal/shared"
	"golang.org/x/sync/errgroup"
)

const busyMessage = "Server busy, try again later"

// Job is one unit of background work. It owns its task record for its lifetime.
type Job func(ctx context.Context) error

type queuedJob struct {
	taskID string
	job    Job
}

// Dispatcher runs jobs on a fixed pool of workers fed by a bounded queue.
type Dispatcher struct {
	registry *Registry
	queue    chan queuedJob
	group    errgroup.Group
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *log.Logger

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts workers goroutines. Jobs run with a context derived from ctx that
// [Dispatcher.Shutdown] cancels.
func NewDispatcher(ctx context.Context, registry *Registry, workers, queueSize int, logger *log.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	ctx, cancel := context.WithCancel(ctx)
	d := &Dispatcher{
		registry: registry,
		queue:    make(chan queuedJob, queueSize),
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger.With("component", "dispatcher"),
	}

	for i := range workers {
		d.group.Go(func() error {
			d.work(i)
			return nil
		})
	}
	d.logger.Debug("started workers", "workers", workers, "queue_size", queueSize)
	return d
}

// Submit registers taskID and queues job without blocking.
//
// When the queue is full the task is marked failed and [shared.ErrQueueFull] is returned.
func (d *Dispatcher) Submit(taskID string, job Job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return shared.ErrPoolShutdown
	}

	d.registry.Create(taskID)
	select {
	case d.queue <- queuedJob{taskID: taskID, job: job}:
		return nil
	default:
		d.registry.Update(taskID, errorUpdate(busyMessage).Patch)
		d.logger.Warn("queue full, rejected task", "task_id", taskID)
		return shared.ErrQueueFull
	}
}

func (d *Dispatcher) work(worker int) {
	for q := range d.queue {
		d.run(worker, q)
	}
}

func (d *Dispatcher) run(worker int, q queuedJob) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("task panicked", "task_id", q.taskID, "worker", worker, "panic", r)
			d.registry.Update(q.taskID, errorUpdate(fmt.Sprintf("Internal error: %v", r)).Patch)
		}
	}()

	if err := q.job(d.ctx); err != nil {
		d.logger.Warn("task finished with error", "task_id", q.taskID, "worker", worker, "error", err)
		return
	}
	d.logger.Debug("task finished", "task_id", q.taskID, "worker", worker)
}

// Shutdown stops accepting jobs, cancels running ones and waits for the workers until ctx is done.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	d.cancel()

	done := make(chan struct{})
	go func() {
		_ = d.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", shared.ErrTimeout, ctx.Err())
	}
}
