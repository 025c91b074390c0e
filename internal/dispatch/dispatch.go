// Package dispatch runs background generation tasks on a bounded worker
// pool. Submissions enqueue without blocking; a full queue is surfaced to
// the caller instead of fanning out unbounded goroutines.
package dispatch

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrQueueFull is returned by Enqueue when the task buffer has no room.
var ErrQueueFull = errors.New("dispatch queue is full")

type Task func(ctx context.Context)

type Dispatcher struct {
	tasks   chan Task
	workers int
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(workers, queueSize int, logger *zap.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		tasks:   make(chan Task, queueSize),
		workers: workers,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.logger.Info("dispatcher started", zap.Int("workers", d.workers), zap.Int("queue_size", cap(d.tasks)))
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for task := range d.tasks {
		task(d.ctx)
	}
	d.logger.Debug("worker stopped", zap.Int("worker", id))
}

// Enqueue hands a task to the pool without blocking. Must not be called
// after Stop.
func (d *Dispatcher) Enqueue(task Task) error {
	select {
	case d.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop drains queued tasks, waits for in-flight ones, then cancels the
// context handed to tasks. Queued work finishes; nothing new is accepted.
func (d *Dispatcher) Stop() {
	close(d.tasks)
	d.wg.Wait()
	d.cancel()
}
