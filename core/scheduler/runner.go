// Package scheduler provides background task execution for research
// workflows. Submitting a task yields an opaque handle; exactly one worker
// runs each submitted task to completion or failure.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// ErrQueueFull is returned when the task queue cannot accept more work.
var ErrQueueFull = errors.New("task queue is full")

// Task is a unit of background work
type Task func(ctx context.Context)

type queuedTask struct {
	id string
	fn Task
}

// Runner executes submitted tasks on a bounded worker pool
type Runner struct {
	tasks    chan queuedTask
	workers  int
	logger   *slog.Logger
	wg       sync.WaitGroup
	stopOnce sync.Once
	stop     chan struct{}
}

// NewRunner creates a runner with the given worker count and queue capacity
func NewRunner(workers, queueSize int, logger *slog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		tasks:   make(chan queuedTask, queueSize),
		workers: workers,
		logger:  logger,
		stop:    make(chan struct{}),
	}
}

// Start launches the worker pool
func (r *Runner) Start(ctx context.Context) {
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker(ctx, i)
	}
}

// Stop signals the workers and waits for in-flight tasks to finish. Queued
// tasks that no worker picked up yet are abandoned.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	r.wg.Wait()
}

// Submit enqueues a task and returns its execution handle
func (r *Runner) Submit(fn Task) (string, error) {
	task := queuedTask{id: uuid.New().String(), fn: fn}
	select {
	case r.tasks <- task:
		return task.id, nil
	default:
		return "", ErrQueueFull
	}
}

func (r *Runner) worker(ctx context.Context, n int) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case task := <-r.tasks:
			r.logger.Debug("worker picked up task", "worker", n, "task_id", task.id)
			task.fn(ctx)
		}
	}
}
