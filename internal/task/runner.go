package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/phrazzld/enhance-api/internal/platform/logger"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many tasks run concurrently
	WorkerCount int

	// QueueSize is how many accepted tasks may wait for a worker
	QueueSize int
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount: 2,
		QueueSize:   100,
	}
}

// TaskRunner manages background task processing
type TaskRunner struct {
	queue  *TaskQueue
	pool   *WorkerPool
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewTaskRunner creates a new TaskRunner. Tasks may be submitted before
// Start; they wait in the queue.
func NewTaskRunner(config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "task_runner")

	r := &TaskRunner{
		queue:  NewTaskQueue(config.QueueSize, logger),
		logger: logger,
	}
	r.pool = NewWorkerPool(r.queue, config.WorkerCount, r.processTask, logger)
	return r
}

// Start begins processing queued tasks.
func (r *TaskRunner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return ErrRunnerStopped
	}
	if r.started {
		return errors.New("task runner already started")
	}
	r.started = true
	r.pool.Start()
	r.logger.Info("task runner started", "queue_capacity", r.queue.Cap())
	return nil
}

// Stop refuses new tasks, cancels running ones, and waits for workers to
// exit. Tasks still queued are finished with ErrRunnerStopped so their
// callbacks run. Safe to call more than once.
func (r *TaskRunner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	r.queue.Close()
	r.pool.Stop()

	drained := 0
	for sub := range r.queue.channel() {
		r.finish(sub, ErrRunnerStopped)
		drained++
	}
	if drained > 0 {
		r.logger.Warn("abandoned queued tasks on shutdown", "count", drained)
	}
}

// Submit queues task without blocking. onDone, when non-nil, receives the
// task's result on the worker goroutine before the returned Handle resolves.
// Returns ErrQueueFull or ErrRunnerStopped when the task is not accepted;
// onDone is not called in that case.
func (r *TaskRunner) Submit(ctx context.Context, task Task, onDone func(error)) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sub := &submission{
		task:   task,
		onDone: onDone,
		handle: newHandle(task.ID()),
	}

	if err := r.queue.enqueue(sub); err != nil {
		logger.FromContextOrDefault(ctx, r.logger).Warn("task rejected",
			"task_id", task.ID(),
			"task_type", task.Type(),
			"error", err)
		return nil, err
	}

	return sub.handle, nil
}

// QueueLen returns the number of tasks waiting for a worker.
func (r *TaskRunner) QueueLen() int {
	return r.queue.Len()
}

// processTask handles execution of a single task
func (r *TaskRunner) processTask(ctx context.Context, sub *submission, workerID int) {
	log := r.logger.With(
		"task_id", sub.task.ID(),
		"task_type", sub.task.Type(),
		"worker_id", workerID,
	)

	if ctx.Err() != nil {
		r.finish(sub, ErrRunnerStopped)
		return
	}

	sub.handle.setProcessing()
	log.Info("processing task")
	start := time.Now()

	err := r.execute(logger.WithLogger(ctx, log), sub.task)

	if err != nil {
		log.Error("task execution failed",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
	} else {
		log.Info("task completed successfully",
			"duration_ms", time.Since(start).Milliseconds())
	}

	r.finish(sub, err)
}

// execute runs the task, turning a panic into an error.
func (r *TaskRunner) execute(ctx context.Context, task Task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("task panicked",
				"task_id", task.ID(),
				"panic", rec,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("task panicked: %v", rec)
		}
	}()
	return task.Execute(ctx)
}

// finish runs the completion callback and then resolves the handle.
func (r *TaskRunner) finish(sub *submission, err error) {
	if sub.onDone != nil {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Error("task completion callback panicked",
						"task_id", sub.task.ID(),
						"panic", rec)
				}
			}()
			sub.onDone(err)
		}()
	}
	sub.handle.resolve(err)
}
