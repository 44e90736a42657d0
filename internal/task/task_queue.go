package task

import (
	"fmt"
	"log/slog"
	"sync"
)

// submission pairs a task with its completion plumbing.
type submission struct {
	task   Task
	onDone func(error)
	handle *Handle
}

// TaskQueue is a bounded, closable queue of submissions.
type TaskQueue struct {
	mu     sync.Mutex
	tasks  chan *submission
	closed bool
	logger *slog.Logger
}

// NewTaskQueue creates a new task queue with the specified buffer size
func NewTaskQueue(size int, logger *slog.Logger) *TaskQueue {
	if size < 1 {
		size = 1
	}
	return &TaskQueue{
		tasks:  make(chan *submission, size),
		logger: logger,
	}
}

// enqueue adds a submission without blocking.
// Returns ErrRunnerStopped once the queue is closed and ErrQueueFull when at capacity.
func (q *TaskQueue) enqueue(sub *submission) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrRunnerStopped
	}

	select {
	case q.tasks <- sub:
		q.logger.Debug("task enqueued",
			"task_id", sub.task.ID(),
			"task_type", sub.task.Type(),
			"queue_len", len(q.tasks),
			"queue_cap", cap(q.tasks))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.tasks))
	}
}

// channel returns the receive side for workers.
func (q *TaskQueue) channel() <-chan *submission {
	return q.tasks
}

// Close stops further submissions. Queued submissions stay readable.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.tasks)
		q.logger.Info("task queue closed")
	}
}

// Len returns the number of queued submissions.
func (q *TaskQueue) Len() int {
	return len(q.tasks)
}

// Cap returns the queue capacity.
func (q *TaskQueue) Cap() int {
	return cap(q.tasks)
}
