package task

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Handle is the caller's view of a submitted task.
type Handle struct {
	taskID uuid.UUID
	done   chan struct{}

	mu     sync.Mutex
	status TaskStatus
	err    error
}

func newHandle(taskID uuid.UUID) *Handle {
	return &Handle{
		taskID: taskID,
		done:   make(chan struct{}),
		status: TaskStatusPending,
	}
}

// TaskID returns the ID of the task this handle tracks.
func (h *Handle) TaskID() uuid.UUID {
	return h.taskID
}

// Done is closed once the task has finished and its callback has run.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Status returns the current status of the task.
func (h *Handle) Status() TaskStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Err returns the task's error. It is nil until Done is closed.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Wait blocks until the task finishes or ctx is done.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handle) setProcessing() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = TaskStatusProcessing
}

func (h *Handle) resolve(err error) {
	h.mu.Lock()
	h.err = err
	if err != nil {
		h.status = TaskStatusFailed
	} else {
		h.status = TaskStatusCompleted
	}
	h.mu.Unlock()
	close(h.done)
}
