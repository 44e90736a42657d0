package task

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// TaskStatus represents where a submitted task is
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task type constants
const (
	// TaskTypeEnhancement upscales one original image into its enhanced artifact
	TaskTypeEnhancement = "image_enhancement"
)

// Errors returned when a task cannot be accepted
var (
	ErrQueueFull     = errors.New("task queue is full")
	ErrRunnerStopped = errors.New("task runner is stopped")
)

// Task represents a unit of background work to be processed
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Execute runs the task logic. ctx is canceled when the runner stops.
	Execute(ctx context.Context) error
}
