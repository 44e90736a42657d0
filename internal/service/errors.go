package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/enhance-api/internal/domain"
	"github.com/phrazzld/enhance-api/internal/task"
)

// OperationError wraps unexpected errors from an orchestrator operation with context.
type OperationError struct {
	// Operation is the operation that failed (e.g., "ingest", "start_enhancement")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for OperationError.
func (e *OperationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *OperationError) Unwrap() error {
	return e.Err
}

// IsClientError reports whether err is meant for the client rather than the logs.
func IsClientError(err error) bool {
	return domain.IsValidationError(err) ||
		domain.IsNotFoundError(err) ||
		errors.Is(err, domain.ErrAlreadyProcessing) ||
		errors.Is(err, task.ErrQueueFull) ||
		errors.Is(err, task.ErrRunnerStopped)
}

// NewOperationError wraps err with operation context. Client errors are
// returned as they are so callers can branch on them.
func NewOperationError(operation, message string, err error) error {
	if err == nil {
		return nil
	}
	if IsClientError(err) {
		return err
	}

	return &OperationError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
