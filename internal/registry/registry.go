// Package registry tracks the processing status of every job identity.
//
// The Registry is the single arbiter of whether an enhancement may start:
// TrySetProcessing is an atomic check-and-set, so concurrent start requests
// for one identity yield exactly one acceptance. Different identities never
// block each other.
package registry

import (
	"context"

	"github.com/phrazzld/enhance-api/internal/domain"
)

// Registry defines the operations on job state entries.
// All methods are safe for concurrent use.
type Registry interface {
	// Create records id as pending, replacing any existing entry.
	Create(ctx context.Context, id domain.JobID) error

	// Get returns the full entry for id.
	// Returns domain.ErrJobNotFound if no entry exists.
	Get(ctx context.Context, id domain.JobID) (domain.JobState, error)

	// Status returns the status for id, or domain.StatusNotFound if no entry exists.
	Status(ctx context.Context, id domain.JobID) (domain.JobStatus, error)

	// TrySetProcessing atomically moves id to processing.
	// Returns domain.ErrAlreadyProcessing if the entry is already processing.
	// An absent entry is created directly in the processing state.
	TrySetProcessing(ctx context.Context, id domain.JobID) error

	// SetTerminal records the outcome of a run. status must be completed or failed.
	// Reports false without error when the entry no longer exists.
	SetTerminal(ctx context.Context, id domain.JobID, status domain.JobStatus) (bool, error)

	// Remove deletes the entry for id. Removing an absent entry succeeds.
	Remove(ctx context.Context, id domain.JobID) error
}
