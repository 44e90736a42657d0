package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobID is the opaque identity minted for an uploaded artifact. It is the join
// key between stored artifacts and registry entries.
type JobID uuid.UUID

// NilJobID is the zero identity.
var NilJobID = JobID(uuid.Nil)

// NewJobID mints a fresh random identity.
func NewJobID() JobID {
	return JobID(uuid.New())
}

// ParseJobID parses the canonical string form of a JobID.
// Returns ErrInvalidID for anything that is not a well-formed, non-nil UUID.
func ParseJobID(s string) (JobID, error) {
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return NilJobID, ErrInvalidID
	}
	return JobID(id), nil
}

// String returns the canonical lowercase hyphenated form. Stored artifact names
// are prefixed with it.
func (id JobID) String() string {
	return uuid.UUID(id).String()
}

// MarshalText implements encoding.TextMarshaler so identities render as
// strings in JSON bodies and structured logs.
func (id JobID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *JobID) UnmarshalText(data []byte) error {
	parsed, err := ParseJobID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// JobStatus represents where a job is in its lifecycle.
type JobStatus string

// Possible job status values. StatusNotFound is what the registry answers for
// an identity without an entry; it is never stored.
const (
	StatusNotFound   JobStatus = "not_found"
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether the status is an outcome of an enhancement run.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsValid reports whether the status may be stored in a registry.
func (s JobStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// JobState is the registry entry for one identity.
type JobState struct {
	ID        JobID     `json:"id"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
