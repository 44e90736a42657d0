// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Validation errors. These are reported to clients as 4xx responses and are
// never retried automatically.
var (
	// ErrValidation is returned when a domain entity or request fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when a job identity is malformed.
	ErrInvalidID = fmt.Errorf("%w: invalid ID", ErrValidation)

	// ErrMissingFile is returned when an upload carries no file part.
	ErrMissingFile = fmt.Errorf("%w: no file uploaded", ErrValidation)

	// ErrUnsupportedMediaType is returned when the declared or sniffed media
	// type is not on the allow-list.
	ErrUnsupportedMediaType = fmt.Errorf("%w: unsupported media type", ErrValidation)

	// ErrPayloadTooLarge is returned when an upload exceeds the size ceiling.
	ErrPayloadTooLarge = fmt.Errorf("%w: payload too large", ErrValidation)

	// ErrInvalidImage is returned when an upload cannot be decoded as an image.
	ErrInvalidImage = fmt.Errorf("%w: invalid image", ErrValidation)

	// ErrInvalidStatus is returned when a status is not valid for the requested transition.
	ErrInvalidStatus = fmt.Errorf("%w: invalid job status", ErrValidation)
)

// Lookup errors.
var (
	// ErrNotFound is the generic "not found" error.
	ErrNotFound = errors.New("not found")

	// ErrJobNotFound indicates the registry holds no entry for an identity.
	ErrJobNotFound = fmt.Errorf("%w: job", ErrNotFound)

	// ErrArtifactNotFound indicates no stored artifact matches an identity and role.
	ErrArtifactNotFound = fmt.Errorf("%w: artifact", ErrNotFound)
)

// ErrAlreadyProcessing is returned when an enhancement is requested for an
// identity whose job is already processing. Clients should poll, not retry.
var ErrAlreadyProcessing = errors.New("job is already processing")

// External operation errors. They end up as a failed job status and are only
// ever logged, never returned to the request that started the job.
var (
	// ErrExternalOperation is the parent of all enhancement tooling failures.
	ErrExternalOperation = errors.New("external operation failed")

	// ErrProvisioning is returned when the enhancement tooling is missing and
	// could not be installed.
	ErrProvisioning = fmt.Errorf("%w: provisioning", ErrExternalOperation)

	// ErrEnhancementFailed is returned when the enhancement process could not
	// start or exited non-zero.
	ErrEnhancementFailed = fmt.Errorf("%w: enhancement", ErrExternalOperation)

	// ErrEnhancementTimeout is returned when the enhancement process exceeds its deadline.
	ErrEnhancementTimeout = fmt.Errorf("%w: enhancement timed out", ErrExternalOperation)

	// ErrOutputMissing is returned when the process reported success but the
	// output artifact does not exist.
	ErrOutputMissing = fmt.Errorf("%w: output artifact missing", ErrExternalOperation)
)

// IsValidationError reports whether err is any kind of validation error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFoundError reports whether err is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
