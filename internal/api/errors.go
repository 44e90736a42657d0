package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/enhance-api/internal/api/shared"
	"github.com/phrazzld/enhance-api/internal/domain"
	"github.com/phrazzld/enhance-api/internal/task"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes so that
// internal error types never reach clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Specific validation errors first; they all wrap ErrValidation
	case errors.Is(err, domain.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType

	case errors.Is(err, domain.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge

	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest

	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrAlreadyProcessing):
		return http.StatusConflict

	case errors.Is(err, task.ErrQueueFull),
		errors.Is(err, task.ErrRunnerStopped):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-friendly message for err that does not
// leak internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, domain.ErrMissingFile):
		return "No file uploaded"

	case errors.Is(err, domain.ErrUnsupportedMediaType):
		return "Only PNG and JPEG images are allowed"

	case errors.Is(err, domain.ErrInvalidImage):
		return "Uploaded file is not a valid image"

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"

	case errors.Is(err, domain.ErrValidation):
		return "Validation failed"

	case errors.Is(err, domain.ErrJobNotFound),
		errors.Is(err, domain.ErrArtifactNotFound):
		return "File not found"

	case errors.Is(err, domain.ErrAlreadyProcessing):
		return "Image is already being processed"

	case errors.Is(err, task.ErrQueueFull):
		return "Enhancement queue is full, try again later"

	case errors.Is(err, task.ErrRunnerStopped):
		return "Service is shutting down"

	default:
		return "An unexpected error occurred"
	}
}

// PayloadTooLargeMessage is the client message for an upload above maxBytes.
func PayloadTooLargeMessage(maxBytes int64) string {
	const mib = 1 << 20
	if maxBytes%mib == 0 {
		return fmt.Sprintf("File too large. Maximum size is %dMB.", maxBytes/mib)
	}
	return fmt.Sprintf("File too large. Maximum size is %d bytes.", maxBytes)
}

// HandleAPIError writes the response for err. Known errors get their mapped
// status and safe message; anything else becomes a 500 carrying defaultMsg.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)

	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && defaultMsg != "" {
		message = defaultMsg
	}

	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// SanitizeValidationError turns a validator error into a message that names
// the field and the failed rule but nothing else.
func SanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		first := validationErrs[0]
		return fmt.Sprintf("Invalid %s: %s", strings.ToLower(first.Field()), getValidationTagMessage(first.Tag()))
	}
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
