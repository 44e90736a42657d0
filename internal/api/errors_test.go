package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/enhance-api/internal/api/shared"
	"github.com/phrazzld/enhance-api/internal/domain"
	"github.com/phrazzld/enhance-api/internal/service"
	"github.com/phrazzld/enhance-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"nil error", nil, http.StatusInternalServerError},
		{"missing file", domain.ErrMissingFile, http.StatusBadRequest},
		{"unsupported media type", domain.ErrUnsupportedMediaType, http.StatusUnsupportedMediaType},
		{"wrapped unsupported media type", fmt.Errorf("sniffed text/plain: %w", domain.ErrUnsupportedMediaType), http.StatusUnsupportedMediaType},
		{"payload too large", domain.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge},
		{"invalid image", domain.ErrInvalidImage, http.StatusBadRequest},
		{"invalid id", domain.ErrInvalidID, http.StatusBadRequest},
		{"job not found", domain.ErrJobNotFound, http.StatusNotFound},
		{"artifact not found", domain.ErrArtifactNotFound, http.StatusNotFound},
		{"already processing", domain.ErrAlreadyProcessing, http.StatusConflict},
		{"queue full", fmt.Errorf("%w (capacity 100)", task.ErrQueueFull), http.StatusServiceUnavailable},
		{"runner stopped", task.ErrRunnerStopped, http.StatusServiceUnavailable},
		{"external failure", domain.ErrEnhancementFailed, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expectedStatus, MapErrorToStatusCode(tc.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil error", nil, "An unexpected error occurred"},
		{"missing file", domain.ErrMissingFile, "No file uploaded"},
		{"unsupported media type", domain.ErrUnsupportedMediaType, "Only PNG and JPEG images are allowed"},
		{"invalid image", domain.ErrInvalidImage, "Uploaded file is not a valid image"},
		{"generic validation", domain.ErrValidation, "Validation failed"},
		{"not found", domain.ErrArtifactNotFound, "File not found"},
		{"conflict", domain.ErrAlreadyProcessing, "Image is already being processed"},
		{"queue full", task.ErrQueueFull, "Enhancement queue is full, try again later"},
		{"unknown", errors.New("/var/data/secret path leaked"), "An unexpected error occurred"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, GetSafeErrorMessage(tc.err))
		})
	}
}

func TestPayloadTooLargeMessage(t *testing.T) {
	assert.Equal(t, "File too large. Maximum size is 10MB.", PayloadTooLargeMessage(10<<20))
	assert.Equal(t, "File too large. Maximum size is 1500 bytes.", PayloadTooLargeMessage(1500))
}

func TestHandleAPIError(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		defaultMsg      string
		expectedStatus  int
		expectedMessage string
	}{
		{
			name:            "known error ignores default",
			err:             domain.ErrAlreadyProcessing,
			defaultMsg:      "Custom default message",
			expectedStatus:  http.StatusConflict,
			expectedMessage: "Image is already being processed",
		},
		{
			name:            "unexpected error uses default",
			err:             &service.OperationError{Operation: "status", Message: "read", Err: errors.New("connection refused")},
			defaultMsg:      "Friendly server error message",
			expectedStatus:  http.StatusInternalServerError,
			expectedMessage: "Friendly server error message",
		},
		{
			name:            "unexpected error without default",
			err:             errors.New("connection refused"),
			expectedStatus:  http.StatusInternalServerError,
			expectedMessage: "An unexpected error occurred",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req = req.WithContext(shared.WithTraceID(req.Context(), "trace-123"))

			HandleAPIError(rr, req, tc.err, tc.defaultMsg)

			assert.Equal(t, tc.expectedStatus, rr.Code)

			var response shared.ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
			assert.Equal(t, tc.expectedMessage, response.Error)
			assert.Equal(t, "trace-123", response.TraceID)
			assert.NotContains(t, rr.Body.String(), "connection refused", "internal details must not leak")
		})
	}
}

func TestSanitizeValidationError(t *testing.T) {
	err := shared.ValidateRequest(uploadForm{Name: "", MediaType: "image/png"})
	require.Error(t, err)
	assert.Equal(t, "Invalid name: required field", SanitizeValidationError(err))

	long := make([]byte, 256)
	for i := range long {
		long[i] = 'a'
	}
	err = shared.ValidateRequest(uploadForm{Name: string(long), MediaType: "image/png"})
	require.Error(t, err)
	assert.Equal(t, "Invalid name: too long", SanitizeValidationError(err))

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("other")))
}
