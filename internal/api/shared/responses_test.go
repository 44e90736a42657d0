package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/enhance-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRequest builds a request whose context carries a trace ID and a
// buffered logger.
func newRequest(t *testing.T, traceID string) (*http.Request, *logger.TestLogBuffer) {
	t.Helper()

	log, buf := logger.GetTestLogger(t)
	ctx := logger.WithLogger(context.Background(), log)
	if traceID != "" {
		ctx = WithTraceID(ctx, traceID)
	}
	return httptest.NewRequest(http.MethodGet, "/api/status/abc", nil).WithContext(ctx), buf
}

func TestRespondWithJSON(t *testing.T) {
	t.Run("encodes_body", func(t *testing.T) {
		req, _ := newRequest(t, "")
		rr := httptest.NewRecorder()

		RespondWithJSON(rr, req, http.StatusAccepted, MessageResponse{Message: "Enhancement started"})

		assert.Equal(t, http.StatusAccepted, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"message":"Enhancement started"}`, rr.Body.String())
	})

	t.Run("nil_body", func(t *testing.T) {
		req, _ := newRequest(t, "")
		rr := httptest.NewRecorder()

		RespondWithJSON(rr, req, http.StatusOK, nil)

		assert.Equal(t, "null\n", rr.Body.String())
	})

	t.Run("logs_encoding_failure", func(t *testing.T) {
		req, buf := newRequest(t, "")
		rr := httptest.NewRecorder()

		RespondWithJSON(rr, req, http.StatusOK, map[string]interface{}{"ch": make(chan int)})

		assert.Equal(t, http.StatusOK, rr.Code, "status is written before encoding")
		logger.AssertLogContains(t, buf, "failed to encode JSON response")
	})
}

func TestRespondWithError(t *testing.T) {
	tests := []struct {
		name    string
		traceID string
	}{
		{name: "with_trace_id", traceID: "trace-abc"},
		{name: "without_trace_id"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, buf := newRequest(t, tc.traceID)
			rr := httptest.NewRecorder()

			RespondWithError(rr, req, http.StatusNotFound, "File not found")

			assert.Equal(t, http.StatusNotFound, rr.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, "File not found", body["error"])
			assert.NotContains(t, body, "Code", "status code is not serialised")
			if tc.traceID == "" {
				assert.NotContains(t, body, "trace_id")
			} else {
				assert.Equal(t, tc.traceID, body["trace_id"])
			}

			logger.AssertLogEntry(t, buf, "sending error response", "level", "DEBUG")
		})
	}
}

func TestRespondWithErrorAndLog(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		elevate   bool
		wantLevel string
	}{
		{name: "internal_error", status: http.StatusInternalServerError, wantLevel: "ERROR"},
		{name: "queue_full", status: http.StatusServiceUnavailable, wantLevel: "WARN"},
		{name: "too_many_requests", status: http.StatusTooManyRequests, wantLevel: "WARN"},
		{name: "conflict", status: http.StatusConflict, wantLevel: "DEBUG"},
		{name: "conflict_elevated", status: http.StatusConflict, elevate: true, wantLevel: "WARN"},
		{name: "payload_too_large", status: http.StatusRequestEntityTooLarge, wantLevel: "DEBUG"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, buf := newRequest(t, "trace-xyz")
			rr := httptest.NewRecorder()

			var opts []ResponseOption
			if tc.elevate {
				opts = append(opts, WithElevatedLogLevel())
			}
			cause := fmt.Errorf("enhance job: %w", errors.New("disk full"))

			RespondWithErrorAndLog(rr, req, tc.status, "Something went wrong", cause, opts...)

			assert.Equal(t, tc.status, rr.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, "Something went wrong", body.Error)
			assert.Equal(t, "trace-xyz", body.TraceID)
			assert.NotContains(t, rr.Body.String(), "disk full", "internal errors stay out of the body")

			const msg = "API error response"
			logger.AssertLogEntry(t, buf, msg, "level", tc.wantLevel)
			logger.AssertLogEntry(t, buf, msg, "trace_id", "trace-xyz")
			logger.AssertLogEntry(t, buf, msg, "status_code", float64(tc.status))
			logger.AssertLogEntry(t, buf, msg, "error_type", "*fmt.wrapError")
		})
	}
}

func TestRespondWithErrorAndLog_NilError(t *testing.T) {
	req, buf := newRequest(t, "")
	rr := httptest.NewRecorder()

	RespondWithErrorAndLog(rr, req, http.StatusBadRequest, "No file uploaded", nil)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	entry := logger.FindLogEntry(t, buf, "API error response")
	require.NotNil(t, entry)
	assert.NotContains(t, entry, "error")
	assert.NotContains(t, entry, "error_type")
}
