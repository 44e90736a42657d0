// Package testutils provides helpers shared by tests across the codebase.
//
// This package contains helpers for:
//   - Creating image fixtures (PNG, JPEG) of a given size
//   - Building multipart upload requests
//   - Starting test servers and asserting JSON error responses
//
// Helper functions follow these naming conventions:
//   - Create*: build fixtures in memory
//   - New*Request: build an *http.Request ready for a handler
//   - Assert*: verify conditions and fail the test otherwise
package testutils
