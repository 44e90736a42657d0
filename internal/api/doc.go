// Package api handles incoming HTTP requests: multipart upload parsing,
// routing of the image lifecycle endpoints, and response formatting. It is an
// adapter between clients and the orchestrator in internal/service, mapping
// domain errors to status codes and safe messages.
package api
