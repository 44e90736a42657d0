// Package service contains the image enhancement use cases. The Orchestrator
// drives every job through its lifecycle: ingest an upload, start an
// enhancement in the background, report status, hand out artifacts, and
// clean up.
//
// Key components:
//
// 1. Orchestrator:
//   - Sequences the Artifact Store, the Registry, and the task runner
//   - Owns no persistent state; job state lives in the Registry and files
//     live in the Artifact Store
//
// 2. Collaborator interfaces:
//   - Declared here and satisfied by infrastructure packages
//   - Replaced by in-memory fakes in tests
//
// 3. Error Handling:
//   - Sentinel errors from internal/domain and internal/task pass through
//     unchanged so the API layer can map them to status codes
//   - Unexpected failures are wrapped in OperationError
//
// Enhancement failures are never returned to the request that started a
// job. They are recorded as a failed status and logged.
package service
