package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/enhance-api/internal/domain"
)

// fileIDParam is the route parameter carrying the job identity.
const fileIDParam = "fileId"

// getPathJobID extracts the job identity from the URL path. A missing or
// malformed identity is reported as not ok; handlers treat it as an identity
// that was never issued.
func getPathJobID(r *http.Request) (domain.JobID, string, bool) {
	raw := chi.URLParam(r, fileIDParam)
	id, err := domain.ParseJobID(raw)
	if err != nil {
		return domain.NilJobID, raw, false
	}
	return id, raw, true
}
