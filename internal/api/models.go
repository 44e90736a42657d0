package api

import "github.com/phrazzld/enhance-api/internal/domain"

// uploadForm holds the parts of an upload that are checked before the bytes are read.
type uploadForm struct {
	Name      string `validate:"required,max=255"`
	MediaType string `validate:"required"`
}

// Dimensions are the pixel dimensions of an uploaded image.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// UploadResponse is returned after a successful upload.
type UploadResponse struct {
	FileID       domain.JobID `json:"fileId"`
	OriginalName string       `json:"originalName"`
	Size         int64        `json:"size"`
	Format       string       `json:"format"`
	Dimensions   Dimensions   `json:"dimensions"`
	UploadPath   string       `json:"uploadPath"`
}

// EnhanceResponse is returned when an enhancement has been accepted.
type EnhanceResponse struct {
	Message string           `json:"message"`
	FileID  domain.JobID     `json:"fileId"`
	Status  domain.JobStatus `json:"status"`
}

// StatusResponse reports the status of a job. FileID echoes the requested
// value so malformed identities round-trip as given.
type StatusResponse struct {
	FileID string           `json:"fileId"`
	Status domain.JobStatus `json:"status"`
}

// CleanupResponse is returned by the cleanup endpoint.
type CleanupResponse struct {
	Message string `json:"message"`
	Removed int    `json:"removed"`
}
