package domain

// ArtifactRole distinguishes the uploaded file from the derived one.
type ArtifactRole string

// Artifact roles. At most one artifact of each role exists per JobID.
const (
	RoleOriginal ArtifactRole = "original"
	RoleEnhanced ArtifactRole = "enhanced"
)

// Supported media types.
const (
	MediaTypePNG  = "image/png"
	MediaTypeJPEG = "image/jpeg"
)

// ArtifactRecord describes one stored file bound to a JobID and role.
type ArtifactRecord struct {
	ID        JobID        `json:"id"`
	Role      ArtifactRole `json:"role"`
	Name      string       `json:"name"`
	Size      int64        `json:"size"`
	Path      string       `json:"-"`
	MediaType string       `json:"media_type"`
}

// ImageMetadata is what the metadata collaborator reports for an upload.
type ImageMetadata struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
	Size   int64  `json:"size"`
}
