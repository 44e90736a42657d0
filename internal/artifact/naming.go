package artifact

import (
	"path/filepath"
	"strings"

	"github.com/phrazzld/enhance-api/internal/domain"
)

const (
	// enhancedMarker separates the enhanced output from any original name.
	enhancedMarker = "enhanced"

	// enhancedExt is the extension the enhancement tooling writes.
	enhancedExt = ".png"

	// maxNameLength caps the sanitized original filename.
	maxNameLength = 200

	// fallbackName is used when an upload carries no usable filename.
	fallbackName = "upload"
)

// extensions maps supported media types to the extension appended to
// extension-less uploads.
var extensions = map[string]string{
	domain.MediaTypePNG:  ".png",
	domain.MediaTypeJPEG: ".jpg",
}

// mediaTypesByExt is the reverse lookup used when describing stored files.
var mediaTypesByExt = map[string]string{
	".png":  domain.MediaTypePNG,
	".jpg":  domain.MediaTypeJPEG,
	".jpeg": domain.MediaTypeJPEG,
}

// prefix returns the filename prefix owned by id.
func prefix(id domain.JobID) string {
	return id.String() + "_"
}

// enhancedBase is the part of the enhanced name after the identity prefix.
func enhancedBase() string {
	return enhancedMarker + enhancedExt
}

// FileName returns the stored name for an artifact. The original keeps a
// sanitized form of the uploaded name; the enhanced output has a fixed name.
func FileName(id domain.JobID, role domain.ArtifactRole, originalName string, mediaType string) string {
	if role == domain.RoleEnhanced {
		return prefix(id) + enhancedBase()
	}
	return prefix(id) + SanitizeName(originalName, mediaType)
}

// SanitizeName reduces an uploaded filename to a safe base name. Directory
// components and unusual characters are dropped, hidden-file dots are
// trimmed, a missing extension is derived from mediaType, and a name that
// would collide with the enhanced output is renamed.
func SanitizeName(name string, mediaType string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	clean := strings.TrimLeft(b.String(), ".")
	if clean == "" || strings.Trim(clean, "_") == "" {
		clean = fallbackName
	}

	if filepath.Ext(clean) == "" {
		clean += extensions[mediaType]
	}

	if len(clean) > maxNameLength {
		ext := filepath.Ext(clean)
		if len(ext) > 10 {
			ext = ""
		}
		clean = clean[:maxNameLength-len(ext)] + ext
	}

	if strings.EqualFold(clean, enhancedBase()) {
		clean = "original-" + clean
	}

	return clean
}

// mediaTypeForName guesses the media type from a stored name's extension.
func mediaTypeForName(name string) string {
	return mediaTypesByExt[strings.ToLower(filepath.Ext(name))]
}
