package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/phrazzld/enhance-api/internal/domain"
)

// DefaultMaxBytes is the upload ceiling used when none is configured.
const DefaultMaxBytes int64 = 10 * 1024 * 1024

// allowedMediaTypes is the upload allow-list.
var allowedMediaTypes = map[string]struct{}{
	domain.MediaTypePNG:  {},
	domain.MediaTypeJPEG: {},
}

// FileStore keeps artifacts as flat files in one directory.
type FileStore struct {
	dir      string
	maxBytes int64
	logger   *slog.Logger
}

// NewFileStore creates the storage directory if needed and returns a store rooted at it.
// A non-positive maxBytes falls back to DefaultMaxBytes.
func NewFileStore(dir string, maxBytes int64, logger *slog.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("artifact directory cannot be empty")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	return &FileStore{
		dir:      dir,
		maxBytes: maxBytes,
		logger:   logger.With("component", "artifact_store"),
	}, nil
}

// Dir returns the storage directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// MaxBytes returns the upload ceiling.
func (s *FileStore) MaxBytes() int64 {
	return s.maxBytes
}

// Path returns where an artifact for id and role is, or would be, stored.
func (s *FileStore) Path(id domain.JobID, role domain.ArtifactRole, originalName, mediaType string) string {
	return filepath.Join(s.dir, FileName(id, role, originalName, mediaType))
}

// EnhancedPath returns the output path handed to the enhancement tooling.
func (s *FileStore) EnhancedPath(id domain.JobID) string {
	return s.Path(id, domain.RoleEnhanced, "", domain.MediaTypePNG)
}

// NormalizeMediaType strips parameters and case from a declared media type.
func NormalizeMediaType(declared string) string {
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(declared))
	}
	return mediaType
}

// Validate checks a payload against the allow-list and the size ceiling
// without touching the filesystem. The content must sniff as the declared type.
func (s *FileStore) Validate(data []byte, declaredType string) (string, error) {
	mediaType := NormalizeMediaType(declaredType)
	if _, ok := allowedMediaTypes[mediaType]; !ok {
		return "", fmt.Errorf("%w: %q is not accepted, only PNG and JPEG files are allowed",
			domain.ErrUnsupportedMediaType, declaredType)
	}

	if int64(len(data)) > s.maxBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds the %d byte limit",
			domain.ErrPayloadTooLarge, len(data), s.maxBytes)
	}

	if detected := mimetype.Detect(data); !detected.Is(mediaType) {
		return "", fmt.Errorf("%w: content is %s but was declared as %s",
			domain.ErrUnsupportedMediaType, detected.String(), mediaType)
	}

	return mediaType, nil
}

// Put validates data and writes it under the name derived from id and role.
// The write goes through a temporary file so readers never see a partial artifact.
func (s *FileStore) Put(
	ctx context.Context,
	id domain.JobID,
	role domain.ArtifactRole,
	originalName string,
	data []byte,
	declaredType string,
) (domain.ArtifactRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.ArtifactRecord{}, err
	}

	mediaType, err := s.Validate(data, declaredType)
	if err != nil {
		return domain.ArtifactRecord{}, err
	}

	name := FileName(id, role, originalName, mediaType)
	path := filepath.Join(s.dir, name)

	if err := writeFileAtomic(s.dir, path, data); err != nil {
		return domain.ArtifactRecord{}, fmt.Errorf("failed to store %s artifact: %w", role, err)
	}

	s.logger.Debug("artifact stored",
		"job_id", id,
		"role", role,
		"name", name,
		"size", len(data))

	return domain.ArtifactRecord{
		ID:        id,
		Role:      role,
		Name:      name,
		Size:      int64(len(data)),
		Path:      path,
		MediaType: mediaType,
	}, nil
}

// Locate finds the artifact stored for id and role.
// The original is found by scanning for the identity prefix and skipping the
// enhanced name; the enhanced output has a fixed name and is looked up directly.
// Returns domain.ErrArtifactNotFound when nothing matches.
func (s *FileStore) Locate(ctx context.Context, id domain.JobID, role domain.ArtifactRole) (domain.ArtifactRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.ArtifactRecord{}, err
	}

	switch role {
	case domain.RoleEnhanced:
		return s.describe(id, role, FileName(id, role, "", ""))
	case domain.RoleOriginal:
		// handled below
	default:
		return domain.ArtifactRecord{}, fmt.Errorf("%w: unknown artifact role %q", domain.ErrValidation, role)
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.ArtifactRecord{}, domain.ErrArtifactNotFound
		}
		return domain.ArtifactRecord{}, fmt.Errorf("failed to scan artifact directory: %w", err)
	}

	own := prefix(id)
	enhanced := FileName(id, domain.RoleEnhanced, "", "")
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, own) || name == enhanced {
			continue
		}
		return s.describe(id, role, name)
	}

	return domain.ArtifactRecord{}, domain.ErrArtifactNotFound
}

// describe stats a stored file and builds its record.
func (s *FileStore) describe(id domain.JobID, role domain.ArtifactRole, name string) (domain.ArtifactRecord, error) {
	path := filepath.Join(s.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.ArtifactRecord{}, domain.ErrArtifactNotFound
		}
		return domain.ArtifactRecord{}, fmt.Errorf("failed to stat artifact: %w", err)
	}

	mediaType := mediaTypeForName(name)
	if mediaType == "" {
		if detected, err := mimetype.DetectFile(path); err == nil {
			mediaType = detected.String()
		}
	}

	return domain.ArtifactRecord{
		ID:        id,
		Role:      role,
		Name:      name,
		Size:      info.Size(),
		Path:      path,
		MediaType: mediaType,
	}, nil
}

// Open locates an artifact and opens it for streaming. The caller closes the file.
func (s *FileStore) Open(ctx context.Context, id domain.JobID, role domain.ArtifactRole) (*os.File, domain.ArtifactRecord, error) {
	record, err := s.Locate(ctx, id, role)
	if err != nil {
		return nil, domain.ArtifactRecord{}, err
	}

	f, err := os.Open(record.Path)
	if err != nil {
		// Purged between the scan and the open
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ArtifactRecord{}, domain.ErrArtifactNotFound
		}
		return nil, domain.ArtifactRecord{}, fmt.Errorf("failed to open artifact: %w", err)
	}

	return f, record, nil
}

// Remove deletes the artifact of one role. Removing a missing artifact succeeds.
func (s *FileStore) Remove(ctx context.Context, id domain.JobID, role domain.ArtifactRole) error {
	record, err := s.Locate(ctx, id, role)
	if err != nil {
		if errors.Is(err, domain.ErrArtifactNotFound) {
			return nil
		}
		return err
	}

	if err := os.Remove(record.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s artifact: %w", role, err)
	}
	return nil
}

// Purge deletes every file prefixed by id, whatever its role, and reports how
// many were removed. Purging an identity with no files succeeds with zero.
// Files that could not be removed are reported in the joined error; the count
// still reflects what was removed.
func (s *FileStore) Purge(ctx context.Context, id domain.JobID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to scan artifact directory: %w", err)
	}

	own := prefix(id)
	removed := 0
	var errs []error
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, own) {
			continue
		}

		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", name, err))
			continue
		}
		removed++
	}

	s.logger.Debug("artifacts purged", "job_id", id, "removed", removed, "failed", len(errs))

	return removed, errors.Join(errs...)
}

// writeFileAtomic writes data to a hidden temporary file in dir and renames it into place.
func writeFileAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
