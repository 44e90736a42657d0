package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/enhance-api/internal/api/shared"
	"github.com/phrazzld/enhance-api/internal/domain"
	"github.com/phrazzld/enhance-api/internal/platform/logger"
	"github.com/phrazzld/enhance-api/internal/service"
	"github.com/phrazzld/enhance-api/internal/task"
)

// UploadField is the multipart field that carries the image.
const UploadField = "image"

// multipartOverhead is the body allowance on top of the image size for
// boundaries, part headers and any other form fields.
const multipartOverhead = 1 << 20

// ImageService is the set of lifecycle operations the handlers drive.
type ImageService interface {
	Ingest(ctx context.Context, in service.UploadInput) (*service.IngestResult, error)
	StartEnhancement(ctx context.Context, id domain.JobID) (*task.Handle, error)
	Status(ctx context.Context, id domain.JobID) (domain.JobStatus, error)
	OpenOriginal(ctx context.Context, id domain.JobID) (*os.File, domain.ArtifactRecord, error)
	OpenEnhanced(ctx context.Context, id domain.JobID) (*os.File, domain.ArtifactRecord, error)
	Cleanup(ctx context.Context, id domain.JobID) (*service.CleanupResult, error)
}

// ImageHandler handles upload, enhancement, retrieval and cleanup requests.
type ImageHandler struct {
	service  ImageService
	maxBytes int64
	logger   *slog.Logger
}

// NewImageHandler creates a new ImageHandler. maxBytes is the upload ceiling.
func NewImageHandler(svc ImageService, maxBytes int64, logger *slog.Logger) *ImageHandler {
	if svc == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("service cannot be nil for ImageHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ImageHandler")
	}

	return &ImageHandler{
		service:  svc,
		maxBytes: maxBytes,
		logger:   logger.With(slog.String("component", "image_handler")),
	}
}

// Upload handles POST /api/upload requests
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)

	reader, err := r.MultipartReader()
	if err != nil {
		log.Debug("upload is not a multipart request", slog.String("error", err.Error()))
		HandleAPIError(w, r, domain.ErrMissingFile, "")
		return
	}

	part, err := nextImagePart(reader)
	if err != nil {
		h.respondReadError(w, r, err)
		return
	}
	defer func() { _ = part.Close() }()

	form := uploadForm{
		Name:      part.FileName(),
		MediaType: part.Header.Get("Content-Type"),
	}
	if err := shared.ValidateRequest(form); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	data, err := io.ReadAll(io.LimitReader(part, h.maxBytes+1))
	if err != nil {
		h.respondReadError(w, r, err)
		return
	}
	if int64(len(data)) > h.maxBytes {
		h.respondReadError(w, r, domain.ErrPayloadTooLarge)
		return
	}

	result, err := h.service.Ingest(r.Context(), service.UploadInput{
		Name:      form.Name,
		MediaType: form.MediaType,
		Data:      data,
	})
	if err != nil {
		if errors.Is(err, domain.ErrPayloadTooLarge) {
			shared.RespondWithErrorAndLog(w, r, http.StatusRequestEntityTooLarge,
				PayloadTooLargeMessage(h.maxBytes), err)
			return
		}
		HandleAPIError(w, r, err, "Failed to process upload")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, UploadResponse{
		FileID:       result.ID,
		OriginalName: result.OriginalName,
		Size:         result.Size,
		Format:       result.Metadata.Format,
		Dimensions: Dimensions{
			Width:  result.Metadata.Width,
			Height: result.Metadata.Height,
		},
		UploadPath: result.UploadPath,
	})
}

// nextImagePart advances reader to the image file part.
// Returns domain.ErrMissingFile when the form has none.
func nextImagePart(reader *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, domain.ErrMissingFile
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() == UploadField && part.FileName() != "" {
			return part, nil
		}
		_ = part.Close()
	}
}

// respondReadError answers a failure while reading the multipart body.
func (h *ImageHandler) respondReadError(w http.ResponseWriter, r *http.Request, err error) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr), errors.Is(err, domain.ErrPayloadTooLarge):
		shared.RespondWithErrorAndLog(w, r, http.StatusRequestEntityTooLarge,
			PayloadTooLargeMessage(h.maxBytes), err)
	case errors.Is(err, domain.ErrValidation):
		HandleAPIError(w, r, err, "")
	default:
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Malformed upload", err)
	}
}

// Enhance handles POST /api/enhance/{fileId} requests
func (h *ImageHandler) Enhance(w http.ResponseWriter, r *http.Request) {
	id, _, ok := getPathJobID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusNotFound, "Original file not found")
		return
	}

	if _, err := h.service.StartEnhancement(r.Context(), id); err != nil {
		if domain.IsNotFoundError(err) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Original file not found")
			return
		}
		HandleAPIError(w, r, err, "Failed to start enhancement")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, EnhanceResponse{
		Message: "Enhancement started",
		FileID:  id,
		Status:  domain.StatusProcessing,
	})
}

// Status handles GET /api/status/{fileId} requests. It always answers 200;
// unknown identities report not_found.
func (h *ImageHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, raw, ok := getPathJobID(r)
	if !ok {
		shared.RespondWithJSON(w, r, http.StatusOK, StatusResponse{FileID: raw, Status: domain.StatusNotFound})
		return
	}

	status, err := h.service.Status(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to read status")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, StatusResponse{FileID: id.String(), Status: status})
}

// Original handles GET /api/image/{fileId}/original requests
func (h *ImageHandler) Original(w http.ResponseWriter, r *http.Request) {
	id, _, ok := getPathJobID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusNotFound, "File not found")
		return
	}

	f, record, err := h.service.OpenOriginal(r.Context(), id)
	if err != nil {
		h.respondOpenError(w, r, err, "File not found")
		return
	}
	h.serveArtifact(w, r, f, record, "")
}

// Enhanced handles GET /api/image/{fileId}/enhanced requests
func (h *ImageHandler) Enhanced(w http.ResponseWriter, r *http.Request) {
	id, _, ok := getPathJobID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusNotFound, "Enhanced image not found")
		return
	}

	f, record, err := h.service.OpenEnhanced(r.Context(), id)
	if err != nil {
		h.respondOpenError(w, r, err, "Enhanced image not found")
		return
	}
	h.serveArtifact(w, r, f, record, "")
}

// DownloadName is the attachment filename offered for an enhanced image.
func DownloadName(id domain.JobID) string {
	return "enhanced_document_" + id.String() + ".png"
}

// Download handles GET /api/download/{fileId} requests
func (h *ImageHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, _, ok := getPathJobID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusNotFound, "Enhanced image not available for download")
		return
	}

	f, record, err := h.service.OpenEnhanced(r.Context(), id)
	if err != nil {
		h.respondOpenError(w, r, err, "Enhanced image not available for download")
		return
	}
	h.serveArtifact(w, r, f, record, DownloadName(id))
}

func (h *ImageHandler) respondOpenError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	if domain.IsNotFoundError(err) {
		shared.RespondWithError(w, r, http.StatusNotFound, notFoundMsg)
		return
	}
	HandleAPIError(w, r, err, "Failed to read image")
}

// serveArtifact streams f and closes it. A non-empty attachment name turns the
// response into a download.
func (h *ImageHandler) serveArtifact(
	w http.ResponseWriter,
	r *http.Request,
	f *os.File,
	record domain.ArtifactRecord,
	attachment string,
) {
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		HandleAPIError(w, r, err, "Failed to read image")
		return
	}

	if record.MediaType != "" {
		w.Header().Set("Content-Type", record.MediaType)
	}
	if attachment != "" {
		w.Header().Set("Content-Disposition",
			mime.FormatMediaType("attachment", map[string]string{"filename": attachment}))
	}

	http.ServeContent(w, r, record.Name, info.ModTime(), f)
}

// Cleanup handles DELETE /api/cleanup/{fileId} requests. It succeeds for any
// identity, known or not.
func (h *ImageHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	response := CleanupResponse{Message: "Files cleaned up successfully"}

	id, _, ok := getPathJobID(r)
	if !ok {
		shared.RespondWithJSON(w, r, http.StatusOK, response)
		return
	}

	result, err := h.service.Cleanup(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to clean up files")
		return
	}

	response.Removed = result.Removed
	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// Mount registers the image routes on r.
func (h *ImageHandler) Mount(r chi.Router) {
	r.Post("/upload", h.Upload)
	r.Post("/enhance/{"+fileIDParam+"}", h.Enhance)
	r.Get("/status/{"+fileIDParam+"}", h.Status)
	r.Get("/image/{"+fileIDParam+"}/original", h.Original)
	r.Get("/image/{"+fileIDParam+"}/enhanced", h.Enhanced)
	r.Get("/download/{"+fileIDParam+"}", h.Download)
	r.Delete("/cleanup/{"+fileIDParam+"}", h.Cleanup)
}
