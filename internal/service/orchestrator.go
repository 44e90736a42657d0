package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/phrazzld/enhance-api/internal/domain"
	"github.com/phrazzld/enhance-api/internal/platform/logger"
	"github.com/phrazzld/enhance-api/internal/redact"
	"github.com/phrazzld/enhance-api/internal/registry"
	"github.com/phrazzld/enhance-api/internal/task"
)

// ArtifactStore persists and serves the files bound to a job.
type ArtifactStore interface {
	Validate(data []byte, declaredType string) (string, error)
	Put(
		ctx context.Context,
		id domain.JobID,
		role domain.ArtifactRole,
		originalName string,
		data []byte,
		declaredType string,
	) (domain.ArtifactRecord, error)
	Locate(ctx context.Context, id domain.JobID, role domain.ArtifactRole) (domain.ArtifactRecord, error)
	Open(ctx context.Context, id domain.JobID, role domain.ArtifactRole) (*os.File, domain.ArtifactRecord, error)
	Remove(ctx context.Context, id domain.JobID, role domain.ArtifactRole) error
	Purge(ctx context.Context, id domain.JobID) (int, error)
	EnhancedPath(id domain.JobID) string
}

// MetadataExtractor reports dimensions and format of an uploaded image.
type MetadataExtractor interface {
	Extract(data []byte) (domain.ImageMetadata, error)
}

// TaskRunner accepts background work.
type TaskRunner interface {
	Submit(ctx context.Context, t task.Task, onDone func(error)) (*task.Handle, error)
}

// TaskFactory builds the enhancement task for one job.
type TaskFactory interface {
	CreateTask(jobID domain.JobID, inputPath, outputPath string) (task.Task, error)
}

// UploadInput is an upload as received from a client.
type UploadInput struct {
	Name      string
	MediaType string
	Data      []byte
}

// IngestResult describes a freshly ingested upload.
type IngestResult struct {
	ID           domain.JobID
	OriginalName string
	StoredName   string
	Size         int64
	Metadata     domain.ImageMetadata
	UploadPath   string
}

// CleanupResult reports what a cleanup removed.
type CleanupResult struct {
	ID      domain.JobID
	Removed int
}

// Orchestrator sequences the artifact store, the job registry and the task
// runner. All methods are safe for concurrent use.
type Orchestrator struct {
	store     ArtifactStore
	registry  registry.Registry
	extractor MetadataExtractor
	runner    TaskRunner
	factory   TaskFactory
	logger    *slog.Logger

	// lastSeen holds the latest status written or read per job, answered
	// when the registry cannot be read
	lastSeen sync.Map
}

// NewOrchestrator creates an Orchestrator. Every collaborator is required.
func NewOrchestrator(
	store ArtifactStore,
	reg registry.Registry,
	extractor MetadataExtractor,
	runner TaskRunner,
	factory TaskFactory,
	logger *slog.Logger,
) (*Orchestrator, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if reg == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if extractor == nil {
		return nil, fmt.Errorf("extractor cannot be nil")
	}
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	if factory == nil {
		return nil, fmt.Errorf("factory cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Orchestrator{
		store:     store,
		registry:  reg,
		extractor: extractor,
		runner:    runner,
		factory:   factory,
		logger:    logger.With("component", "orchestrator"),
	}, nil
}

// OriginalPath is the retrieval path advertised for an ingested upload.
func OriginalPath(id domain.JobID) string {
	return "/api/image/" + id.String() + "/original"
}

// Ingest validates an upload, stores it as the original artifact of a new
// job and registers the job as pending.
func (o *Orchestrator) Ingest(ctx context.Context, in UploadInput) (*IngestResult, error) {
	log := logger.FromContextOrDefault(ctx, o.logger)

	if len(in.Data) == 0 {
		return nil, domain.ErrMissingFile
	}

	if _, err := o.store.Validate(in.Data, in.MediaType); err != nil {
		log.Debug("upload rejected", "name", in.Name, "size", len(in.Data), "error", err)
		return nil, err
	}

	meta, err := o.extractor.Extract(in.Data)
	if err != nil {
		log.Debug("upload is not a decodable image", "name", in.Name, "error", err)
		return nil, err
	}

	id := domain.NewJobID()
	record, err := o.store.Put(ctx, id, domain.RoleOriginal, in.Name, in.Data, in.MediaType)
	if err != nil {
		return nil, NewOperationError("ingest", "failed to store original", err)
	}

	if err := o.registry.Create(ctx, id); err != nil {
		if _, purgeErr := o.store.Purge(context.WithoutCancel(ctx), id); purgeErr != nil {
			log.Warn("failed to purge original after registry error",
				"job_id", id,
				"error", redact.Error(purgeErr))
		}
		return nil, NewOperationError("ingest", "failed to register job", err)
	}
	o.lastSeen.Store(id, domain.StatusPending)

	log.Info("image ingested",
		"job_id", id,
		"size", record.Size,
		"format", meta.Format,
		"width", meta.Width,
		"height", meta.Height)

	return &IngestResult{
		ID:           id,
		OriginalName: in.Name,
		StoredName:   record.Name,
		Size:         record.Size,
		Metadata:     meta,
		UploadPath:   OriginalPath(id),
	}, nil
}

// StartEnhancement claims the job for processing and submits the enhancement
// to the task runner. It returns as soon as the task is queued; the outcome is
// recorded in the registry when the task finishes.
//
// Returns domain.ErrArtifactNotFound when no original exists,
// domain.ErrAlreadyProcessing when another start holds the job, and
// task.ErrQueueFull or task.ErrRunnerStopped when the runner refuses the work.
// In the last case the job is left failed.
func (o *Orchestrator) StartEnhancement(ctx context.Context, id domain.JobID) (*task.Handle, error) {
	log := logger.FromContextOrDefault(ctx, o.logger).With("job_id", id)

	original, err := o.store.Locate(ctx, id, domain.RoleOriginal)
	if err != nil {
		return nil, NewOperationError("start_enhancement", "failed to locate original", err)
	}

	if err := o.registry.TrySetProcessing(ctx, id); err != nil {
		return nil, NewOperationError("start_enhancement", "failed to claim job", err)
	}
	o.lastSeen.Store(id, domain.StatusProcessing)

	// A rerun must never serve the previous run's output
	if err := o.store.Remove(ctx, id, domain.RoleEnhanced); err != nil {
		log.Warn("failed to remove stale enhanced output", "error", redact.Error(err))
	}

	t, err := o.factory.CreateTask(id, original.Path, o.store.EnhancedPath(id))
	if err != nil {
		o.markFailed(id, log)
		return nil, NewOperationError("start_enhancement", "failed to create task", err)
	}

	handle, err := o.runner.Submit(ctx, t, func(runErr error) {
		o.complete(id, runErr)
	})
	if err != nil {
		o.markFailed(id, log)
		log.Warn("enhancement not accepted", "error", err)
		return nil, NewOperationError("start_enhancement", "failed to submit task", err)
	}

	log.Info("enhancement started", "task_id", handle.TaskID())
	return handle, nil
}

// markFailed records a start that never reached the runner.
func (o *Orchestrator) markFailed(id domain.JobID, log *slog.Logger) {
	o.lastSeen.Store(id, domain.StatusFailed)
	ok, err := o.registry.SetTerminal(context.Background(), id, domain.StatusFailed)
	if err != nil {
		log.Error("failed to mark job failed", "error", redact.Error(err))
		return
	}
	if !ok {
		o.lastSeen.Delete(id)
	}
}

// complete runs on a worker goroutine once the enhancement finishes.
func (o *Orchestrator) complete(id domain.JobID, runErr error) {
	ctx := context.Background()
	log := o.logger.With("job_id", id)

	status := domain.StatusCompleted
	if runErr != nil {
		status = domain.StatusFailed

		// Must precede SetTerminal: a restart accepted after it writes to the same path
		if err := o.store.Remove(ctx, id, domain.RoleEnhanced); err != nil {
			log.Warn("failed to remove partial enhanced output", "error", redact.Error(err))
		}
	}

	// Recorded before SetTerminal so a restart's processing is always stored last
	o.lastSeen.Store(id, status)

	ok, err := o.registry.SetTerminal(ctx, id, status)
	if err != nil {
		log.Error("failed to record enhancement outcome",
			"status", status,
			"error", redact.Error(err))
		return
	}

	if !ok {
		o.lastSeen.Delete(id)

		// Cleaned up while running; drop whatever the run left behind
		removed, err := o.store.Purge(ctx, id)
		if err != nil {
			log.Warn("failed to purge output of cleaned up job", "error", redact.Error(err))
		}
		log.Info("enhancement finished after cleanup", "status", status, "removed", removed)
		return
	}

	if runErr != nil {
		log.Error("enhancement failed", "error", redact.Error(runErr))
		return
	}

	log.Info("enhancement completed")
}

// Status reports the job status. Unknown identities are domain.StatusNotFound.
// It does not fail: when the registry cannot be read, the last status this
// process saw for the job is reported, or domain.StatusNotFound if there is none.
func (o *Orchestrator) Status(ctx context.Context, id domain.JobID) (domain.JobStatus, error) {
	status, err := o.registry.Status(ctx, id)
	if err != nil {
		fallback := domain.StatusNotFound
		if seen, ok := o.lastSeen.Load(id); ok {
			fallback = seen.(domain.JobStatus)
		}
		logger.FromContextOrDefault(ctx, o.logger).Warn("job status read failed, reporting last known status",
			"job_id", id,
			"status", fallback,
			"error", redact.Error(err))
		return fallback, nil
	}

	if status == domain.StatusNotFound {
		o.lastSeen.Delete(id)
	} else {
		o.lastSeen.Store(id, status)
	}
	return status, nil
}

// OpenOriginal opens the uploaded artifact. The caller closes the file.
func (o *Orchestrator) OpenOriginal(ctx context.Context, id domain.JobID) (*os.File, domain.ArtifactRecord, error) {
	f, record, err := o.store.Open(ctx, id, domain.RoleOriginal)
	if err != nil {
		return nil, domain.ArtifactRecord{}, NewOperationError("open_original", "failed to open original", err)
	}
	return f, record, nil
}

// OpenEnhanced opens the enhanced artifact of a completed job. Jobs in any
// other state answer domain.ErrArtifactNotFound, even if a file is present.
func (o *Orchestrator) OpenEnhanced(ctx context.Context, id domain.JobID) (*os.File, domain.ArtifactRecord, error) {
	status, err := o.registry.Status(ctx, id)
	if err != nil {
		return nil, domain.ArtifactRecord{}, NewOperationError("open_enhanced", "failed to read job status", err)
	}
	if status != domain.StatusCompleted {
		return nil, domain.ArtifactRecord{}, domain.ErrArtifactNotFound
	}

	f, record, err := o.store.Open(ctx, id, domain.RoleEnhanced)
	if err != nil {
		return nil, domain.ArtifactRecord{}, NewOperationError("open_enhanced", "failed to open enhanced output", err)
	}
	return f, record, nil
}

// Cleanup forgets the job and deletes its files. It always succeeds for the
// caller: registry and filesystem failures are logged and the count reflects
// what was actually removed. A client that disconnects mid-request does not
// stop the cleanup.
func (o *Orchestrator) Cleanup(ctx context.Context, id domain.JobID) (*CleanupResult, error) {
	log := logger.FromContextOrDefault(ctx, o.logger).With("job_id", id)
	ctx = context.WithoutCancel(ctx)

	// Registry first, so a finishing run sees the job gone and purges its own output
	if err := o.registry.Remove(ctx, id); err != nil {
		log.Warn("failed to remove job from registry", "error", redact.Error(err))
	}
	o.lastSeen.Delete(id)

	removed, err := o.store.Purge(ctx, id)
	if err != nil {
		log.Warn("failed to purge artifacts", "removed", removed, "error", redact.Error(err))
	}

	if removed > 0 {
		log.Info("job cleaned up", "removed", removed)
	}

	return &CleanupResult{ID: id, Removed: removed}, nil
}
