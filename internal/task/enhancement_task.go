package task

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/enhance-api/internal/domain"
	"github.com/phrazzld/enhance-api/internal/platform/logger"
)

// Common errors
var (
	ErrNilEnhancer = errors.New("enhancer cannot be nil")
	ErrEmptyJobID  = errors.New("job ID cannot be empty")
	ErrEmptyPath   = errors.New("artifact path cannot be empty")
)

// ImageEnhancer upscales the image at inputPath into outputPath.
type ImageEnhancer interface {
	Enhance(ctx context.Context, inputPath, outputPath string) error
}

// EnhancementTask implements the Task interface for one enhancement run.
type EnhancementTask struct {
	id         uuid.UUID
	jobID      domain.JobID
	inputPath  string
	outputPath string
	enhancer   ImageEnhancer
	logger     *slog.Logger
}

// NewEnhancementTask creates a task that enhances inputPath into outputPath for jobID.
func NewEnhancementTask(
	jobID domain.JobID,
	inputPath, outputPath string,
	enhancer ImageEnhancer,
	logger *slog.Logger,
) (*EnhancementTask, error) {
	if enhancer == nil {
		return nil, ErrNilEnhancer
	}
	if jobID == domain.NilJobID {
		return nil, ErrEmptyJobID
	}
	if inputPath == "" || outputPath == "" {
		return nil, ErrEmptyPath
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &EnhancementTask{
		id:         uuid.New(),
		jobID:      jobID,
		inputPath:  inputPath,
		outputPath: outputPath,
		enhancer:   enhancer,
		logger:     logger,
	}, nil
}

// ID returns the task's unique identifier
func (t *EnhancementTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *EnhancementTask) Type() string {
	return TaskTypeEnhancement
}

// JobID returns the job this task enhances
func (t *EnhancementTask) JobID() domain.JobID {
	return t.jobID
}

// Execute runs the enhancer. The registry is not touched here; the caller's
// completion callback records the outcome.
func (t *EnhancementTask) Execute(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, t.logger).With("job_id", t.jobID)
	ctx = logger.WithLogger(ctx, log)

	log.Info("starting enhancement")
	if err := t.enhancer.Enhance(ctx, t.inputPath, t.outputPath); err != nil {
		log.Warn("enhancement failed", "error", err)
		return err
	}
	log.Info("enhancement succeeded")
	return nil
}

// EnhancementTaskFactory creates EnhancementTask instances
type EnhancementTaskFactory struct {
	enhancer ImageEnhancer
	logger   *slog.Logger
}

// NewEnhancementTaskFactory creates a new factory for EnhancementTasks
func NewEnhancementTaskFactory(enhancer ImageEnhancer, logger *slog.Logger) *EnhancementTaskFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &EnhancementTaskFactory{
		enhancer: enhancer,
		logger:   logger.With("component", "enhancement_task_factory"),
	}
}

// CreateTask creates a new EnhancementTask for the given job and paths
func (f *EnhancementTaskFactory) CreateTask(jobID domain.JobID, inputPath, outputPath string) (Task, error) {
	task, err := NewEnhancementTask(jobID, inputPath, outputPath, f.enhancer, f.logger)
	if err != nil {
		return nil, err
	}
	return task, nil
}
