package task

import (
	"context"
	"errors"
	"testing"

	"github.com/phrazzld/enhance-api/internal/domain"
	"github.com/phrazzld/enhance-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEnhancer struct {
	err       error
	gotInput  string
	gotOutput string
}

func (s *stubEnhancer) Enhance(_ context.Context, inputPath, outputPath string) error {
	s.gotInput = inputPath
	s.gotOutput = outputPath
	return s.err
}

func TestNewEnhancementTask_Validation(t *testing.T) {
	log, _ := logger.GetTestLogger(t)
	enhancer := &stubEnhancer{}
	id := domain.NewJobID()

	tests := []struct {
		name     string
		jobID    domain.JobID
		input    string
		output   string
		enhancer ImageEnhancer
		wantErr  error
	}{
		{"nil enhancer", id, "in.png", "out.png", nil, ErrNilEnhancer},
		{"nil job id", domain.NilJobID, "in.png", "out.png", enhancer, ErrEmptyJobID},
		{"empty input", id, "", "out.png", enhancer, ErrEmptyPath},
		{"empty output", id, "in.png", "", enhancer, ErrEmptyPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := NewEnhancementTask(tt.jobID, tt.input, tt.output, tt.enhancer, log)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, task)
		})
	}
}

func TestEnhancementTask_Execute(t *testing.T) {
	log, logBuf := logger.GetTestLogger(t)
	id := domain.NewJobID()

	t.Run("passes paths to enhancer", func(t *testing.T) {
		enhancer := &stubEnhancer{}
		factory := NewEnhancementTaskFactory(enhancer, log)

		task, err := factory.CreateTask(id, "/data/in.png", "/data/out.png")
		require.NoError(t, err)
		assert.Equal(t, TaskTypeEnhancement, task.Type())
		assert.NotEqual(t, task.ID().String(), id.String(), "Task IDs are distinct from job IDs")

		require.NoError(t, task.Execute(context.Background()))
		assert.Equal(t, "/data/in.png", enhancer.gotInput)
		assert.Equal(t, "/data/out.png", enhancer.gotOutput)
		logger.AssertLogContains(t, logBuf, "enhancement succeeded")
	})

	t.Run("returns enhancer error", func(t *testing.T) {
		boom := errors.New("tool crashed")
		task, err := NewEnhancementTask(id, "in.png", "out.png", &stubEnhancer{err: boom}, log)
		require.NoError(t, err)
		assert.Equal(t, id, task.JobID())

		assert.ErrorIs(t, task.Execute(context.Background()), boom)
	})

	t.Run("runs through the task runner", func(t *testing.T) {
		enhancer := &stubEnhancer{}
		runner := NewTaskRunner(DefaultTaskRunnerConfig(), log)
		require.NoError(t, runner.Start())
		defer runner.Stop()

		task, err := NewEnhancementTask(id, "in.png", "out.png", enhancer, log)
		require.NoError(t, err)

		h, err := runner.Submit(context.Background(), task, nil)
		require.NoError(t, err)
		assert.NoError(t, waitFor(t, h))
		assert.Equal(t, "in.png", enhancer.gotInput)
	})
}
