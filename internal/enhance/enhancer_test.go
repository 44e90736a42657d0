package enhance

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/enhance-api/internal/config"
	"github.com/phrazzld/enhance-api/internal/domain"
	"github.com/phrazzld/enhance-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records invocations and answers through handler.
type fakeRunner struct {
	mu      sync.Mutex
	calls   [][]string
	handler func(ctx context.Context, name string, args []string) ([]byte, []byte, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()

	if f.handler == nil {
		return nil, nil, nil
	}
	return f.handler(ctx, name, args)
}

func (f *fakeRunner) count(match func(call []string) bool) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.calls {
		if match(call) {
			n++
		}
	}
	return n
}

func isImportCheck(call []string) bool {
	return len(call) == 3 && call[1] == "-c" && call[2] == "import realesrgan"
}

func isInstall(call []string) bool {
	return len(call) > 1 && call[0] == "pip3" && call[1] == "install"
}

func isScriptRun(call []string) bool {
	return len(call) > 1 && strings.HasSuffix(call[1], ".py")
}

func testEnhancerConfig() config.EnhancerConfig {
	return config.EnhancerConfig{
		PythonBin:     "python3",
		PipBin:        "pip3",
		AutoProvision: true,
		Packages:      []string{"realesrgan", "opencv-python", "pillow"},
		ModelURL:      "https://example.com/model.pth",
		Scale:         4,
		Timeout:       time.Minute,
	}
}

func TestProvisioner_Ensure(t *testing.T) {
	log, _ := logger.GetTestLogger(t)
	ctx := context.Background()
	packages := []string{"realesrgan", "opencv-python", "pillow"}

	t.Run("already installed checks once", func(t *testing.T) {
		runner := &fakeRunner{}
		p := NewProvisioner(runner, "python3", "pip3", packages, true, log)

		require.NoError(t, p.Ensure(ctx))
		require.NoError(t, p.Ensure(ctx))

		assert.Equal(t, 1, runner.count(isImportCheck))
		assert.Zero(t, runner.count(isInstall))
		assert.True(t, p.Ready())
	})

	t.Run("missing module is installed", func(t *testing.T) {
		installed := false
		runner := &fakeRunner{}
		runner.handler = func(_ context.Context, name string, args []string) ([]byte, []byte, error) {
			if name == "pip3" {
				assert.Equal(t, append([]string{"install"}, packages...), args)
				installed = true
				return nil, nil, nil
			}
			if !installed {
				return nil, []byte("ModuleNotFoundError"), errors.New("exit status 1")
			}
			return nil, nil, nil
		}
		p := NewProvisioner(runner, "python3", "pip3", packages, true, log)

		require.NoError(t, p.Ensure(ctx))
		require.NoError(t, p.Ensure(ctx))

		assert.Equal(t, 1, runner.count(isInstall), "Install should happen at most once after success")
		assert.Equal(t, 2, runner.count(isImportCheck))
	})

	t.Run("auto-provisioning disabled", func(t *testing.T) {
		runner := &fakeRunner{handler: func(context.Context, string, []string) ([]byte, []byte, error) {
			return nil, nil, errors.New("exit status 1")
		}}
		p := NewProvisioner(runner, "python3", "pip3", packages, false, log)

		err := p.Ensure(ctx)
		assert.ErrorIs(t, err, domain.ErrProvisioning)
		assert.ErrorIs(t, err, domain.ErrExternalOperation)
		assert.Zero(t, runner.count(isInstall))
	})

	t.Run("failed install is retried next time", func(t *testing.T) {
		runner := &fakeRunner{handler: func(context.Context, string, []string) ([]byte, []byte, error) {
			return nil, nil, errors.New("exit status 1")
		}}
		p := NewProvisioner(runner, "python3", "pip3", packages, true, log)

		assert.ErrorIs(t, p.Ensure(ctx), domain.ErrProvisioning)
		assert.ErrorIs(t, p.Ensure(ctx), domain.ErrProvisioning)

		assert.Equal(t, 2, runner.count(isInstall))
		assert.False(t, p.Ready())
	})

	t.Run("waiting caller gives up at its deadline", func(t *testing.T) {
		installing := make(chan struct{})
		release := make(chan struct{})
		runner := &fakeRunner{handler: func(ctx context.Context, name string, _ []string) ([]byte, []byte, error) {
			if name == "pip3" {
				close(installing)
				select {
				case <-release:
				case <-ctx.Done():
				}
				return nil, nil, errors.New("install interrupted")
			}
			return nil, nil, errors.New("exit status 1")
		}}
		p := NewProvisioner(runner, "python3", "pip3", packages, true, log)

		firstDone := make(chan error, 1)
		go func() { firstDone <- p.Ensure(ctx) }()
		<-installing

		waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		start := time.Now()
		err := p.Ensure(waitCtx)

		assert.ErrorIs(t, err, domain.ErrProvisioning)
		assert.Less(t, time.Since(start), time.Second, "Waiting for a stuck install should not outlive the deadline")

		close(release)
		assert.ErrorIs(t, <-firstDone, domain.ErrProvisioning)
		assert.Equal(t, 1, runner.count(isInstall))
	})

	t.Run("install succeeds but module still missing", func(t *testing.T) {
		runner := &fakeRunner{handler: func(_ context.Context, name string, _ []string) ([]byte, []byte, error) {
			if name == "pip3" {
				return nil, nil, nil
			}
			return nil, nil, errors.New("exit status 1")
		}}
		p := NewProvisioner(runner, "python3", "pip3", packages, true, log)

		err := p.Ensure(ctx)
		assert.ErrorIs(t, err, domain.ErrProvisioning)
		assert.Contains(t, err.Error(), "still not importable")
	})
}

func TestEnhancer_Enhance(t *testing.T) {
	log, logBuf := logger.GetTestLogger(t)
	ctx := context.Background()

	setup := func(t *testing.T) (input, output, scriptDir string) {
		t.Helper()
		dir := t.TempDir()
		input = filepath.Join(dir, "job_original.png")
		require.NoError(t, os.WriteFile(input, []byte("png bytes"), 0o644))
		output = filepath.Join(dir, "job_enhanced.png")
		scriptDir = t.TempDir()
		return input, output, scriptDir
	}

	t.Run("success writes output and removes script", func(t *testing.T) {
		input, output, scriptDir := setup(t)
		var scriptPath string

		runner := &fakeRunner{handler: func(_ context.Context, _ string, args []string) ([]byte, []byte, error) {
			if len(args) > 0 && strings.HasSuffix(args[0], ".py") {
				scriptPath = args[0]
				script, err := os.ReadFile(scriptPath)
				require.NoError(t, err)
				assert.Contains(t, string(script), "RealESRGANer")

				assert.Equal(t, []string{args[0], input, output, "--scale", "4", "--model-url", "https://example.com/model.pth"}, args)
				require.NoError(t, os.WriteFile(args[2], []byte("enhanced"), 0o644))
				return []byte("enhanced image saved"), nil, nil
			}
			return nil, nil, nil
		}}
		e := NewEnhancer(testEnhancerConfig(), runner, log, WithScriptDir(scriptDir))

		require.NoError(t, e.Enhance(ctx, input, output))

		assert.FileExists(t, output)
		assert.NoFileExists(t, scriptPath, "Temporary script should be removed")
		assert.Equal(t, 1, runner.count(isScriptRun))
		logger.AssertLogContains(t, logBuf, "enhancement finished")
	})

	t.Run("zero exit without output is a failure", func(t *testing.T) {
		input, output, scriptDir := setup(t)
		runner := &fakeRunner{}
		e := NewEnhancer(testEnhancerConfig(), runner, log, WithScriptDir(scriptDir))

		err := e.Enhance(ctx, input, output)
		assert.ErrorIs(t, err, domain.ErrOutputMissing)
	})

	t.Run("non-zero exit", func(t *testing.T) {
		input, output, scriptDir := setup(t)
		runner := &fakeRunner{handler: func(_ context.Context, _ string, args []string) ([]byte, []byte, error) {
			if len(args) > 0 && strings.HasSuffix(args[0], ".py") {
				return nil, []byte("could not read image"), errors.New("exit status 1")
			}
			return nil, nil, nil
		}}
		e := NewEnhancer(testEnhancerConfig(), runner, log, WithScriptDir(scriptDir))

		err := e.Enhance(ctx, input, output)
		assert.ErrorIs(t, err, domain.ErrEnhancementFailed)
		assert.Contains(t, err.Error(), "could not read image")

		entries, readErr := os.ReadDir(scriptDir)
		require.NoError(t, readErr)
		assert.Empty(t, entries, "Temporary script should be removed after a failure")
	})

	t.Run("deadline exceeded", func(t *testing.T) {
		input, output, scriptDir := setup(t)
		runner := &fakeRunner{handler: func(ctx context.Context, _ string, args []string) ([]byte, []byte, error) {
			if len(args) > 0 && strings.HasSuffix(args[0], ".py") {
				<-ctx.Done()
				return nil, nil, errors.New("signal: killed")
			}
			return nil, nil, nil
		}}
		cfg := testEnhancerConfig()
		cfg.Timeout = 20 * time.Millisecond
		e := NewEnhancer(cfg, runner, log, WithScriptDir(scriptDir))

		err := e.Enhance(ctx, input, output)
		assert.ErrorIs(t, err, domain.ErrEnhancementTimeout)
	})

	t.Run("caller cancellation is not a timeout", func(t *testing.T) {
		input, output, scriptDir := setup(t)
		callerCtx, cancel := context.WithCancel(context.Background())
		runner := &fakeRunner{handler: func(ctx context.Context, _ string, args []string) ([]byte, []byte, error) {
			if len(args) > 0 && strings.HasSuffix(args[0], ".py") {
				cancel()
				<-ctx.Done()
				return nil, nil, ctx.Err()
			}
			return nil, nil, nil
		}}
		e := NewEnhancer(testEnhancerConfig(), runner, log, WithScriptDir(scriptDir))

		err := e.Enhance(callerCtx, input, output)
		assert.ErrorIs(t, err, domain.ErrEnhancementFailed)
		assert.NotErrorIs(t, err, domain.ErrEnhancementTimeout)
	})

	t.Run("missing input", func(t *testing.T) {
		_, output, scriptDir := setup(t)
		runner := &fakeRunner{}
		e := NewEnhancer(testEnhancerConfig(), runner, log, WithScriptDir(scriptDir))

		err := e.Enhance(ctx, filepath.Join(t.TempDir(), "absent.png"), output)
		assert.ErrorIs(t, err, domain.ErrEnhancementFailed)
		assert.Zero(t, runner.count(isScriptRun))
	})

	t.Run("hung install fails at the provisioning deadline", func(t *testing.T) {
		input, output, scriptDir := setup(t)
		runner := &fakeRunner{handler: func(ctx context.Context, name string, _ []string) ([]byte, []byte, error) {
			if name == "pip3" {
				<-ctx.Done()
				return nil, nil, errors.New("signal: killed")
			}
			return nil, nil, errors.New("exit status 1")
		}}
		cfg := testEnhancerConfig()
		cfg.Timeout = time.Hour
		cfg.ProvisionTimeout = 50 * time.Millisecond
		e := NewEnhancer(cfg, runner, log, WithScriptDir(scriptDir))

		done := make(chan error, 1)
		go func() { done <- e.Enhance(ctx, input, output) }()

		select {
		case err := <-done:
			assert.ErrorIs(t, err, domain.ErrProvisioning)
			assert.Contains(t, err.Error(), "tooling not ready after 50ms")
		case <-time.After(2 * time.Second):
			t.Fatal("Enhance still blocked long after the provisioning deadline")
		}
		assert.Zero(t, runner.count(isScriptRun))
	})

	t.Run("provisioning deadline defaults to the job timeout", func(t *testing.T) {
		cfg := testEnhancerConfig()
		cfg.Timeout = 3 * time.Minute
		assert.Equal(t, 3*time.Minute, ProvisionDeadline(cfg))

		cfg.ProvisionTimeout = 20 * time.Minute
		assert.Equal(t, 20*time.Minute, ProvisionDeadline(cfg))

		assert.Equal(t, DefaultTimeout, ProvisionDeadline(config.EnhancerConfig{}))
	})

	t.Run("provisioning failure stops the run", func(t *testing.T) {
		input, output, scriptDir := setup(t)
		runner := &fakeRunner{handler: func(context.Context, string, []string) ([]byte, []byte, error) {
			return nil, nil, errors.New("exit status 1")
		}}
		cfg := testEnhancerConfig()
		cfg.AutoProvision = false
		e := NewEnhancer(cfg, runner, log, WithScriptDir(scriptDir))

		err := e.Enhance(ctx, input, output)
		assert.ErrorIs(t, err, domain.ErrProvisioning)
		assert.Zero(t, runner.count(isScriptRun))
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...(truncated)", truncate("abcdef", 3))
}
