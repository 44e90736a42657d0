package enhance

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/phrazzld/enhance-api/internal/config"
	"github.com/phrazzld/enhance-api/internal/domain"
	"github.com/phrazzld/enhance-api/internal/platform/logger"
)

//go:embed scripts/enhance.py
var enhanceScript []byte

// DefaultTimeout bounds one enhancement run when none is configured.
const DefaultTimeout = 10 * time.Minute

// ProvisionDeadline returns how long a tooling check and install may take.
// It falls back to the per-job timeout, then to DefaultTimeout.
func ProvisionDeadline(cfg config.EnhancerConfig) time.Duration {
	switch {
	case cfg.ProvisionTimeout > 0:
		return cfg.ProvisionTimeout
	case cfg.Timeout > 0:
		return cfg.Timeout
	default:
		return DefaultTimeout
	}
}

// Enhancer upscales images by running the embedded script with Python.
type Enhancer struct {
	runner           CommandRunner
	provisioner      *Provisioner
	pythonBin        string
	modelURL         string
	scale            int
	timeout          time.Duration
	provisionTimeout time.Duration
	scriptDir        string
	logger           *slog.Logger
}

// Option customizes an Enhancer.
type Option func(*Enhancer)

// WithScriptDir sets where the script is materialized for each run.
// Defaults to the system temp directory.
func WithScriptDir(dir string) Option {
	return func(e *Enhancer) {
		e.scriptDir = dir
	}
}

// WithProvisioner replaces the provisioner built from the config.
func WithProvisioner(p *Provisioner) Option {
	return func(e *Enhancer) {
		e.provisioner = p
	}
}

// NewEnhancer creates an Enhancer from cfg.
func NewEnhancer(cfg config.EnhancerConfig, runner CommandRunner, logger *slog.Logger, opts ...Option) *Enhancer {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = NewExecRunner()
	}

	e := &Enhancer{
		runner:           runner,
		pythonBin:        cfg.PythonBin,
		modelURL:         cfg.ModelURL,
		scale:            cfg.Scale,
		timeout:          cfg.Timeout,
		provisionTimeout: ProvisionDeadline(cfg),
		logger:           logger.With("component", "enhancer"),
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	if e.scale == 0 {
		e.scale = 4
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.provisioner == nil {
		e.provisioner = NewProvisioner(runner, cfg.PythonBin, cfg.PipBin, cfg.Packages, cfg.AutoProvision, logger)
	}

	return e
}

// Enhance reads inputPath and writes the upscaled result to outputPath.
// A zero exit without an output file is still a failure.
func (e *Enhancer) Enhance(ctx context.Context, inputPath, outputPath string) error {
	log := logger.FromContextOrDefault(ctx, e.logger)

	if err := e.ensureTooling(ctx); err != nil {
		return err
	}

	if _, err := os.Stat(inputPath); err != nil {
		return fmt.Errorf("%w: input not readable: %v", domain.ErrEnhancementFailed, err)
	}

	scriptPath, err := e.writeScript()
	if err != nil {
		return fmt.Errorf("%w: could not prepare script: %v", domain.ErrEnhancementFailed, err)
	}
	defer func() {
		if err := os.Remove(scriptPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("could not remove temporary script", "error", err)
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	log.Info("enhancement started", "scale", e.scale, "timeout", e.timeout.String())

	stdout, stderr, runErr := e.runner.Run(runCtx, e.pythonBin, log,
		scriptPath, inputPath, outputPath,
		"--scale", strconv.Itoa(e.scale),
		"--model-url", e.modelURL,
	)

	if out := strings.TrimSpace(string(stdout)); out != "" {
		log.Debug("enhancement output", "stdout", truncate(out, maxLoggedOutput))
	}

	if runErr != nil {
		// Deadline of the run, not of the caller
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w after %s", domain.ErrEnhancementTimeout, e.timeout)
		}
		return fmt.Errorf("%w: %v: %s", domain.ErrEnhancementFailed, runErr,
			truncate(strings.TrimSpace(string(stderr)), 512))
	}

	if _, err := os.Stat(outputPath); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrOutputMissing, err)
	}

	log.Info("enhancement finished", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// ensureTooling runs provisioning under its own deadline so a hung install
// fails the job instead of holding the worker.
func (e *Enhancer) ensureTooling(ctx context.Context) error {
	provCtx, cancel := context.WithTimeout(ctx, e.provisionTimeout)
	defer cancel()

	err := e.provisioner.Ensure(provCtx)
	if err == nil {
		return nil
	}
	if errors.Is(provCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: tooling not ready after %s: %v", domain.ErrProvisioning, e.provisionTimeout, err)
	}
	return err
}

// writeScript materializes the embedded script in its own temp file so
// concurrent runs never share one.
func (e *Enhancer) writeScript() (string, error) {
	f, err := os.CreateTemp(e.scriptDir, "enhance-*.py")
	if err != nil {
		return "", err
	}
	name := f.Name()

	if _, err := f.Write(enhanceScript); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}
