package enhance

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/phrazzld/enhance-api/internal/domain"
)

// requiredModule is the Python module whose import proves the tooling is usable.
const requiredModule = "realesrgan"

// Provisioner makes sure the enhancement tooling is installed before a run.
type Provisioner struct {
	runner        CommandRunner
	pythonBin     string
	pipBin        string
	packages      []string
	autoProvision bool
	logger        *slog.Logger

	// sem serialises checks and installs; waiting on it honours the caller's context
	sem   chan struct{}
	ready atomic.Bool
}

// NewProvisioner creates a Provisioner. When autoProvision is false a missing
// module is reported instead of installed.
func NewProvisioner(
	runner CommandRunner,
	pythonBin, pipBin string,
	packages []string,
	autoProvision bool,
	logger *slog.Logger,
) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{
		runner:        runner,
		pythonBin:     pythonBin,
		pipBin:        pipBin,
		packages:      append([]string(nil), packages...),
		autoProvision: autoProvision,
		logger:        logger.With("component", "provisioner"),
		sem:           make(chan struct{}, 1),
	}
}

// Ensure checks for the tooling and installs it if needed. A successful check
// is remembered for the life of the process; failures are not, so the next
// run tries again. Only one check or install runs at a time; callers waiting
// for it give up when ctx is done. Errors wrap domain.ErrProvisioning.
func (p *Provisioner) Ensure(ctx context.Context) error {
	if p.ready.Load() {
		return nil
	}

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%w: waiting for tooling check: %v", domain.ErrProvisioning, ctx.Err())
	}
	defer func() { <-p.sem }()

	if p.ready.Load() {
		return nil
	}

	if p.available(ctx) {
		p.ready.Store(true)
		return nil
	}

	if !p.autoProvision {
		return fmt.Errorf("%w: python module %q is not installed and auto-provisioning is disabled",
			domain.ErrProvisioning, requiredModule)
	}

	p.logger.Info("enhancement tooling missing, installing", "packages", p.packages)

	args := append([]string{"install"}, p.packages...)
	if _, _, err := p.runner.Run(ctx, p.pipBin, p.logger, args...); err != nil {
		return fmt.Errorf("%w: package install failed: %v", domain.ErrProvisioning, err)
	}

	if !p.available(ctx) {
		return fmt.Errorf("%w: python module %q still not importable after install",
			domain.ErrProvisioning, requiredModule)
	}

	p.logger.Info("enhancement tooling installed")
	p.ready.Store(true)
	return nil
}

// Ready reports whether a previous Ensure succeeded.
func (p *Provisioner) Ready() bool {
	return p.ready.Load()
}

func (p *Provisioner) available(ctx context.Context) bool {
	_, _, err := p.runner.Run(ctx, p.pythonBin, p.logger, "-c", "import "+requiredModule)
	return err == nil
}
