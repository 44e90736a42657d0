package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/enhance-api/internal/artifact"
	"github.com/phrazzld/enhance-api/internal/config"
	"github.com/phrazzld/enhance-api/internal/enhance"
	"github.com/phrazzld/enhance-api/internal/platform/imagemeta"
	"github.com/phrazzld/enhance-api/internal/platform/postgres"
	"github.com/phrazzld/enhance-api/internal/redact"
	"github.com/phrazzld/enhance-api/internal/registry"
	"github.com/phrazzld/enhance-api/internal/service"
	"github.com/phrazzld/enhance-api/internal/task"
)

// application holds the shared dependencies so they can be wired once and
// released together on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// db is nil with the in-memory registry
	db *sql.DB

	store        *artifact.FileStore
	registry     registry.Registry
	provisioner  *enhance.Provisioner
	taskRunner   *task.TaskRunner
	orchestrator *service.Orchestrator
}

// appOption customizes newApplication. Tests use it to replace the enhancer.
type appOption func(*appOptions)

type appOptions struct {
	enhancer task.ImageEnhancer
}

// withEnhancer replaces the Real-ESRGAN enhancer.
func withEnhancer(e task.ImageEnhancer) appOption {
	return func(o *appOptions) {
		o.enhancer = e
	}
}

// newApplication wires every component described by cfg and starts the task runner.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...appOption) (*application, error) {
	options := appOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	app := &application{
		config: cfg,
		logger: logger,
	}

	var err error
	app.store, err = artifact.NewFileStore(cfg.Storage.Dir, cfg.Storage.MaxUploadBytes, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize artifact store: %w", err)
	}

	if err := app.setupRegistry(ctx); err != nil {
		app.cleanup()
		return nil, err
	}

	enhancer := options.enhancer
	if enhancer == nil {
		runner := enhance.NewExecRunner()
		app.provisioner = enhance.NewProvisioner(runner,
			cfg.Enhancer.PythonBin,
			cfg.Enhancer.PipBin,
			cfg.Enhancer.Packages,
			cfg.Enhancer.AutoProvision,
			logger)
		enhancer = enhance.NewEnhancer(cfg.Enhancer, runner, logger, enhance.WithProvisioner(app.provisioner))
	}

	app.taskRunner = task.NewTaskRunner(task.TaskRunnerConfig{
		WorkerCount: cfg.Task.WorkerCount,
		QueueSize:   cfg.Task.QueueSize,
	}, logger)

	app.orchestrator, err = service.NewOrchestrator(
		app.store,
		app.registry,
		imagemeta.NewExtractor(),
		app.taskRunner,
		task.NewEnhancementTaskFactory(enhancer, logger),
		logger,
	)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	if err := app.taskRunner.Start(); err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}

	logger.Info("application initialized",
		"storage_dir", app.store.Dir(),
		"max_upload_bytes", app.store.MaxBytes(),
		"workers", cfg.Task.WorkerCount)
	return app, nil
}

// setupRegistry selects the job registry backend.
func (app *application) setupRegistry(ctx context.Context) error {
	switch app.config.Registry.Backend {
	case "postgres":
		db, err := postgres.Open(ctx, app.config.Registry.DatabaseURL, app.logger)
		if err != nil {
			return fmt.Errorf("failed to open registry database: %w", err)
		}
		app.db = db

		if err := postgres.Migrate(ctx, db, app.logger); err != nil {
			return fmt.Errorf("failed to migrate registry database: %w", err)
		}
		app.registry = postgres.NewPostgresRegistry(db, app.logger)
	default:
		app.registry = registry.NewMemoryRegistry()
	}

	app.logger.Info("job registry ready", "backend", app.config.Registry.Backend)
	return nil
}

// warmUp checks the enhancement tooling in the background so the first job
// does not pay for installation.
func (app *application) warmUp(ctx context.Context) {
	if app.provisioner == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(ctx, enhance.ProvisionDeadline(app.config.Enhancer))
		defer cancel()

		if err := app.provisioner.Ensure(ctx); err != nil {
			app.logger.Warn("enhancement tooling not ready, will retry on first job",
				"error", redact.Error(err))
			return
		}
		app.logger.Info("enhancement tooling ready")
	}()
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully.
func (app *application) Run(ctx context.Context) error {
	app.warmUp(ctx)

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup releases application resources. Queued enhancements are abandoned
// and recorded as failed.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", redact.Error(err))
		}
	}

	app.logger.Info("application shutdown completed")
}

// migrateRegistry applies the registry schema and exits. It is a no-op for the
// in-memory backend.
func migrateRegistry(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.Registry.Backend != "postgres" {
		logger.Info("registry backend has no schema, nothing to migrate", "backend", cfg.Registry.Backend)
		return nil
	}

	db, err := postgres.Open(ctx, cfg.Registry.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("failed to open registry database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("error closing database connection", "error", redact.Error(err))
		}
	}()

	return postgres.Migrate(ctx, db, logger)
}
