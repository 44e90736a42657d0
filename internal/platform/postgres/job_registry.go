package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/enhance-api/internal/domain"
	"github.com/phrazzld/enhance-api/internal/platform/logger"
	"github.com/phrazzld/enhance-api/internal/redact"
	"github.com/phrazzld/enhance-api/internal/registry"
)

// DBTX is implemented by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresRegistry implements registry.Registry on the job_states table.
type PostgresRegistry struct {
	db     DBTX
	logger *slog.Logger
}

var _ registry.Registry = (*PostgresRegistry)(nil)

// NewPostgresRegistry creates a registry backed by db.
func NewPostgresRegistry(db DBTX, logger *slog.Logger) *PostgresRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRegistry{
		db:     db,
		logger: logger.With("component", "postgres_registry"),
	}
}

func (r *PostgresRegistry) log(ctx context.Context) *slog.Logger {
	return logger.FromContextOrDefault(ctx, r.logger)
}

// Create implements registry.Registry.
func (r *PostgresRegistry) Create(ctx context.Context, id domain.JobID) error {
	query := `
		INSERT INTO job_states (id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status, created_at = EXCLUDED.created_at, updated_at = EXCLUDED.updated_at
	`

	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, query, uuid.UUID(id), string(domain.StatusPending), now); err != nil {
		r.log(ctx).Error("failed to create job state", "job_id", id, "error", redact.Error(err))
		return fmt.Errorf("failed to create job state: %w", MapError(err))
	}
	return nil
}

// Get implements registry.Registry.
func (r *PostgresRegistry) Get(ctx context.Context, id domain.JobID) (domain.JobState, error) {
	query := `
		SELECT status, created_at, updated_at
		FROM job_states
		WHERE id = $1
	`

	state := domain.JobState{ID: id}
	var status string
	err := r.db.QueryRowContext(ctx, query, uuid.UUID(id)).Scan(&status, &state.CreatedAt, &state.UpdatedAt)
	if err != nil {
		mapped := MapError(err)
		if domain.IsNotFoundError(mapped) {
			return domain.JobState{}, domain.ErrJobNotFound
		}
		r.log(ctx).Error("failed to get job state", "job_id", id, "error", redact.Error(err))
		return domain.JobState{}, fmt.Errorf("failed to get job state: %w", mapped)
	}

	state.Status = domain.JobStatus(status)
	state.CreatedAt = state.CreatedAt.UTC()
	state.UpdatedAt = state.UpdatedAt.UTC()
	return state, nil
}

// Status implements registry.Registry.
func (r *PostgresRegistry) Status(ctx context.Context, id domain.JobID) (domain.JobStatus, error) {
	state, err := r.Get(ctx, id)
	if err != nil {
		if domain.IsNotFoundError(err) {
			return domain.StatusNotFound, nil
		}
		return "", err
	}
	return state.Status, nil
}

// TrySetProcessing implements registry.Registry. The upsert only touches a
// row that is not already processing, so the affected-row count tells
// whether this caller won.
func (r *PostgresRegistry) TrySetProcessing(ctx context.Context, id domain.JobID) error {
	query := `
		INSERT INTO job_states (id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
		WHERE job_states.status <> EXCLUDED.status
	`

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query, uuid.UUID(id), string(domain.StatusProcessing), now)
	if err != nil {
		r.log(ctx).Error("failed to set job processing", "job_id", id, "error", redact.Error(err))
		return fmt.Errorf("failed to set job processing: %w", MapError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrAlreadyProcessing
	}
	return nil
}

// SetTerminal implements registry.Registry.
func (r *PostgresRegistry) SetTerminal(ctx context.Context, id domain.JobID, status domain.JobStatus) (bool, error) {
	if !status.IsTerminal() {
		return false, fmt.Errorf("%w: %q is not a terminal status", domain.ErrInvalidStatus, status)
	}

	query := `
		UPDATE job_states
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.db.ExecContext(ctx, query, string(status), time.Now().UTC(), uuid.UUID(id))
	if err != nil {
		r.log(ctx).Error("failed to set job outcome", "job_id", id, "status", status, "error", redact.Error(err))
		return false, fmt.Errorf("failed to set job outcome: %w", MapError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		r.log(ctx).Debug("no job state to update, it was removed", "job_id", id)
		return false, nil
	}
	return true, nil
}

// Remove implements registry.Registry.
func (r *PostgresRegistry) Remove(ctx context.Context, id domain.JobID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM job_states WHERE id = $1`, uuid.UUID(id)); err != nil {
		r.log(ctx).Error("failed to remove job state", "job_id", id, "error", redact.Error(err))
		return fmt.Errorf("failed to remove job state: %w", MapError(err))
	}
	return nil
}
