package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/enhance-api/internal/domain"
)

// PostgreSQL error codes
const (
	// checkViolationCode is raised when a stored status violates the status check constraint
	checkViolationCode = "23514"

	// undefinedTableCode is raised when migrations have not been applied
	undefinedTableCode = "42P01"
)

// MapError maps a database error to the matching domain error, keeping the
// original error in the chain for logging.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", domain.ErrJobNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case checkViolationCode:
			return fmt.Errorf("%w: check constraint violation (%s): %v",
				domain.ErrInvalidStatus, pgErr.ConstraintName, err)
		case undefinedTableCode:
			return fmt.Errorf("job registry schema missing, run migrations: %w", err)
		}
	}

	return err
}
