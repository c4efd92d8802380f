package repository

import (
	"errors"
	"fmt"

	"storefront/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes the repositories translate into domain errors
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pgErrorCode(err) == pgForeignKeyViolation
}

func isCheckViolation(err error) bool {
	return pgErrorCode(err) == pgCheckViolation
}

// writeFailure wraps a failed write. An error reported by Postgres means the
// statement did not take effect; anything else (deadline, dropped
// connection) leaves the outcome unknown.
func writeFailure(action string, err error) error {
	if pgErrorCode(err) != "" {
		return fmt.Errorf("%w: failed to %s: %v", domain.ErrPersistence, action, err)
	}
	return fmt.Errorf("%w: failed to %s: %w", domain.ErrOutcomeUnknown, action, err)
}
