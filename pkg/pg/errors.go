package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrFailedToParseConfig     = errors.New("pg: failed to parse connection config")
	ErrFailedToConnect         = errors.New("pg: failed to open db connection")
	ErrHealthcheckFailed       = errors.New("pg: healthcheck failed")
	ErrFailedToApplyMigrations = errors.New("pg: failed to apply migrations")
)

// IsNotFoundError detects pgx.ErrNoRows for consistent not-found handling.
func IsNotFoundError(err error) bool {
	return err != nil && errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateKeyError detects unique constraint violations (SQLSTATE 23505),
// which back the duplicate email/username checks.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ConstraintName returns the violated constraint's name for duplicate-key
// errors, so callers can tell a duplicate email from a duplicate username.
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}
