package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrFailedToOpenDBConnection = errors.New("failed to open db connection")
	ErrHealthcheckFailed        = errors.New("healthcheck failed, connection is not available")
	ErrFailedToParseDBConfig    = errors.New("failed to parse db config")
	ErrFailedToApplyMigrations  = errors.New("failed to apply migrations")
	ErrMigrationsNotProvided    = errors.New("migrations filesystem not provided")
	ErrLockNotAcquired          = errors.New("advisory lock not acquired")
	ErrInvalidIdentifier        = errors.New("invalid sql identifier")
)

// IsNotFoundError reports whether err is pgx.ErrNoRows.
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateKeyError detects unique constraint violations (SQLSTATE 23505).
func IsDuplicateKeyError(err error) bool {
	return hasCode(err, "23505")
}

// IsDuplicateSchemaError detects CREATE SCHEMA on an existing name (SQLSTATE 42P06).
func IsDuplicateSchemaError(err error) bool {
	return hasCode(err, "42P06")
}

// IsUndefinedTableError detects queries against a missing relation (SQLSTATE 42P01).
// Seen when a partition is routed to before its baseline was applied.
func IsUndefinedTableError(err error) bool {
	return hasCode(err, "42P01")
}

func hasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
