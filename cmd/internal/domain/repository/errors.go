package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// PostgreSQL SQLSTATE codes that indicate a lost race rather than a bad request.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
	pgLockNotAvailable     = "55P03"
)

// IsRetryable reports whether err is a transient write-write conflict after
// which the whole transaction should be run again.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgUniqueViolation, pgLockNotAvailable:
			return true
		}
		return false
	}

	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		return sqErr.Code == sqlite3.ErrBusy ||
			sqErr.Code == sqlite3.ErrLocked ||
			sqErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
