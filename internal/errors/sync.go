package errors

import (
	stderrors "errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// Failure classes produced by the persistence adapter and settings stores.
var (
	ErrReadFailure       = stderrors.New("settings: read failed")
	ErrWriteFailure      = stderrors.New("settings: write failed")
	ErrValidationFailure = stderrors.New("settings: validation failed")
	ErrCorruptValue      = stderrors.New("settings: stored value is corrupt")
	ErrClosed            = stderrors.New("settings: store is closed")
	// ErrDatabaseFailure marks errors raised by the database backend.
	ErrDatabaseFailure = stderrors.New("settings: database operation failed")
)

// transientSubstrings mark backend errors that are expected to clear on retry.
var transientSubstrings = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"context deadline exceeded",
	"database is locked",
	"too many connections",
	"loading redis is loading the dataset in memory",
}

// IsTransient reports whether err looks like a temporary backend outage.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	errorLower := strings.ToLower(err.Error())
	for _, pattern := range transientSubstrings {
		if strings.Contains(errorLower, pattern) {
			return true
		}
	}

	return false
}

// FromSyncError maps a settings failure onto the API error returned to the dashboard.
func FromSyncError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case stderrors.Is(err, ErrValidationFailure):
		return NewAPIError(ErrValidation, err.Error())
	case stderrors.Is(err, ErrClosed):
		return ErrStoreClosed
	case IsTransient(err):
		return NewAPIError(ErrStorageUnavailable, err.Error())
	case stderrors.Is(err, ErrDatabaseFailure), isDriverError(err):
		return NewAPIError(ParseDBError(err), err.Error())
	default:
		return NewAPIError(ErrInternalServer, err.Error())
	}
}

func isDriverError(err error) bool {
	var pgErr *pgconn.PgError
	var mysqlErr *mysql.MySQLError
	return stderrors.As(err, &pgErr) || stderrors.As(err, &mysqlErr)
}
