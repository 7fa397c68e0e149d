package gatekit

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	// txAttempts is how many times a top-level transaction runs before giving up.
	txAttempts = 3

	txBackoff    = 25 * time.Millisecond
	txMaxBackoff = time.Second
)

// PostgreSQL error codes gatekit reacts to.
const (
	sqlStateUniqueViolation      = "23505"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// fieldError is implemented by pgdriver.Error, the error bun's driver returns for
// server ErrorResponse messages.
type fieldError interface {
	Field(k byte) string
}

// stateError is implemented by pgx's *pgconn.PgError.
type stateError interface {
	SQLState() string
}

var _ fieldError = pgdriver.Error{}

// sqlState returns the SQLSTATE code carried by err, or "" when there is none.
func sqlState(err error) string {
	var fe fieldError
	if errors.As(err, &fe) {
		return fe.Field('C')
	}
	var se stateError
	if errors.As(err, &se) {
		return se.SQLState()
	}
	return ""
}

// isUniqueViolation reports whether err is a unique constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return dbkit.IsDuplicate(err) || sqlState(err) == sqlStateUniqueViolation
}

// withRetry runs fn until it succeeds, fails with a non-transient error, runs out of
// attempts or ctx is done. Waits grow exponentially with jitter.
func withRetry(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = txBackoff
	eb.MaxInterval = txMaxBackoff
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)

	return backoff.Retry(func() error {
		err := fn()
		if err != nil && !isTransientError(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

// connectionErrors are fragments of network failures worth retrying.
var connectionErrors = []string{
	"connection reset",
	"broken pipe",
	"connection refused",
}

// isTransientError reports whether err is worth retrying: serialization failures,
// deadlocks and dropped connections. Cancellation and domain errors never are.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var gerr *Error
	if errors.As(err, &gerr) && !errors.Is(gerr.Err, ErrDatabaseError) {
		return false
	}

	if dbkit.IsRetryable(err) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	switch sqlState(err) {
	case sqlStateSerializationFailure, sqlStateDeadlockDetected:
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range connectionErrors {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
