// Package errs defines the error taxonomy shared by the stores and the fleet
// service: malformed input, missing records, and an unreachable store.
package errs

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a looked-up record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable is returned when the persistence layer could not be
	// reached, timed out, or failed the statement. Callers may retry.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError reports malformed input at a write boundary.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// unavailableError keeps the driver error reachable through errors.As while
// matching ErrStoreUnavailable through errors.Is.
type unavailableError struct {
	op    string
	cause error
}

func (e *unavailableError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.op, ErrStoreUnavailable, describe(e.cause))
}

func (e *unavailableError) Is(target error) bool { return target == ErrStoreUnavailable }

func (e *unavailableError) Unwrap() error { return e.cause }

// FromStore classifies an error returned by gorm for operation op.
// A nil error stays nil, record-not-found becomes ErrNotFound, and every other
// failure becomes ErrStoreUnavailable.
func FromStore(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrNotFound), IsValidation(err):
		return err
	}
	return &unavailableError{op: op, cause: err}
}

// describe gives a short, log-friendly reason for a driver failure.
func describe(err error) string {
	var pgErr *pgconn.PgError
	var connErr *pgconn.ConnectError
	var netErr net.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded), pgconn.Timeout(err):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &connErr):
		return connErr.Error()
	case errors.As(err, &pgErr):
		return fmt.Sprintf("postgres %s: %s", pgErr.Code, pgErr.Message)
	case errors.As(err, &netErr) && netErr.Timeout():
		return "network timeout"
	}
	return strings.TrimSpace(err.Error())
}
