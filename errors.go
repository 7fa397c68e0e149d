package gatekit

import (
	"errors"
	"fmt"
)

// Sentinel errors for GateKit operations.
var (
	// ErrDuplicateSlug is returned when a role or permission slug is already taken.
	ErrDuplicateSlug = errors.New("gatekit: duplicate slug")

	// ErrNotFound is returned by the OrFail lookups and by updates/deletes of missing rows.
	ErrNotFound = errors.New("gatekit: not found")

	// ErrUnauthenticated is returned when a check requires a subject and none is present.
	ErrUnauthenticated = errors.New("gatekit: unauthenticated")

	// ErrForbidden is returned when the subject lacks the required capability.
	ErrForbidden = errors.New("gatekit: forbidden")

	// ErrStoreUnavailable is returned when the entity store is not provisioned yet.
	ErrStoreUnavailable = errors.New("gatekit: store unavailable")

	// ErrInvalidSlug is returned when a slug does not match the slug format.
	ErrInvalidSlug = errors.New("gatekit: invalid slug")

	// ErrValidation is returned when role or permission input fails validation.
	ErrValidation = errors.New("gatekit: validation failed")

	// ErrDatabaseError is returned when a database operation fails.
	ErrDatabaseError = errors.New("gatekit: database error")
)

// Error wraps a sentinel error with additional context.
type Error struct {
	Err        error  // Underlying sentinel error
	Message    string // Additional context
	Role       string // Role slug involved (if applicable)
	Permission string // Permission slug involved (if applicable)
	SubjectID  string // Subject involved (if applicable)
	ActorID    string // Actor who triggered the error (if applicable)
	Guard      Guard  // Guard kind that rejected the request (if applicable)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a target error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
	}
}

// WithRole adds role information to the error.
func (e *Error) WithRole(role string) *Error {
	e.Role = role
	return e
}

// WithPermission adds permission information to the error.
func (e *Error) WithPermission(permission string) *Error {
	e.Permission = permission
	return e
}

// WithSubject adds subject information to the error.
func (e *Error) WithSubject(subjectID string) *Error {
	e.SubjectID = subjectID
	return e
}

// WithActor adds actor information to the error.
func (e *Error) WithActor(actorID string) *Error {
	e.ActorID = actorID
	return e
}

// WithGuard records which guard kind rejected the request.
func (e *Error) WithGuard(g Guard) *Error {
	e.Guard = g
	return e
}

// IsDuplicateSlug checks if an error is due to a slug collision.
func IsDuplicateSlug(err error) bool {
	return errors.Is(err, ErrDuplicateSlug)
}

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsForbidden checks if an error is an authorization denial.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsUnauthenticated checks if an error is due to a missing subject.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

// IsStoreUnavailable checks if an error is due to an unprovisioned store.
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
