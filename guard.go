package gatekit

import "context"

// Guard is the kind of check a route guard performs.
type Guard int

const (
	// GuardRole passes when the subject holds any of the roles.
	GuardRole Guard = iota + 1
	// GuardPermission passes when the subject has any of the permissions.
	GuardPermission
	// GuardRoleOrPermission passes when any token matches as a role or as a permission.
	GuardRoleOrPermission
)

// String returns the guard name used in logs and metrics.
func (g Guard) String() string {
	switch g {
	case GuardRole:
		return "role"
	case GuardPermission:
		return "permission"
	case GuardRoleOrPermission:
		return "role_or_permission"
	default:
		return "unknown"
	}
}

// Message is the fixed denial message returned to clients.
func (g Guard) Message() string {
	switch g {
	case GuardRole:
		return "Unauthorized. Insufficient role privileges."
	case GuardPermission:
		return "Unauthorized. Insufficient permissions."
	default:
		return "Unauthorized. Insufficient privileges."
	}
}

// Allows evaluates the guard for an existing subject.
func (g Guard) Allows(subject Authorizable, tokens []string) bool {
	switch g {
	case GuardRole:
		return subject.HasRole(tokens...)
	case GuardPermission:
		return subject.HasPermission(tokens...)
	case GuardRoleOrPermission:
		return subject.HasRole(tokens...) || subject.HasPermission(tokens...)
	default:
		return false
	}
}

// Authorize runs a guard. It returns ErrUnauthenticated for a missing subject
// before evaluating anything, and ErrForbidden carrying the guard's message when
// the check fails.
//
// Example:
//
//	err := gatekit.Authorize(checker, gatekit.GuardRole, gatekit.ParseExpression("admin|editor"))
func Authorize(subject Authorizable, kind Guard, tokens []string) error {
	if isNilSubject(subject) {
		return NewError(ErrUnauthenticated, kind.Message()).WithGuard(kind)
	}

	allowed := kind.Allows(subject, tokens)
	recordCheck(kind.String(), allowed)
	if !allowed {
		err := NewError(ErrForbidden, kind.Message()).WithGuard(kind)
		if c, ok := subject.(*Checker); ok {
			err = err.WithSubject(c.SubjectID())
		}
		return err
	}
	return nil
}

// AuthorizeContext is Authorize honoring WithSkipAuthCheck.
func AuthorizeContext(ctx context.Context, subject Authorizable, kind Guard, tokens []string) error {
	if SkipAuthCheck(ctx) {
		return nil
	}
	return Authorize(subject, kind, tokens)
}
