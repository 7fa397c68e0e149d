package gatekit

import (
	"context"
)

// ============================================================================
// CAPABILITY CHECKS
// ============================================================================

// Checker loads the subject's grants and returns an evaluator for them. Build one per
// request and reuse it for every check of that request.
func (s *Service) Checker(ctx context.Context, subjectID string) (*Checker, error) {
	if err := requireSubject(subjectID); err != nil {
		return nil, err
	}
	grants, err := s.loadGrants(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if grants == nil {
		grants = NewGrants(subjectID)
	}
	return NewChecker(grants), nil
}

// check resolves the checker and records the decision. Any failure is a denial.
func (s *Service) check(ctx context.Context, kind, subjectID string, fn func(*Checker) bool) bool {
	checker, err := s.Checker(ctx, subjectID)
	if err != nil {
		s.logger.Warn().Err(err).Str("subject_id", subjectID).Str("check", kind).Msg("authorization check failed")
		recordCheck(kind, false)
		return false
	}
	allowed := fn(checker)
	recordCheck(kind, allowed)
	return allowed
}

// HasRole reports whether the subject holds any of the roles.
//
// Example:
//
//	if service.HasRole(ctx, userID, "admin", "editor") {
//	    // User is admin or editor
//	}
func (s *Service) HasRole(ctx context.Context, subjectID string, roleSlugs ...string) bool {
	return s.check(ctx, "role", subjectID, func(c *Checker) bool { return c.HasRole(roleSlugs...) })
}

// HasAnyRole is an alias of HasRole.
func (s *Service) HasAnyRole(ctx context.Context, subjectID string, roleSlugs ...string) bool {
	return s.HasRole(ctx, subjectID, roleSlugs...)
}

// HasAllRoles reports whether the subject holds every role. No roles is vacuously true.
func (s *Service) HasAllRoles(ctx context.Context, subjectID string, roleSlugs ...string) bool {
	return s.check(ctx, "all_roles", subjectID, func(c *Checker) bool { return c.HasAllRoles(roleSlugs...) })
}

// HasPermission reports whether the subject holds any of the permissions, directly,
// through a role or as a super-admin.
func (s *Service) HasPermission(ctx context.Context, subjectID string, permSlugs ...string) bool {
	return s.check(ctx, "permission", subjectID, func(c *Checker) bool { return c.HasPermission(permSlugs...) })
}

// HasAnyPermission is an alias of HasPermission.
func (s *Service) HasAnyPermission(ctx context.Context, subjectID string, permSlugs ...string) bool {
	return s.HasPermission(ctx, subjectID, permSlugs...)
}

// HasAllPermissions reports whether the subject holds every permission.
func (s *Service) HasAllPermissions(ctx context.Context, subjectID string, permSlugs ...string) bool {
	return s.check(ctx, "all_permissions", subjectID, func(c *Checker) bool { return c.HasAllPermissions(permSlugs...) })
}

// IsSuperAdmin reports whether the subject bypasses every permission check.
func (s *Service) IsSuperAdmin(ctx context.Context, subjectID string) bool {
	return s.check(ctx, "super_admin", subjectID, func(c *Checker) bool { return c.IsSuperAdmin() })
}

// AllPermissions returns the sorted union of the subject's direct and role permissions.
func (s *Service) AllPermissions(ctx context.Context, subjectID string) ([]string, error) {
	checker, err := s.Checker(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return checker.AllPermissions(), nil
}

// Roles returns the slugs of the subject's roles.
func (s *Service) Roles(ctx context.Context, subjectID string) ([]string, error) {
	checker, err := s.Checker(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return checker.Roles(), nil
}
