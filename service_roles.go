package gatekit

import (
	"context"
)

// ============================================================================
// ROLE DEFINITIONS
// ============================================================================

// CreateRole validates and stores a new role.
//
// Example:
//
//	role, err := service.CreateRole(ctx, gatekit.RoleInput{Name: "Editor", Slug: "editor", Level: 25})
func (s *Service) CreateRole(ctx context.Context, in RoleInput) (*Role, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	role := in.Role()
	if err := s.store.CreateRole(ctx, role); err != nil {
		return nil, err
	}

	s.logger.Info().Str("role", role.Slug).Msg("role created")
	s.audit(ctx, newAuditEntry(ctx, AuditActionCreated, AuditTargetRole, role.Slug))
	return role, nil
}

// UpdateRole replaces the attributes of the role identified by slug. The slug itself
// may change; existing assignments follow the role.
func (s *Service) UpdateRole(ctx context.Context, slug string, in RoleInput) (*Role, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	current, err := s.FindRoleBySlugOrFail(ctx, slug)
	if err != nil {
		return nil, err
	}

	role := in.Role()
	role.ID = current.ID
	if err := s.store.UpdateRole(ctx, role); err != nil {
		return nil, err
	}

	if role.Slug != slug {
		s.flushGrants(ctx)
	}
	s.audit(ctx, newAuditEntry(ctx, AuditActionUpdated, AuditTargetRole, role.Slug))
	return role, nil
}

// DeleteRole removes a role and all of its associations.
func (s *Service) DeleteRole(ctx context.Context, slug string) error {
	if err := s.store.DeleteRole(ctx, slug); err != nil {
		return err
	}

	s.flushGrants(ctx)
	s.logger.Info().Str("role", slug).Msg("role deleted")
	s.audit(ctx, newAuditEntry(ctx, AuditActionDeleted, AuditTargetRole, slug))
	return nil
}

// FindRoleBySlug returns the role or (nil, nil) when it does not exist.
func (s *Service) FindRoleBySlug(ctx context.Context, slug string) (*Role, error) {
	return s.store.FindRoleBySlug(ctx, slug)
}

// FindRoleBySlugOrFail returns the role or an ErrNotFound error.
func (s *Service) FindRoleBySlugOrFail(ctx context.Context, slug string) (*Role, error) {
	role, err := s.store.FindRoleBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, NewError(ErrNotFound, "role not found").WithRole(slug)
	}
	return role, nil
}

// ListRoles returns roles matching the filter.
func (s *Service) ListRoles(ctx context.Context, filter RoleFilter) ([]Role, error) {
	return s.store.ListRoles(ctx, filter)
}

// DefaultRoles returns the roles assigned to new subjects, highest level first.
func (s *Service) DefaultRoles(ctx context.Context) ([]Role, error) {
	return s.store.ListRoles(ctx, RoleFilter{DefaultOnly: true, OrderByLevel: true, Descending: true})
}

// ============================================================================
// ROLE PERMISSIONS
// ============================================================================

// RolePermissions returns the slugs of the permissions granted to a role.
func (s *Service) RolePermissions(ctx context.Context, roleSlug string) ([]string, error) {
	return s.store.RolePermissionSlugs(ctx, roleSlug)
}

// RoleHasPermission reports whether the role lists the permission slug.
// A role granting "*" does not match other slugs here; see RoleIsSuperAdmin.
func (s *Service) RoleHasPermission(ctx context.Context, roleSlug, permSlug string) bool {
	slugs, err := s.store.RolePermissionSlugs(ctx, roleSlug)
	if err != nil {
		s.logger.Warn().Err(err).Str("role", roleSlug).Str("permission", permSlug).Msg("role permission lookup failed")
		return false
	}
	for _, slug := range slugs {
		if slug == permSlug {
			return true
		}
	}
	return false
}

// RoleIsSuperAdmin reports whether the role is super-admin or grants "*".
func (s *Service) RoleIsSuperAdmin(ctx context.Context, roleSlug string) bool {
	if roleSlug == SuperAdminRole {
		return true
	}
	return s.RoleHasPermission(ctx, roleSlug, WildcardPermission)
}

// GivePermissionToRole attaches permissions to a role. Unknown permission slugs are
// skipped; an unknown role is an ErrNotFound error.
func (s *Service) GivePermissionToRole(ctx context.Context, roleSlug string, permSlugs ...string) (ChangeSet, error) {
	cs, err := s.store.AttachRolePermissions(ctx, roleSlug, uniqueSlugs(permSlugs))
	return s.afterRoleChange(ctx, roleSlug, cs, err)
}

// RevokePermissionFromRole detaches permissions from a role.
func (s *Service) RevokePermissionFromRole(ctx context.Context, roleSlug string, permSlugs ...string) (ChangeSet, error) {
	cs, err := s.store.DetachRolePermissions(ctx, roleSlug, uniqueSlugs(permSlugs))
	return s.afterRoleChange(ctx, roleSlug, cs, err)
}

// SyncRolePermissions makes permSlugs the exact permission set of the role.
func (s *Service) SyncRolePermissions(ctx context.Context, roleSlug string, permSlugs ...string) (ChangeSet, error) {
	cs, err := s.store.SyncRolePermissions(ctx, roleSlug, uniqueSlugs(permSlugs))
	return s.afterRoleChange(ctx, roleSlug, cs, err)
}

func (s *Service) afterRoleChange(ctx context.Context, roleSlug string, cs ChangeSet, err error) (ChangeSet, error) {
	if err != nil {
		return ChangeSet{}, err
	}
	if cs.Empty() {
		return cs, nil
	}

	s.flushGrants(ctx)
	s.logger.Debug().
		Str("role", roleSlug).
		Strs("attached", cs.Attached).
		Strs("detached", cs.Detached).
		Msg("role permissions changed")
	s.auditChanges(ctx, AuditTargetRole, roleSlug, "permissions", cs)
	return cs, nil
}
