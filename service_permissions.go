package gatekit

import (
	"context"
	"sort"
)

// ============================================================================
// PERMISSION DEFINITIONS
// ============================================================================

// CreatePermission validates and stores a new permission and defines its gate.
func (s *Service) CreatePermission(ctx context.Context, in PermissionInput) (*Permission, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	perm := in.Permission()
	if err := s.store.CreatePermission(ctx, perm); err != nil {
		return nil, err
	}

	s.definePermissionGate(perm.Slug)
	s.logger.Info().Str("permission", perm.Slug).Msg("permission created")
	s.audit(ctx, newAuditEntry(ctx, AuditActionCreated, AuditTargetPermission, perm.Slug))
	return perm, nil
}

// UpdatePermission replaces the attributes of the permission identified by slug.
func (s *Service) UpdatePermission(ctx context.Context, slug string, in PermissionInput) (*Permission, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	current, err := s.FindPermissionBySlugOrFail(ctx, slug)
	if err != nil {
		return nil, err
	}

	perm := in.Permission()
	perm.ID = current.ID
	if err := s.store.UpdatePermission(ctx, perm); err != nil {
		return nil, err
	}

	if perm.Slug != slug {
		s.undefinePermissionGate(slug)
		s.definePermissionGate(perm.Slug)
		s.flushGrants(ctx)
	}
	s.audit(ctx, newAuditEntry(ctx, AuditActionUpdated, AuditTargetPermission, perm.Slug))
	return perm, nil
}

// DeletePermission removes a permission, its grants and its gate.
func (s *Service) DeletePermission(ctx context.Context, slug string) error {
	if err := s.store.DeletePermission(ctx, slug); err != nil {
		return err
	}

	s.undefinePermissionGate(slug)
	s.flushGrants(ctx)
	s.logger.Info().Str("permission", slug).Msg("permission deleted")
	s.audit(ctx, newAuditEntry(ctx, AuditActionDeleted, AuditTargetPermission, slug))
	return nil
}

// FindPermissionBySlug returns the permission or (nil, nil) when it does not exist.
func (s *Service) FindPermissionBySlug(ctx context.Context, slug string) (*Permission, error) {
	return s.store.FindPermissionBySlug(ctx, slug)
}

// FindPermissionBySlugOrFail returns the permission or an ErrNotFound error.
func (s *Service) FindPermissionBySlugOrFail(ctx context.Context, slug string) (*Permission, error) {
	perm, err := s.store.FindPermissionBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if perm == nil {
		return nil, NewError(ErrNotFound, "permission not found").WithPermission(slug)
	}
	return perm, nil
}

// ListPermissions returns every permission, or those of one group.
func (s *Service) ListPermissions(ctx context.Context, group string) ([]Permission, error) {
	return s.store.ListPermissions(ctx, group)
}

// PermissionsGrouped returns all permissions keyed by group. Ungrouped permissions
// are listed under the empty key.
func (s *Service) PermissionsGrouped(ctx context.Context) (map[string][]Permission, error) {
	perms, err := s.store.ListPermissions(ctx, "")
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]Permission)
	for _, p := range perms {
		grouped[p.Group] = append(grouped[p.Group], p)
	}
	for _, list := range grouped {
		sort.Slice(list, func(i, j int) bool { return list[i].Slug < list[j].Slug })
	}
	return grouped, nil
}
