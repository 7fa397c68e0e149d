package gatekit

import (
	"context"
)

// ============================================================================
// SUBJECT ROLES
// ============================================================================

// AssignRole gives roles to a subject. Roles already held and unknown slugs are skipped.
//
// Example:
//
//	_, err := service.AssignRole(ctx, userID, "editor", "author")
func (s *Service) AssignRole(ctx context.Context, subjectID string, roleSlugs ...string) (ChangeSet, error) {
	if err := requireSubject(subjectID); err != nil {
		return ChangeSet{}, err
	}
	cs, err := s.store.AttachSubjectRoles(ctx, subjectID, uniqueSlugs(roleSlugs))
	return s.afterSubjectChange(ctx, subjectID, "roles", cs, err)
}

// RemoveRole takes roles away from a subject.
func (s *Service) RemoveRole(ctx context.Context, subjectID string, roleSlugs ...string) (ChangeSet, error) {
	if err := requireSubject(subjectID); err != nil {
		return ChangeSet{}, err
	}
	cs, err := s.store.DetachSubjectRoles(ctx, subjectID, uniqueSlugs(roleSlugs))
	return s.afterSubjectChange(ctx, subjectID, "roles", cs, err)
}

// SyncRoles makes roleSlugs the exact role set of the subject.
func (s *Service) SyncRoles(ctx context.Context, subjectID string, roleSlugs ...string) (ChangeSet, error) {
	if err := requireSubject(subjectID); err != nil {
		return ChangeSet{}, err
	}
	cs, err := s.store.SyncSubjectRoles(ctx, subjectID, uniqueSlugs(roleSlugs))
	return s.afterSubjectChange(ctx, subjectID, "roles", cs, err)
}

// AssignDefaultRoles gives the subject every role flagged as default.
func (s *Service) AssignDefaultRoles(ctx context.Context, subjectID string) (ChangeSet, error) {
	if err := requireSubject(subjectID); err != nil {
		return ChangeSet{}, err
	}
	roles, err := s.DefaultRoles(ctx)
	if err != nil {
		return ChangeSet{}, err
	}
	if len(roles) == 0 {
		return ChangeSet{}, nil
	}

	slugs := make([]string, 0, len(roles))
	for _, r := range roles {
		slugs = append(slugs, r.Slug)
	}
	return s.AssignRole(ctx, subjectID, slugs...)
}

// ============================================================================
// SUBJECT PERMISSIONS
// ============================================================================

// GivePermissionTo grants permissions directly to a subject.
func (s *Service) GivePermissionTo(ctx context.Context, subjectID string, permSlugs ...string) (ChangeSet, error) {
	if err := requireSubject(subjectID); err != nil {
		return ChangeSet{}, err
	}
	cs, err := s.store.AttachSubjectPermissions(ctx, subjectID, uniqueSlugs(permSlugs))
	return s.afterSubjectChange(ctx, subjectID, "permissions", cs, err)
}

// RevokePermissionTo removes direct permissions from a subject. Permissions held
// through roles are unaffected.
func (s *Service) RevokePermissionTo(ctx context.Context, subjectID string, permSlugs ...string) (ChangeSet, error) {
	if err := requireSubject(subjectID); err != nil {
		return ChangeSet{}, err
	}
	cs, err := s.store.DetachSubjectPermissions(ctx, subjectID, uniqueSlugs(permSlugs))
	return s.afterSubjectChange(ctx, subjectID, "permissions", cs, err)
}

// SyncPermissions makes permSlugs the exact direct permission set of the subject.
func (s *Service) SyncPermissions(ctx context.Context, subjectID string, permSlugs ...string) (ChangeSet, error) {
	if err := requireSubject(subjectID); err != nil {
		return ChangeSet{}, err
	}
	cs, err := s.store.SyncSubjectPermissions(ctx, subjectID, uniqueSlugs(permSlugs))
	return s.afterSubjectChange(ctx, subjectID, "permissions", cs, err)
}

// DeleteSubject removes every role and direct permission of a subject, typically when
// the owning account is deleted.
func (s *Service) DeleteSubject(ctx context.Context, subjectID string) error {
	if err := requireSubject(subjectID); err != nil {
		return err
	}
	if err := s.store.DeleteSubject(ctx, subjectID); err != nil {
		return err
	}

	s.invalidateSubject(ctx, subjectID)
	s.audit(ctx, newAuditEntry(ctx, AuditActionDeleted, AuditTargetSubject, subjectID))
	return nil
}

// requireSubject rejects the empty subject id, which checks treat as unauthenticated.
func requireSubject(subjectID string) error {
	if subjectID == "" {
		return NewError(ErrUnauthenticated, "subject id required")
	}
	return nil
}

func (s *Service) afterSubjectChange(ctx context.Context, subjectID, relation string, cs ChangeSet, err error) (ChangeSet, error) {
	if err != nil {
		return ChangeSet{}, err
	}
	if cs.Empty() {
		return cs, nil
	}

	s.invalidateSubject(ctx, subjectID)
	s.logger.Debug().
		Str("subject_id", subjectID).
		Str("relation", relation).
		Strs("attached", cs.Attached).
		Strs("detached", cs.Detached).
		Msg("subject grants changed")
	s.auditChanges(ctx, AuditTargetSubject, subjectID, relation, cs)
	return cs, nil
}

// ============================================================================
// SUBJECT QUERIES
// ============================================================================

// SubjectsWithRole returns the subjects holding any of the roles.
func (s *Service) SubjectsWithRole(ctx context.Context, roleSlugs ...string) ([]string, error) {
	return s.store.SubjectsWithRole(ctx, uniqueSlugs(roleSlugs))
}

// SubjectsWithPermission returns the subjects holding any of the permissions,
// directly or through one of their roles.
func (s *Service) SubjectsWithPermission(ctx context.Context, permSlugs ...string) ([]string, error) {
	return s.store.SubjectsWithPermission(ctx, uniqueSlugs(permSlugs))
}
