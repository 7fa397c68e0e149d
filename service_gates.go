package gatekit

import (
	"context"
)

// ============================================================================
// GATE REGISTRATION
// ============================================================================

// RegisterPermissionGates defines one ability per stored permission, named after its
// slug, that passes when the subject holds the permission. Store errors are logged and
// swallowed so a fresh database without the schema does not break startup.
// It returns the number of permission abilities defined.
func (s *Service) RegisterPermissionGates(ctx context.Context) int {
	perms, err := s.store.ListPermissions(ctx, "")
	if err != nil {
		if IsStoreUnavailable(err) {
			s.logger.Info().Msg("permission tables missing, skipping gate registration")
		} else {
			s.logger.Warn().Err(err).Msg("failed to register permission gates")
		}
		return 0
	}

	current := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		current[p.Slug] = struct{}{}
		s.definePermissionGate(p.Slug)
	}

	// Drop abilities whose permission disappeared since the last registration.
	s.permissionGates.mu.Lock()
	var stale []string
	for slug := range s.permissionGates.slugs {
		if _, ok := current[slug]; !ok {
			stale = append(stale, slug)
		}
	}
	s.permissionGates.mu.Unlock()
	for _, slug := range stale {
		s.undefinePermissionGate(slug)
	}

	GatesRegistered.Set(float64(len(s.gate.Abilities())))
	s.logger.Debug().Int("count", len(perms)).Msg("permission gates registered")
	return len(perms)
}

// RefreshGates re-reads the permissions and redefines their abilities.
func (s *Service) RefreshGates(ctx context.Context) int {
	return s.RegisterPermissionGates(ctx)
}

func (s *Service) definePermissionGate(slug string) {
	if !s.config.RegisterGates {
		return
	}
	s.permissionGates.mu.Lock()
	defer s.permissionGates.mu.Unlock()

	// Leave hand-written abilities with the same name alone.
	if _, owned := s.permissionGates.slugs[slug]; !owned && s.gate.Has(slug) {
		return
	}
	s.gate.Define(slug, permissionGate(slug))
	s.permissionGates.slugs[slug] = struct{}{}
}

func (s *Service) undefinePermissionGate(slug string) {
	s.permissionGates.mu.Lock()
	defer s.permissionGates.mu.Unlock()

	if _, owned := s.permissionGates.slugs[slug]; !owned {
		return
	}
	s.gate.Undefine(slug)
	delete(s.permissionGates.slugs, slug)
}

// Can reports whether the subject may perform the ability registered on the gate.
//
// Example:
//
//	if service.Can(ctx, userID, "edit-posts") {
//	    // ...
//	}
func (s *Service) Can(ctx context.Context, subjectID, ability string) bool {
	if SkipAuthCheck(ctx) {
		return true
	}
	checker, err := s.Checker(ctx, subjectID)
	if err != nil {
		s.logger.Warn().Err(err).Str("subject_id", subjectID).Str("ability", ability).Msg("gate check failed")
		return false
	}
	return s.gate.Allows(ctx, ability, checker)
}
