package gatekit

import (
	"context"
	"fmt"
)

const grantsNamespace = "gatekit:grants"

func (s *Service) cachingGrants() bool {
	return s.config.CachePermissions && s.cache != nil
}

// subjectNamespace versions one subject's snapshots independently of the rest.
func subjectNamespace(subjectID string) string {
	return grantsNamespace + ":subject:" + subjectID
}

// grantsKey is gatekit:grants:v{global}:s{subject generation}:{subject}. Both
// versions are read before the store is, so a snapshot loaded before a mutation
// commits is written under a key that the bump has already retired.
func (s *Service) grantsKey(ctx context.Context, subjectID string) (string, error) {
	ver, err := s.cache.Version(ctx, grantsNamespace)
	if err != nil {
		return "", err
	}
	gen, err := s.cache.Version(ctx, subjectNamespace(subjectID))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:v%d:s%d:%s", grantsNamespace, ver, gen, subjectID), nil
}

// loadGrants returns the subject's snapshot, remembered in the cache when enabled.
// A broken cache degrades to reading the store.
func (s *Service) loadGrants(ctx context.Context, subjectID string) (*Grants, error) {
	if !s.cachingGrants() {
		return s.store.LoadGrants(ctx, subjectID)
	}

	key, err := s.grantsKey(ctx, subjectID)
	if err != nil {
		s.logger.Warn().Err(err).Str("subject_id", subjectID).Msg("grant cache unavailable")
		return s.store.LoadGrants(ctx, subjectID)
	}
	return Remember(ctx, s.cache, key, s.config.CacheTTL, func(ctx context.Context) (*Grants, error) {
		return s.store.LoadGrants(ctx, subjectID)
	})
}

// invalidateSubject retires the cached snapshots of the given subjects by bumping
// their generation. Loads still in flight write under the old generation.
func (s *Service) invalidateSubject(ctx context.Context, subjectIDs ...string) {
	if !s.cachingGrants() {
		return
	}
	for _, id := range subjectIDs {
		if err := s.cache.Bump(ctx, subjectNamespace(id)); err != nil {
			s.logger.Warn().Err(err).Str("subject_id", id).Msg("failed to bump subject grant version")
		}
	}
}

// flushGrants makes every cached snapshot unreachable. Used after changes that can
// affect many subjects at once: role grants, renames and deletions.
func (s *Service) flushGrants(ctx context.Context) {
	if !s.cachingGrants() {
		return
	}
	if err := s.cache.Bump(ctx, grantsNamespace); err != nil {
		s.logger.Warn().Err(err).Msg("failed to bump grant cache version")
	}
}

// FlushGrantCache invalidates every cached grant snapshot.
func (s *Service) FlushGrantCache(ctx context.Context) {
	s.flushGrants(ctx)
}
