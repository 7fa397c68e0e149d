package gatekit

import (
	"context"
)

// Transaction runs fn with a Service bound to one store transaction. If fn returns an
// error the transaction is rolled back. Otherwise it is committed.
//
// Stores that do not implement Transactor (MemoryStore) run fn directly, without
// atomicity.
//
// Example:
//
//	err := service.Transaction(ctx, func(tx *gatekit.Service) error {
//	    if _, err := tx.CreateRole(ctx, gatekit.RoleInput{Name: "Reviewer", Slug: "reviewer"}); err != nil {
//	        return err // rolls back
//	    }
//	    _, err := tx.SyncRolePermissions(ctx, "reviewer", "view-posts", "edit-posts")
//	    return err
//	})
func (s *Service) Transaction(ctx context.Context, fn func(tx *Service) error) error {
	txr, ok := s.store.(Transactor)
	if !ok {
		return fn(s)
	}

	err := txr.WithinTx(ctx, func(store Store) error {
		return fn(s.withStore(store))
	})

	// Invalidation inside fn ran before commit; readers may have cached the old rows since.
	s.flushGrants(ctx)
	if err != nil && s.config.RegisterGates {
		s.RefreshGates(ctx)
	}
	return err
}

// withStore returns a shallow copy of the service using store. Gate, cache and
// registered gate bookkeeping are shared.
func (s *Service) withStore(store Store) *Service {
	return &Service{
		store:           store,
		cache:           s.cache,
		gate:            s.gate,
		config:          s.config,
		logger:          s.logger,
		permissionGates: s.permissionGates,
	}
}
