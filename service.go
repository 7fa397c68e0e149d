package gatekit

import (
	"context"
	"html/template"
	"sync"

	"github.com/rs/zerolog"
)

// Service provides role management and permission checking on top of a Store.
//
// Checks load the subject's Grants snapshot (through the grant cache when
// Config.CachePermissions is on), build a Checker and evaluate in memory. They
// return booleans; store failures are logged and reported as a denial.
// Mutations run in one store transaction, invalidate the affected snapshots and
// are written to the audit log.
//
// Example:
//
//	store := gatekit.NewDBStore(db)
//	svc := gatekit.NewService(store,
//	    gatekit.WithCache(gatekit.NewRedisCache(rdb, "")),
//	    gatekit.WithLogger(logger),
//	).Boot(ctx)
//
//	if svc.HasPermission(ctx, userID, "edit-posts") {
//	    // ...
//	}
type Service struct {
	store  Store
	cache  Cache
	gate   *Gate
	config Config
	logger zerolog.Logger

	permissionGates *gateSet
}

// gateSet tracks the abilities defined from permissions, as opposed to hand-written ones.
type gateSet struct {
	mu    sync.Mutex
	slugs map[string]struct{}
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger. Defaults to a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithCache sets the cache used for grant snapshots.
func WithCache(cache Cache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(s *Service) { s.config = cfg }
}

// WithGate shares an existing Gate, for example one with hand-written abilities.
func WithGate(gate *Gate) Option {
	return func(s *Service) { s.gate = gate }
}

// NewService creates a new gatekit service. Call Boot before serving requests so the
// permission gates are registered.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:           store,
		config:          DefaultConfig(),
		logger:          zerolog.Nop(),
		permissionGates: &gateSet{slugs: make(map[string]struct{})},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.gate == nil {
		s.gate = NewGate()
	}
	if s.config.CacheTTL <= 0 {
		s.config.CacheTTL = DefaultCacheTTL
	}
	return s
}

// Boot registers one gate per permission when Config.RegisterGates is on.
// It never fails; an unavailable store leaves the gate without permission abilities.
func (s *Service) Boot(ctx context.Context) *Service {
	if s.config.RegisterGates {
		s.RegisterPermissionGates(ctx)
	}
	return s
}

// Store returns the underlying entity store.
func (s *Service) Store() Store {
	return s.store
}

// Gate returns the ability registry.
func (s *Service) Gate() *Gate {
	return s.gate
}

// Config returns the active configuration.
func (s *Service) Config() Config {
	return s.config
}

// Logger returns the service logger.
func (s *Service) Logger() zerolog.Logger {
	return s.logger
}

// TemplateFuncs returns the template helpers for checker, or an empty map when
// Config.EnableDirectives is off.
func (s *Service) TemplateFuncs(checker *Checker) template.FuncMap {
	if !s.config.EnableDirectives {
		return template.FuncMap{}
	}
	return TemplateFuncs(checker, s.gate)
}

// Ping reports whether the store is ready.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// AuditLog retrieves audit log entries with optional filters.
func (s *Service) AuditLog(ctx context.Context, filter AuditLogFilter) ([]AuditRecord, error) {
	return s.store.AuditLog(ctx, filter)
}

// audit records a change. Failures are logged and never fail the mutation.
func (s *Service) audit(ctx context.Context, entry *AuditEntry) {
	if err := s.store.LogAudit(ctx, entry); err != nil {
		s.logger.Warn().Err(err).
			Str("action", string(entry.Action)).
			Str("target", entry.Target).
			Msg("failed to write audit log")
	}
}

// auditChanges writes one record per non-empty side of a ChangeSet.
func (s *Service) auditChanges(ctx context.Context, targetType AuditTarget, target, relation string, cs ChangeSet) {
	if len(cs.Attached) > 0 {
		entry := newAuditEntry(ctx, AuditActionAttached, targetType, target)
		entry.Relation, entry.Slugs = relation, cs.Attached
		s.audit(ctx, entry)
	}
	if len(cs.Detached) > 0 {
		entry := newAuditEntry(ctx, AuditActionDetached, targetType, target)
		entry.Relation, entry.Slugs = relation, cs.Detached
		s.audit(ctx, entry)
	}
}
