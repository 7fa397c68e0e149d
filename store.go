package gatekit

import (
	"context"
)

// RoleStore persists role definitions.
type RoleStore interface {
	CreateRole(ctx context.Context, role *Role) error
	UpdateRole(ctx context.Context, role *Role) error
	DeleteRole(ctx context.Context, slug string) error
	// FindRoleBySlug returns (nil, nil) when the slug does not exist.
	FindRoleBySlug(ctx context.Context, slug string) (*Role, error)
	ListRoles(ctx context.Context, filter RoleFilter) ([]Role, error)
}

// PermissionStore persists permission definitions.
type PermissionStore interface {
	CreatePermission(ctx context.Context, perm *Permission) error
	UpdatePermission(ctx context.Context, perm *Permission) error
	DeletePermission(ctx context.Context, slug string) error
	// FindPermissionBySlug returns (nil, nil) when the slug does not exist.
	FindPermissionBySlug(ctx context.Context, slug string) (*Permission, error)
	// ListPermissions returns every permission, or only those of group when it is non-empty.
	ListPermissions(ctx context.Context, group string) ([]Permission, error)
}

// AssignmentStore manages the three association kinds. Unknown slugs are skipped,
// attaching an existing association is a no-op and sync replaces the whole set in
// one transaction, leaving rows present in both sets untouched.
type AssignmentStore interface {
	AttachRolePermissions(ctx context.Context, roleSlug string, permSlugs []string) (ChangeSet, error)
	DetachRolePermissions(ctx context.Context, roleSlug string, permSlugs []string) (ChangeSet, error)
	SyncRolePermissions(ctx context.Context, roleSlug string, permSlugs []string) (ChangeSet, error)

	AttachSubjectRoles(ctx context.Context, subjectID string, roleSlugs []string) (ChangeSet, error)
	DetachSubjectRoles(ctx context.Context, subjectID string, roleSlugs []string) (ChangeSet, error)
	SyncSubjectRoles(ctx context.Context, subjectID string, roleSlugs []string) (ChangeSet, error)

	AttachSubjectPermissions(ctx context.Context, subjectID string, permSlugs []string) (ChangeSet, error)
	DetachSubjectPermissions(ctx context.Context, subjectID string, permSlugs []string) (ChangeSet, error)
	SyncSubjectPermissions(ctx context.Context, subjectID string, permSlugs []string) (ChangeSet, error)

	// DeleteSubject removes every role and direct permission of a subject.
	DeleteSubject(ctx context.Context, subjectID string) error
}

// GrantReader answers the read queries used for evaluation.
type GrantReader interface {
	LoadGrants(ctx context.Context, subjectID string) (*Grants, error)
	RolePermissionSlugs(ctx context.Context, roleSlug string) ([]string, error)
	// SubjectsWithRole returns subjects holding any of the roles.
	SubjectsWithRole(ctx context.Context, roleSlugs []string) ([]string, error)
	// SubjectsWithPermission returns subjects holding any of the permissions,
	// directly or through a role.
	SubjectsWithPermission(ctx context.Context, permSlugs []string) ([]string, error)
	RoleSubjects(ctx context.Context, roleSlug string) ([]string, error)
}

// AuditLogger persists and queries the audit trail.
type AuditLogger interface {
	LogAudit(ctx context.Context, entry *AuditEntry) error
	AuditLog(ctx context.Context, filter AuditLogFilter) ([]AuditRecord, error)
}

// HealthChecker reports whether the store can serve requests.
type HealthChecker interface {
	// Ping returns ErrStoreUnavailable when the store is reachable but not provisioned.
	Ping(ctx context.Context) error
}

// Store is the full entity store used by Service.
type Store interface {
	RoleStore
	PermissionStore
	AssignmentStore
	GrantReader
	AuditLogger
	HealthChecker
}

// Transactor is implemented by stores that can run several operations atomically.
// The Store passed to fn is bound to the transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(Store) error) error
}
