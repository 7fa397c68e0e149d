package gatekit

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	// WildcardPermission is the reserved permission slug meaning "every permission".
	WildcardPermission = "*"

	// SuperAdminRole is the role slug that bypasses every permission check.
	SuperAdminRole = "super-admin"
)

// Role is a named bundle of permissions that can be assigned to subjects.
// Level is ordering metadata only; it is never compared during authorization.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Slug        string    `bun:"slug,notnull,unique" json:"slug"`
	Description string    `bun:"description" json:"description,omitempty"`
	Level       int       `bun:"level,notnull,default:0" json:"level"`
	IsDefault   bool      `bun:"is_default,notnull,default:false" json:"is_default"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// IsSuperAdminSlug reports whether the role is the built-in super-admin role.
// A role that merely grants "*" is also a super-admin role; see Service.RoleIsSuperAdmin.
func (r *Role) IsSuperAdminSlug() bool {
	return r != nil && r.Slug == SuperAdminRole
}

// Permission is an atomic capability identified by its slug.
type Permission struct {
	bun.BaseModel `bun:"table:permissions,alias:p"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Slug        string    `bun:"slug,notnull,unique" json:"slug"`
	Description string    `bun:"description" json:"description,omitempty"`
	Group       string    `bun:"group" json:"group,omitempty"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// IsWildcard returns true if this is the "*" permission.
func (p *Permission) IsWildcard() bool {
	return p != nil && p.Slug == WildcardPermission
}

// RolePermission grants a permission to a role.
type RolePermission struct {
	bun.BaseModel `bun:"table:role_permissions,alias:rp"`

	RoleID       int64     `bun:"role_id,pk"`
	PermissionID int64     `bun:"permission_id,pk"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// SubjectRole assigns a role to a subject.
type SubjectRole struct {
	bun.BaseModel `bun:"table:subject_roles,alias:sr"`

	SubjectID string    `bun:"subject_id,pk"`
	RoleID    int64     `bun:"role_id,pk"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// SubjectPermission grants a permission directly to a subject, bypassing roles.
type SubjectPermission struct {
	bun.BaseModel `bun:"table:subject_permissions,alias:sp"`

	SubjectID    string    `bun:"subject_id,pk"`
	PermissionID int64     `bun:"permission_id,pk"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// ChangeSet lists the slugs an association mutation actually attached and detached.
type ChangeSet struct {
	Attached []string
	Detached []string
}

// Empty reports whether the mutation changed nothing.
func (c ChangeSet) Empty() bool {
	return len(c.Attached) == 0 && len(c.Detached) == 0
}

// RoleFilter narrows ListRoles.
type RoleFilter struct {
	// DefaultOnly returns only roles flagged as default.
	DefaultOnly bool

	// OrderByLevel sorts by level instead of slug. Descending puts the most
	// privileged roles first.
	OrderByLevel bool
	Descending   bool
}
