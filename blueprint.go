package gatekit

import (
	"context"
	"sync"
)

// Blueprint declares roles and permissions that must exist, for seeding a store at
// startup or in tests. It is built fluently and applied with Apply.
type Blueprint struct {
	mu          sync.RWMutex
	permissions []*PermissionDefinition
	roles       []*RoleDefinition
}

// PermissionDefinition declares one permission of a Blueprint.
type PermissionDefinition struct {
	input     PermissionInput
	blueprint *Blueprint
}

// RoleDefinition declares one role of a Blueprint and the permissions it is synced to.
type RoleDefinition struct {
	input       RoleInput
	permissions []string
	blueprint   *Blueprint
}

// NewBlueprint creates an empty blueprint.
func NewBlueprint() *Blueprint {
	return &Blueprint{}
}

// Permission starts declaring a permission. Declaring the same slug twice replaces
// the earlier declaration.
//
// Example:
//
//	bp.Permission("edit-posts", "Edit Posts").Group("posts").
//	    Permission("delete-posts", "Delete Posts").Group("posts")
func (b *Blueprint) Permission(slug, name string) *PermissionDefinition {
	b.mu.Lock()
	defer b.mu.Unlock()

	def := &PermissionDefinition{
		input:     PermissionInput{Name: name, Slug: slug},
		blueprint: b,
	}
	for i, p := range b.permissions {
		if p.input.Slug == slug {
			b.permissions[i] = def
			return def
		}
	}
	b.permissions = append(b.permissions, def)
	return def
}

// Role starts declaring a role. Declaring the same slug twice replaces the earlier
// declaration.
//
// Example:
//
//	bp.Role("editor", "Editor").Level(25).Grants("view-posts", "edit-posts")
func (b *Blueprint) Role(slug, name string) *RoleDefinition {
	b.mu.Lock()
	defer b.mu.Unlock()

	def := &RoleDefinition{
		input:     RoleInput{Name: name, Slug: slug},
		blueprint: b,
	}
	for i, r := range b.roles {
		if r.input.Slug == slug {
			b.roles[i] = def
			return def
		}
	}
	b.roles = append(b.roles, def)
	return def
}

// Permissions returns the declared permission inputs in declaration order.
func (b *Blueprint) Permissions() []PermissionInput {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]PermissionInput, 0, len(b.permissions))
	for _, p := range b.permissions {
		out = append(out, p.input)
	}
	return out
}

// Roles returns the declared role inputs in declaration order.
func (b *Blueprint) Roles() []RoleInput {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]RoleInput, 0, len(b.roles))
	for _, r := range b.roles {
		out = append(out, r.input)
	}
	return out
}

// RolePermissions returns the permissions declared for a role, or nil.
func (b *Blueprint) RolePermissions(roleSlug string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, r := range b.roles {
		if r.input.Slug == roleSlug {
			return append([]string(nil), r.permissions...)
		}
	}
	return nil
}

// Validate checks every declaration without touching a store.
func (b *Blueprint) Validate() error {
	for _, p := range b.Permissions() {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	for _, r := range b.Roles() {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Group sets the permission group.
func (p *PermissionDefinition) Group(group string) *PermissionDefinition {
	p.input.Group = group
	return p
}

// Describe sets the permission description.
func (p *PermissionDefinition) Describe(description string) *PermissionDefinition {
	p.input.Description = description
	return p
}

// Permission continues with the next permission (for chaining).
func (p *PermissionDefinition) Permission(slug, name string) *PermissionDefinition {
	return p.blueprint.Permission(slug, name)
}

// Role continues with a role (for chaining).
func (p *PermissionDefinition) Role(slug, name string) *RoleDefinition {
	return p.blueprint.Role(slug, name)
}

// Level sets the role level.
func (r *RoleDefinition) Level(level int) *RoleDefinition {
	r.input.Level = level
	return r
}

// Default marks the role as assigned to new subjects.
func (r *RoleDefinition) Default() *RoleDefinition {
	r.input.IsDefault = true
	return r
}

// Describe sets the role description.
func (r *RoleDefinition) Describe(description string) *RoleDefinition {
	r.input.Description = description
	return r
}

// Grants sets the permissions the role is synced to on Apply.
func (r *RoleDefinition) Grants(permSlugs ...string) *RoleDefinition {
	r.permissions = uniqueSlugs(permSlugs)
	return r
}

// Role continues with the next role (for chaining).
func (r *RoleDefinition) Role(slug, name string) *RoleDefinition {
	return r.blueprint.Role(slug, name)
}

// Apply makes the store match the blueprint in one transaction. Missing permissions
// and roles are created, existing ones are left as they are, and every declared role
// is synced to exactly its declared permissions. Applying the same blueprint twice
// changes nothing.
//
// Example:
//
//	if err := gatekit.DefaultBlueprint().Apply(ctx, service); err != nil {
//	    log.Fatal().Err(err).Msg("seeding failed")
//	}
func (b *Blueprint) Apply(ctx context.Context, svc *Service) error {
	if err := b.Validate(); err != nil {
		return err
	}

	perms := b.Permissions()
	b.mu.RLock()
	roles := make([]RoleDefinition, 0, len(b.roles))
	for _, r := range b.roles {
		roles = append(roles, *r)
	}
	b.mu.RUnlock()

	created := 0
	err := svc.Transaction(ctx, func(tx *Service) error {
		created = 0
		for _, in := range perms {
			existing, err := tx.FindPermissionBySlug(ctx, in.Slug)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}
			if _, err := tx.CreatePermission(ctx, in); err != nil {
				return err
			}
			created++
		}

		for _, r := range roles {
			existing, err := tx.FindRoleBySlug(ctx, r.input.Slug)
			if err != nil {
				return err
			}
			if existing == nil {
				if _, err := tx.CreateRole(ctx, r.input); err != nil {
					return err
				}
				created++
			}
			if _, err := tx.SyncRolePermissions(ctx, r.input.Slug, r.permissions...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	svc.logger.Info().
		Int("permissions", len(perms)).
		Int("roles", len(roles)).
		Int("created", created).
		Msg("blueprint applied")
	return nil
}

// DefaultBlueprint returns the baseline posts, users and settings permissions, the
// wildcard permission, and the super-admin, admin, editor, author and user roles.
func DefaultBlueprint() *Blueprint {
	bp := NewBlueprint()

	bp.Permission("view-posts", "View Posts").Group("posts").Describe("Can view all posts").
		Permission("create-posts", "Create Posts").Group("posts").Describe("Can create new posts").
		Permission("edit-posts", "Edit Posts").Group("posts").Describe("Can edit existing posts").
		Permission("delete-posts", "Delete Posts").Group("posts").Describe("Can delete posts").
		Permission("publish-posts", "Publish Posts").Group("posts").Describe("Can publish posts")

	bp.Permission("view-users", "View Users").Group("users").Describe("Can view all users").
		Permission("create-users", "Create Users").Group("users").Describe("Can create new users").
		Permission("edit-users", "Edit Users").Group("users").Describe("Can edit user details").
		Permission("delete-users", "Delete Users").Group("users").Describe("Can delete users").
		Permission("manage-roles", "Manage Roles").Group("users").Describe("Can assign roles to users")

	bp.Permission("view-settings", "View Settings").Group("settings").Describe("Can view system settings").
		Permission("edit-settings", "Edit Settings").Group("settings").Describe("Can modify system settings")

	bp.Permission(WildcardPermission, "All Permissions").Group("admin").Describe("Super admin with all permissions")

	bp.Role(SuperAdminRole, "Super Admin").Level(100).
		Describe("Has complete access to all features").
		Grants(WildcardPermission)

	bp.Role("admin", "Administrator").Level(50).
		Describe("Can manage most features").
		Grants(
			"view-posts", "create-posts", "edit-posts", "delete-posts", "publish-posts",
			"view-users", "create-users", "edit-users", "manage-roles",
			"view-settings", "edit-settings",
		)

	bp.Role("editor", "Editor").Level(25).
		Describe("Can manage content").
		Grants("view-posts", "create-posts", "edit-posts", "publish-posts", "view-users")

	bp.Role("author", "Author").Level(10).
		Describe("Can create and edit own content").
		Grants("view-posts", "create-posts", "edit-posts")

	bp.Role("user", "User").Level(1).Default().
		Describe("Basic user with limited access").
		Grants("view-posts")

	return bp
}
