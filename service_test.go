package gatekit

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestService returns a service over a memory store seeded with DefaultBlueprint.
func newTestService(t *testing.T, opts ...Option) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	svc := NewService(store, opts...)
	require.NoError(t, DefaultBlueprint().Apply(context.Background(), svc))
	return svc.Boot(context.Background()), store
}

// newCachedTestService is newTestService with a grant cache on miniredis.
func newCachedTestService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr, cache := newTestRedis(t, "")
	svc, _ := newTestService(t, WithCache(cache))
	return svc, mr
}

// failingStore fails every grant and permission read.
type failingStore struct {
	Store
	err error
}

func (f failingStore) LoadGrants(context.Context, string) (*Grants, error) {
	return nil, f.err
}

func (f failingStore) ListPermissions(context.Context, string) ([]Permission, error) {
	return nil, f.err
}

// TestServiceSuperAdmin tests that super-admins pass every permission check
func TestServiceSuperAdmin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.AssignRole(ctx, "root", SuperAdminRole)
	require.NoError(t, err)

	assert.True(t, svc.IsSuperAdmin(ctx, "root"))
	assert.True(t, svc.HasPermission(ctx, "root", "delete-users"))
	assert.True(t, svc.HasPermission(ctx, "root", "never-defined"))
	assert.True(t, svc.HasAllPermissions(ctx, "root", "edit-posts", "edit-settings", "made-up"))
	assert.False(t, svc.HasRole(ctx, "root", "admin"), "roles are not implied")
}

// TestServiceDirectWildcard tests that a direct "*" grant makes a super-admin
func TestServiceDirectWildcard(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	assert.False(t, svc.IsSuperAdmin(ctx, "ops"))

	_, err := svc.GivePermissionTo(ctx, "ops", WildcardPermission)
	require.NoError(t, err)

	assert.True(t, svc.IsSuperAdmin(ctx, "ops"))
	assert.True(t, svc.HasPermission(ctx, "ops", "manage-roles"))
	assert.False(t, svc.HasRole(ctx, "ops", SuperAdminRole))
}

// TestServiceEditorScenario tests a typical editor's checks
func TestServiceEditorScenario(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.AssignRole(ctx, "bob", "editor")
	require.NoError(t, err)

	assert.True(t, svc.HasRole(ctx, "bob", "editor"))
	assert.True(t, svc.HasAnyRole(ctx, "bob", "admin", "editor"))
	assert.False(t, svc.HasAllRoles(ctx, "bob", "admin", "editor"))
	assert.True(t, svc.HasPermission(ctx, "bob", "edit-posts"))
	assert.True(t, svc.HasAnyPermission(ctx, "bob", "delete-users", "publish-posts"))
	assert.False(t, svc.HasPermission(ctx, "bob", "delete-users"))
	assert.False(t, svc.HasAllPermissions(ctx, "bob", "edit-posts", "delete-posts"))
	assert.False(t, svc.IsSuperAdmin(ctx, "bob"))

	perms, err := svc.AllPermissions(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"create-posts", "edit-posts", "publish-posts", "view-posts", "view-users"}, perms)

	roles, err := svc.Roles(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"editor"}, roles)
}

// TestServiceSyncRoles tests that syncing replaces the role set exactly
func TestServiceSyncRoles(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.AssignRole(ctx, "u1", "admin", "editor")
	require.NoError(t, err)

	cs, err := svc.SyncRoles(ctx, "u1", "editor", "author")
	require.NoError(t, err)
	assert.Equal(t, []string{"author"}, cs.Attached)
	assert.Equal(t, []string{"admin"}, cs.Detached)

	roles, err := svc.Roles(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"author", "editor"}, roles)

	cs, err = svc.SyncRoles(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"author", "editor"}, cs.Detached)
	assert.False(t, svc.HasRole(ctx, "u1", "editor"))
}

// TestServiceRemoveRoleKeepsOtherSources tests that a permission survives when still held elsewhere
func TestServiceRemoveRoleKeepsOtherSources(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.AssignRole(ctx, "u1", "editor")
	require.NoError(t, err)
	_, err = svc.GivePermissionTo(ctx, "u1", "publish-posts")
	require.NoError(t, err)

	_, err = svc.RemoveRole(ctx, "u1", "editor")
	require.NoError(t, err)

	assert.False(t, svc.HasPermission(ctx, "u1", "edit-posts"))
	assert.True(t, svc.HasPermission(ctx, "u1", "publish-posts"), "direct grant remains")

	_, err = svc.RevokePermissionTo(ctx, "u1", "publish-posts")
	require.NoError(t, err)
	assert.False(t, svc.HasPermission(ctx, "u1", "publish-posts"))
}

// TestServiceUnknownSlugsAreSkipped tests that mutations ignore slugs that do not exist
func TestServiceUnknownSlugsAreSkipped(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	cs, err := svc.AssignRole(ctx, "u1", "ghost", "author")
	require.NoError(t, err)
	assert.Equal(t, []string{"author"}, cs.Attached)

	cs, err = svc.SyncPermissions(ctx, "u1", "ghost-permission")
	require.NoError(t, err)
	assert.True(t, cs.Empty())

	_, err = svc.GivePermissionToRole(ctx, "ghost", "view-posts")
	assert.True(t, IsNotFound(err))
}

// TestServiceAssignDefaultRoles tests default role assignment
func TestServiceAssignDefaultRoles(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	cs, err := svc.AssignDefaultRoles(ctx, "newcomer")
	require.NoError(t, err)
	assert.Equal(t, []string{"user"}, cs.Attached)
	assert.True(t, svc.HasPermission(ctx, "newcomer", "view-posts"))

	defaults, err := svc.DefaultRoles(ctx)
	require.NoError(t, err)
	require.Len(t, defaults, 1)
	assert.Equal(t, "user", defaults[0].Slug)
}

// TestServiceRoleCRUD tests role definitions through the service
func TestServiceRoleCRUD(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	role, err := svc.CreateRole(ctx, RoleInput{Name: "Reviewer", Slug: "reviewer", Level: 15})
	require.NoError(t, err)
	assert.NotZero(t, role.ID)

	_, err = svc.CreateRole(ctx, RoleInput{Name: "Reviewer", Slug: "reviewer"})
	assert.True(t, IsDuplicateSlug(err))
	_, err = svc.CreateRole(ctx, RoleInput{Name: "Bad", Slug: "bad slug"})
	assert.ErrorIs(t, err, ErrInvalidSlug)

	_, err = svc.SyncRolePermissions(ctx, "reviewer", "view-posts", "edit-posts")
	require.NoError(t, err)
	_, err = svc.AssignRole(ctx, "u1", "reviewer")
	require.NoError(t, err)

	// renaming keeps assignments and grants
	updated, err := svc.UpdateRole(ctx, "reviewer", RoleInput{Name: "Senior Reviewer", Slug: "senior-reviewer", Level: 20})
	require.NoError(t, err)
	assert.Equal(t, role.ID, updated.ID)
	assert.True(t, svc.HasRole(ctx, "u1", "senior-reviewer"))
	assert.True(t, svc.HasPermission(ctx, "u1", "edit-posts"))

	_, err = svc.FindRoleBySlugOrFail(ctx, "reviewer")
	assert.True(t, IsNotFound(err))
	_, err = svc.UpdateRole(ctx, "reviewer", RoleInput{Name: "x", Slug: "x"})
	assert.True(t, IsNotFound(err))

	require.NoError(t, svc.DeleteRole(ctx, "senior-reviewer"))
	assert.False(t, svc.HasPermission(ctx, "u1", "edit-posts"))
	assert.True(t, IsNotFound(svc.DeleteRole(ctx, "senior-reviewer")))
}

// TestServiceRolePermissionQueries tests role-level permission lookups
func TestServiceRolePermissionQueries(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	assert.True(t, svc.RoleHasPermission(ctx, "author", "create-posts"))
	assert.False(t, svc.RoleHasPermission(ctx, "author", "delete-posts"))
	assert.False(t, svc.RoleHasPermission(ctx, SuperAdminRole, "delete-posts"), "wildcard is not expanded")
	assert.True(t, svc.RoleHasPermission(ctx, SuperAdminRole, WildcardPermission))

	assert.True(t, svc.RoleIsSuperAdmin(ctx, SuperAdminRole))
	assert.False(t, svc.RoleIsSuperAdmin(ctx, "admin"))

	_, err := svc.GivePermissionToRole(ctx, "admin", WildcardPermission)
	require.NoError(t, err)
	assert.True(t, svc.RoleIsSuperAdmin(ctx, "admin"))

	cs, err := svc.RevokePermissionFromRole(ctx, "admin", WildcardPermission)
	require.NoError(t, err)
	assert.Equal(t, []string{WildcardPermission}, cs.Detached)

	perms, err := svc.RolePermissions(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, []string{"view-posts"}, perms)
}

// TestServicePermissionCRUD tests permission round trips and groups
func TestServicePermissionCRUD(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	created, err := svc.CreatePermission(ctx, PermissionInput{
		Name:        "Export Posts",
		Slug:        "export-posts",
		Group:       "posts",
		Description: "Can export posts",
	})
	require.NoError(t, err)

	found, err := svc.FindPermissionBySlugOrFail(ctx, "export-posts")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "Export Posts", found.Name)
	assert.Equal(t, "posts", found.Group)
	assert.Equal(t, "Can export posts", found.Description)

	missing, err := svc.FindPermissionBySlug(ctx, "import-posts")
	require.NoError(t, err)
	assert.Nil(t, missing)
	_, err = svc.FindPermissionBySlugOrFail(ctx, "import-posts")
	assert.True(t, IsNotFound(err))

	_, err = svc.CreatePermission(ctx, PermissionInput{Name: "dup", Slug: "export-posts"})
	assert.True(t, IsDuplicateSlug(err))

	grouped, err := svc.PermissionsGrouped(ctx)
	require.NoError(t, err)
	assert.Len(t, grouped["posts"], 6)
	assert.Len(t, grouped["users"], 5)
	assert.Len(t, grouped["settings"], 2)
	assert.Equal(t, WildcardPermission, grouped["admin"][0].Slug)

	settings, err := svc.ListPermissions(ctx, "settings")
	require.NoError(t, err)
	assert.Len(t, settings, 2)

	_, err = svc.UpdatePermission(ctx, "export-posts", PermissionInput{Name: "Export", Slug: "export-content", Group: "posts"})
	require.NoError(t, err)
	assert.False(t, svc.Gate().Has("export-posts"))
	assert.True(t, svc.Gate().Has("export-content"))

	require.NoError(t, svc.DeletePermission(ctx, "export-content"))
	assert.False(t, svc.Gate().Has("export-content"))
}

// TestServiceUnauthenticated tests checks without a subject
func TestServiceUnauthenticated(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Checker(ctx, "")
	assert.True(t, IsUnauthenticated(err))

	assert.False(t, svc.HasRole(ctx, "", "user"))
	assert.False(t, svc.HasPermission(ctx, "", "view-posts"))
	assert.False(t, svc.Can(ctx, "", "view-posts"))

	// an unknown subject is authenticated but holds nothing
	checker, err := svc.Checker(ctx, "stranger")
	require.NoError(t, err)
	assert.True(t, checker.IsEmpty())
}

// TestServiceAssignmentsRequireSubject tests that mutations never store rows for an empty subject
func TestServiceAssignmentsRequireSubject(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	mutations := map[string]func() error{
		"AssignRole": func() error { _, err := svc.AssignRole(ctx, "", "editor"); return err },
		"RemoveRole": func() error { _, err := svc.RemoveRole(ctx, "", "editor"); return err },
		"SyncRoles":  func() error { _, err := svc.SyncRoles(ctx, "", "editor"); return err },
		"AssignDefaultRoles": func() error {
			_, err := svc.AssignDefaultRoles(ctx, "")
			return err
		},
		"GivePermissionTo": func() error { _, err := svc.GivePermissionTo(ctx, "", "edit-posts"); return err },
		"RevokePermissionTo": func() error {
			_, err := svc.RevokePermissionTo(ctx, "", "edit-posts")
			return err
		},
		"SyncPermissions": func() error { _, err := svc.SyncPermissions(ctx, "", "edit-posts"); return err },
		"DeleteSubject":   func() error { return svc.DeleteSubject(ctx, "") },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			assert.True(t, IsUnauthenticated(mutate()))
		})
	}

	grants, err := store.LoadGrants(ctx, "")
	require.NoError(t, err)
	assert.True(t, grants.IsEmpty())
}

// TestServiceStoreFailureDenies tests that store errors turn into denials
func TestServiceStoreFailureDenies(t *testing.T) {
	ctx := context.Background()
	svc := NewService(failingStore{Store: NewMemoryStore(), err: errors.New("connection refused")})

	assert.False(t, svc.HasPermission(ctx, "u1", "view-posts"))
	assert.False(t, svc.IsSuperAdmin(ctx, "u1"))
	_, err := svc.AllPermissions(ctx, "u1")
	assert.Error(t, err)

	// gate registration swallows the error
	assert.Zero(t, svc.RegisterPermissionGates(ctx))
}

// TestServiceGates tests permission gates and Can
func TestServiceGates(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	assert.True(t, svc.Gate().Has("edit-posts"))
	assert.True(t, svc.Gate().Has(WildcardPermission))

	_, err := svc.AssignRole(ctx, "bob", "editor")
	require.NoError(t, err)

	assert.True(t, svc.Can(ctx, "bob", "edit-posts"))
	assert.False(t, svc.Can(ctx, "bob", "delete-users"))
	assert.False(t, svc.Can(ctx, "bob", "undefined-ability"))
	assert.True(t, svc.Can(WithSkipAuthCheck(ctx), "bob", "delete-users"))

	_, err = svc.CreatePermission(ctx, PermissionInput{Name: "Archive", Slug: "archive-posts"})
	require.NoError(t, err)
	assert.True(t, svc.Gate().Has("archive-posts"), "created permissions get a gate")

	n := svc.RefreshGates(ctx)
	assert.Equal(t, 14, n)
}

// TestServiceGatesKeepHandWrittenAbilities tests that permission gates never replace custom ones
func TestServiceGatesKeepHandWrittenAbilities(t *testing.T) {
	ctx := context.Background()
	gate := NewGate().Define("edit-posts", func(_ context.Context, s Authorizable) bool {
		return s.HasRole("owner")
	})
	svc, _ := newTestService(t, WithGate(gate))

	_, err := svc.AssignRole(ctx, "bob", "editor")
	require.NoError(t, err)
	assert.False(t, svc.Can(ctx, "bob", "edit-posts"), "custom ability wins")

	require.NoError(t, svc.DeletePermission(ctx, "edit-posts"))
	assert.True(t, gate.Has("edit-posts"), "custom ability is not removed")
}

// TestServiceGatesDisabled tests that RegisterGates=false defines nothing
func TestServiceGatesDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RegisterGates = false
	svc, _ := newTestService(t, WithConfig(cfg))

	assert.Empty(t, svc.Gate().Abilities())
}

// TestServiceTemplateFuncs tests the directive switch
func TestServiceTemplateFuncs(t *testing.T) {
	svc, _ := newTestService(t)
	assert.NotEmpty(t, svc.TemplateFuncs(nil))

	cfg := DefaultConfig()
	cfg.EnableDirectives = false
	off := NewService(NewMemoryStore(), WithConfig(cfg))
	assert.Empty(t, off.TemplateFuncs(nil))
}

// TestServiceAudit tests that mutations land in the audit log with request metadata
func TestServiceAudit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := WithAuditContext(context.Background(), AuditContext{
		ActorID:   "admin-1",
		IPAddress: "10.0.0.1",
		RequestID: "req-1",
	})

	_, err := svc.SyncRoles(ctx, "u1", "editor")
	require.NoError(t, err)
	_, err = svc.SyncRoles(ctx, "u1", "author")
	require.NoError(t, err)

	records, err := svc.AuditLog(ctx, NewAuditLogFilter().WithSubject("u1"))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, string(AuditActionDetached), records[0].Action)
	assert.Equal(t, []string{"editor"}, records[0].Slugs)
	assert.Equal(t, "roles", records[0].Relation)
	assert.Equal(t, "admin-1", records[0].ActorID)
	assert.Equal(t, "10.0.0.1", records[0].IPAddress)
	assert.Equal(t, "req-1", records[0].RequestID)

	// no-op mutations are not audited
	_, err = svc.SyncRoles(ctx, "u1", "author")
	require.NoError(t, err)
	records, err = svc.AuditLog(ctx, NewAuditLogFilter().WithSubject("u1"))
	require.NoError(t, err)
	assert.Len(t, records, 3)

	require.NoError(t, svc.DeleteSubject(ctx, "u1"))
	records, err = svc.AuditLog(ctx, NewAuditLogFilter().WithSubject("u1").WithAction(AuditActionDeleted))
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.False(t, svc.HasRole(ctx, "u1", "author"))
}

// TestServiceSubjectQueries tests reverse lookups
func TestServiceSubjectQueries(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.AssignRole(ctx, "alice", "admin")
	require.NoError(t, err)
	_, err = svc.AssignRole(ctx, "bob", "editor")
	require.NoError(t, err)
	_, err = svc.GivePermissionTo(ctx, "carol", "manage-roles")
	require.NoError(t, err)

	subjects, err := svc.SubjectsWithRole(ctx, "admin", "editor")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, subjects)

	subjects, err = svc.SubjectsWithPermission(ctx, "manage-roles")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "carol"}, subjects)
}

// TestServiceTransactionWithoutTransactor tests that memory stores run fn directly
func TestServiceTransactionWithoutTransactor(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	boom := errors.New("boom")

	err := svc.Transaction(ctx, func(tx *Service) error {
		assert.Same(t, svc, tx)
		_, err := tx.CreateRole(ctx, RoleInput{Name: "Temp", Slug: "temp"})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// no rollback without a transactional store
	role, err := svc.FindRoleBySlug(ctx, "temp")
	require.NoError(t, err)
	assert.NotNil(t, role)
}

// TestServiceGrantCache tests that cached snapshots are invalidated by every mutation
func TestServiceGrantCache(t *testing.T) {
	ctx := context.Background()
	svc, mr := newCachedTestService(t)

	_, err := svc.AssignRole(ctx, "bob", "author")
	require.NoError(t, err)
	assert.False(t, svc.HasPermission(ctx, "bob", "publish-posts"))

	cached := 0
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, grantsNamespace+":v") && strings.HasSuffix(k, ":bob") {
			cached++
		}
	}
	assert.Equal(t, 1, cached, "snapshot is remembered")

	// subject changes retire the subject's snapshots
	_, err = svc.AssignRole(ctx, "bob", "editor")
	require.NoError(t, err)
	assert.True(t, svc.HasPermission(ctx, "bob", "publish-posts"))

	// role changes bump the namespace
	_, err = svc.RevokePermissionFromRole(ctx, "editor", "publish-posts")
	require.NoError(t, err)
	assert.False(t, svc.HasPermission(ctx, "bob", "publish-posts"))

	require.NoError(t, svc.DeletePermission(ctx, "edit-posts"))
	assert.False(t, svc.HasPermission(ctx, "bob", "edit-posts"))

	require.NoError(t, svc.DeleteRole(ctx, "author"))
	assert.False(t, svc.HasRole(ctx, "bob", "author"))
}

// TestServiceGrantCacheStaleWithoutInvalidation tests that cached snapshots are really served
func TestServiceGrantCacheStaleWithoutInvalidation(t *testing.T) {
	ctx := context.Background()
	mr, cache := newTestRedis(t, "")
	svc, store := newTestService(t, WithCache(cache))

	_, err := svc.AssignRole(ctx, "bob", "author")
	require.NoError(t, err)
	assert.True(t, svc.HasRole(ctx, "bob", "author"))

	// a write that bypasses the service is invisible until the cache is flushed
	_, err = store.AttachSubjectRoles(ctx, "bob", []string{"admin"})
	require.NoError(t, err)
	assert.False(t, svc.HasRole(ctx, "bob", "admin"))

	svc.FlushGrantCache(ctx)
	assert.True(t, svc.HasRole(ctx, "bob", "admin"))

	// a broken cache degrades to the store
	mr.Close()
	assert.True(t, svc.HasRole(ctx, "bob", "admin"))
}

// TestServiceHealth tests the health report
func TestServiceHealth(t *testing.T) {
	ctx := context.Background()
	svc, mr := newCachedTestService(t)

	report := svc.Health(ctx)
	assert.True(t, report.Healthy)
	assert.True(t, report.Store.Healthy)
	require.NotNil(t, report.Cache)
	assert.True(t, report.Cache.Healthy)
	assert.Nil(t, report.Pool)
	assert.Equal(t, 13, report.Gates)
	assert.NoError(t, svc.Ping(ctx))

	mr.Close()
	report = svc.Health(ctx)
	assert.False(t, report.Healthy)
	assert.True(t, report.Store.Healthy)
	assert.NotEmpty(t, report.Cache.Error)
}
