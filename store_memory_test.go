package gatekit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := NewMemoryStore()

	for _, slug := range []string{"view-posts", "edit-posts", "delete-posts", WildcardPermission} {
		require.NoError(t, store.CreatePermission(ctx, &Permission{Name: slug, Slug: slug, Group: "posts"}))
	}
	for _, r := range []Role{
		{Name: "Editor", Slug: "editor", Level: 25},
		{Name: "Author", Slug: "author", Level: 10},
		{Name: "User", Slug: "user", Level: 1, IsDefault: true},
	} {
		role := r
		require.NoError(t, store.CreateRole(ctx, &role))
	}
	return store
}

// TestMemoryStoreRoleCRUD tests role create, find, update and delete
func TestMemoryStoreRoleCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	role := &Role{Name: "Editor", Slug: "editor", Level: 25}
	require.NoError(t, store.CreateRole(ctx, role))
	assert.NotZero(t, role.ID)
	assert.False(t, role.CreatedAt.IsZero())

	err := store.CreateRole(ctx, &Role{Name: "Editor again", Slug: "editor"})
	assert.True(t, IsDuplicateSlug(err))

	found, err := store.FindRoleBySlug(ctx, "editor")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Editor", found.Name)

	missing, err := store.FindRoleBySlug(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	// rename keeps the id
	require.NoError(t, store.UpdateRole(ctx, &Role{ID: role.ID, Name: "Chief Editor", Slug: "chief-editor", Level: 30}))
	renamed, err := store.FindRoleBySlug(ctx, "chief-editor")
	require.NoError(t, err)
	require.NotNil(t, renamed)
	assert.Equal(t, role.ID, renamed.ID)
	gone, _ := store.FindRoleBySlug(ctx, "editor")
	assert.Nil(t, gone)

	assert.True(t, IsNotFound(store.UpdateRole(ctx, &Role{ID: 999, Slug: "ghost"})))
	assert.True(t, IsNotFound(store.DeleteRole(ctx, "ghost")))
	require.NoError(t, store.DeleteRole(ctx, "chief-editor"))
}

// TestMemoryStoreListRoles tests role filtering and ordering
func TestMemoryStoreListRoles(t *testing.T) {
	ctx := context.Background()
	store := seedMemoryStore(t)

	all, err := store.ListRoles(ctx, RoleFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"author", "editor", "user"}, roleSlugs(all))

	byLevel, err := store.ListRoles(ctx, RoleFilter{OrderByLevel: true, Descending: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"editor", "author", "user"}, roleSlugs(byLevel))

	defaults, err := store.ListRoles(ctx, RoleFilter{DefaultOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"user"}, roleSlugs(defaults))
}

func roleSlugs(roles []Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, r.Slug)
	}
	return out
}

// TestMemoryStorePermissionCRUD tests permission round trips
func TestMemoryStorePermissionCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	perm := &Permission{Name: "Edit Posts", Slug: "edit-posts", Group: "posts", Description: "Can edit existing posts"}
	require.NoError(t, store.CreatePermission(ctx, perm))

	found, err := store.FindPermissionBySlug(ctx, "edit-posts")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, perm.ID, found.ID)
	assert.Equal(t, "Edit Posts", found.Name)
	assert.Equal(t, "posts", found.Group)
	assert.Equal(t, "Can edit existing posts", found.Description)

	assert.True(t, IsDuplicateSlug(store.CreatePermission(ctx, &Permission{Name: "dup", Slug: "edit-posts"})))

	require.NoError(t, store.CreatePermission(ctx, &Permission{Name: "View Users", Slug: "view-users", Group: "users"}))
	posts, err := store.ListPermissions(ctx, "posts")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "edit-posts", posts[0].Slug)

	all, err := store.ListPermissions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.True(t, IsNotFound(store.DeletePermission(ctx, "ghost")))
}

// TestMemoryStoreSyncSubjectRoles tests that sync replaces the whole set
func TestMemoryStoreSyncSubjectRoles(t *testing.T) {
	ctx := context.Background()
	store := seedMemoryStore(t)

	cs, err := store.SyncSubjectRoles(ctx, "u1", []string{"editor", "author"})
	require.NoError(t, err)
	assert.Equal(t, []string{"author", "editor"}, cs.Attached)
	assert.Empty(t, cs.Detached)

	cs, err = store.SyncSubjectRoles(ctx, "u1", []string{"author", "user"})
	require.NoError(t, err)
	assert.Equal(t, []string{"user"}, cs.Attached)
	assert.Equal(t, []string{"editor"}, cs.Detached)

	grants, err := store.LoadGrants(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"author", "user"}, grants.Roles)

	// syncing the same set changes nothing
	cs, err = store.SyncSubjectRoles(ctx, "u1", []string{"user", "author"})
	require.NoError(t, err)
	assert.True(t, cs.Empty())
}

// TestMemoryStoreAttachDetach tests idempotent attach and detach with unknown slugs
func TestMemoryStoreAttachDetach(t *testing.T) {
	ctx := context.Background()
	store := seedMemoryStore(t)

	cs, err := store.AttachSubjectPermissions(ctx, "u1", []string{"edit-posts", "unknown", "edit-posts"})
	require.NoError(t, err)
	assert.Equal(t, []string{"edit-posts"}, cs.Attached)

	cs, err = store.AttachSubjectPermissions(ctx, "u1", []string{"edit-posts"})
	require.NoError(t, err)
	assert.True(t, cs.Empty(), "attaching twice is a no-op")

	cs, err = store.DetachSubjectPermissions(ctx, "u1", []string{"edit-posts", "view-posts"})
	require.NoError(t, err)
	assert.Equal(t, []string{"edit-posts"}, cs.Detached)

	grants, err := store.LoadGrants(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, grants.IsEmpty())
}

// TestMemoryStoreRolePermissions tests role grants and cascades
func TestMemoryStoreRolePermissions(t *testing.T) {
	ctx := context.Background()
	store := seedMemoryStore(t)

	_, err := store.AttachRolePermissions(ctx, "ghost", []string{"edit-posts"})
	assert.True(t, IsNotFound(err))

	cs, err := store.SyncRolePermissions(ctx, "editor", []string{"view-posts", "edit-posts"})
	require.NoError(t, err)
	assert.Equal(t, []string{"edit-posts", "view-posts"}, cs.Attached)

	slugs, err := store.RolePermissionSlugs(ctx, "editor")
	require.NoError(t, err)
	assert.Equal(t, []string{"edit-posts", "view-posts"}, slugs)

	_, err = store.AttachSubjectRoles(ctx, "u1", []string{"editor"})
	require.NoError(t, err)

	grants, err := store.LoadGrants(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"edit-posts", "view-posts"}, grants.RolePermissions["editor"])

	// deleting a permission removes it from every role
	require.NoError(t, store.DeletePermission(ctx, "edit-posts"))
	slugs, err = store.RolePermissionSlugs(ctx, "editor")
	require.NoError(t, err)
	assert.Equal(t, []string{"view-posts"}, slugs)

	// deleting a role removes it from every subject
	require.NoError(t, store.DeleteRole(ctx, "editor"))
	grants, err = store.LoadGrants(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, grants.Roles)
}

// TestMemoryStoreSubjectQueries tests subject lookups by role and permission
func TestMemoryStoreSubjectQueries(t *testing.T) {
	ctx := context.Background()
	store := seedMemoryStore(t)

	_, err := store.SyncRolePermissions(ctx, "editor", []string{"edit-posts"})
	require.NoError(t, err)
	_, err = store.AttachSubjectRoles(ctx, "alice", []string{"editor"})
	require.NoError(t, err)
	_, err = store.AttachSubjectRoles(ctx, "bob", []string{"author"})
	require.NoError(t, err)
	_, err = store.AttachSubjectPermissions(ctx, "carol", []string{"edit-posts"})
	require.NoError(t, err)

	subjects, err := store.SubjectsWithRole(ctx, []string{"editor", "author"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, subjects)

	subjects, err = store.SubjectsWithPermission(ctx, []string{"edit-posts"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "carol"}, subjects)

	subjects, err = store.RoleSubjects(ctx, "author")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, subjects)

	require.NoError(t, store.DeleteSubject(ctx, "alice"))
	subjects, err = store.SubjectsWithRole(ctx, []string{"editor"})
	require.NoError(t, err)
	assert.Empty(t, subjects)
}

// TestMemoryStoreAuditLog tests audit filtering and pagination
func TestMemoryStoreAuditLog(t *testing.T) {
	ctx := WithActorID(context.Background(), "admin-1")
	store := NewMemoryStore()

	for _, target := range []string{"u1", "u2", "u1"} {
		entry := newAuditEntry(ctx, AuditActionAttached, AuditTargetSubject, target)
		entry.Relation = "roles"
		entry.Slugs = []string{"editor"}
		require.NoError(t, store.LogAudit(ctx, entry))
	}
	require.NoError(t, store.LogAudit(ctx, newAuditEntry(ctx, AuditActionCreated, AuditTargetRole, "editor")))

	records, err := store.AuditLog(ctx, NewAuditLogFilter())
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, string(AuditActionCreated), records[0].Action, "newest first")
	assert.Equal(t, "admin-1", records[0].ActorID)
	assert.NotEmpty(t, records[0].ID)

	records, err = store.AuditLog(ctx, NewAuditLogFilter().WithSubject("u1"))
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = store.AuditLog(ctx, NewAuditLogFilter().WithRole("editor"))
	require.NoError(t, err)
	assert.Len(t, records, 1)

	records, err = store.AuditLog(ctx, NewAuditLogFilter().WithPagination(2, 3))
	require.NoError(t, err)
	assert.Len(t, records, 1)

	records, err = store.AuditLog(ctx, NewAuditLogFilter().WithPagination(2, 10))
	require.NoError(t, err)
	assert.Empty(t, records)
}
