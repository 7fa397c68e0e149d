package gatekit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBlueprintDeclarations tests fluent declarations and replacement
func TestBlueprintDeclarations(t *testing.T) {
	bp := NewBlueprint()
	bp.Permission("view-posts", "View Posts").Group("posts").
		Permission("edit-posts", "Edit Posts").Group("posts").Describe("Can edit").
		Role("editor", "Editor").Level(25).Grants("view-posts", "edit-posts", "view-posts").
		Role("user", "User").Default()

	// redeclaring replaces
	bp.Permission("view-posts", "Read Posts").Group("content")

	perms := bp.Permissions()
	require.Len(t, perms, 2)
	assert.Equal(t, "Read Posts", perms[0].Name)
	assert.Equal(t, "content", perms[0].Group)
	assert.Equal(t, "Can edit", perms[1].Description)

	roles := bp.Roles()
	require.Len(t, roles, 2)
	assert.Equal(t, 25, roles[0].Level)
	assert.True(t, roles[1].IsDefault)

	assert.Equal(t, []string{"view-posts", "edit-posts"}, bp.RolePermissions("editor"))
	assert.Nil(t, bp.RolePermissions("ghost"))
	assert.NoError(t, bp.Validate())
}

// TestBlueprintValidate tests that bad declarations are rejected before touching the store
func TestBlueprintValidate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())

	bp := NewBlueprint()
	bp.Permission("view-posts", "View Posts")
	bp.Role("bad role", "Bad")

	err := bp.Apply(ctx, svc)
	assert.ErrorIs(t, err, ErrInvalidSlug)

	perms, err := svc.ListPermissions(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, perms, "nothing applied")
}

// TestBlueprintApplyIsIdempotent tests applying twice and converging role grants
func TestBlueprintApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	require.NoError(t, DefaultBlueprint().Apply(ctx, svc))

	roles, err := svc.ListRoles(ctx, RoleFilter{OrderByLevel: true, Descending: true})
	require.NoError(t, err)
	assert.Equal(t, []string{SuperAdminRole, "admin", "editor", "author", "user"}, roleSlugs(roles))

	perms, err := svc.ListPermissions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, perms, 13)

	admin, err := svc.RolePermissions(ctx, "admin")
	require.NoError(t, err)
	assert.Len(t, admin, 11)
	assert.NotContains(t, admin, "delete-users")

	// drift is repaired on the next apply
	_, err = svc.GivePermissionToRole(ctx, "author", "delete-posts")
	require.NoError(t, err)
	require.NoError(t, DefaultBlueprint().Apply(ctx, svc))
	assert.False(t, svc.RoleHasPermission(ctx, "author", "delete-posts"))
}

// TestBlueprintKeepsExistingDefinitions tests that existing rows are not overwritten
func TestBlueprintKeepsExistingDefinitions(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())

	_, err := svc.CreateRole(ctx, RoleInput{Name: "Custom Editor", Slug: "editor", Level: 99})
	require.NoError(t, err)
	require.NoError(t, DefaultBlueprint().Apply(ctx, svc))

	editor, err := svc.FindRoleBySlugOrFail(ctx, "editor")
	require.NoError(t, err)
	assert.Equal(t, "Custom Editor", editor.Name)
	assert.Equal(t, 99, editor.Level)
	assert.True(t, svc.RoleHasPermission(ctx, "editor", "publish-posts"))
}
