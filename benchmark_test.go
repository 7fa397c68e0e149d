package gatekit

import (
	"context"
	"fmt"
	"testing"
)

func benchmarkGrants() *Grants {
	g := NewGrants("bench")
	for i := 0; i < 10; i++ {
		role := fmt.Sprintf("role-%d", i)
		g.Roles = append(g.Roles, role)
		for j := 0; j < 20; j++ {
			g.RolePermissions[role] = append(g.RolePermissions[role], fmt.Sprintf("perm-%d-%d", i, j))
		}
	}
	return g
}

func BenchmarkCheckerHasPermission(b *testing.B) {
	checker := NewChecker(benchmarkGrants())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		checker.HasPermission("perm-9-19")
	}
}

func BenchmarkCheckerHasPermissionMiss(b *testing.B) {
	checker := NewChecker(benchmarkGrants())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		checker.HasPermission("not-granted")
	}
}

func BenchmarkCheckerAllPermissions(b *testing.B) {
	checker := NewChecker(benchmarkGrants())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		checker.AllPermissions()
	}
}

func BenchmarkServiceHasPermission(b *testing.B) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	if err := DefaultBlueprint().Apply(ctx, svc); err != nil {
		b.Fatal(err)
	}
	if _, err := svc.AssignRole(ctx, "bob", "editor"); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		svc.HasPermission(ctx, "bob", "publish-posts")
	}
}
