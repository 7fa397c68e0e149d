package gatekit

import "slices"

// Grants is a point-in-time snapshot of everything a subject holds: its roles,
// its direct permissions and the permissions each held role grants.
// It is the unit stored in the grant cache.
type Grants struct {
	SubjectID       string              `json:"subject_id"`
	Roles           []string            `json:"roles"`
	Permissions     []string            `json:"permissions"`
	RolePermissions map[string][]string `json:"role_permissions"`
}

// NewGrants creates an empty snapshot for a subject.
func NewGrants(subjectID string) *Grants {
	return &Grants{
		SubjectID:       subjectID,
		RolePermissions: make(map[string][]string),
	}
}

// HasRole reports whether the snapshot holds the role slug.
func (g *Grants) HasRole(slug string) bool {
	return slices.Contains(g.Roles, slug)
}

// HasDirectPermission reports whether the permission slug is granted directly.
func (g *Grants) HasDirectPermission(slug string) bool {
	return slices.Contains(g.Permissions, slug)
}

// RoleHasPermission reports whether a held role is associated with the permission slug.
// It is a plain association lookup: a role granting "*" does not match other slugs here.
func (g *Grants) RoleHasPermission(role, slug string) bool {
	return slices.Contains(g.RolePermissions[role], slug)
}

// IsEmpty returns true if the subject holds nothing.
func (g *Grants) IsEmpty() bool {
	return len(g.Roles) == 0 && len(g.Permissions) == 0
}
