package gatekit

import (
	"slices"
	"sort"
	"sync"
)

// Authorizable is anything that can answer role and permission questions.
// Checker implements it; templates, gates and guards accept it.
type Authorizable interface {
	HasRole(slugs ...string) bool
	HasPermission(slugs ...string) bool
}

var _ Authorizable = (*Checker)(nil)

// Checker provides role and permission checking for a single subject.
// It evaluates a preloaded Grants snapshot and never touches the store, so it is
// cheap to call repeatedly while handling one request.
type Checker struct {
	grants *Grants

	superOnce sync.Once
	super     bool
}

// NewChecker creates a new Checker over a grants snapshot.
func NewChecker(grants *Grants) *Checker {
	if grants == nil {
		grants = NewGrants("")
	}
	return &Checker{grants: grants}
}

// SubjectID returns the subject this checker is for.
func (c *Checker) SubjectID() string {
	return c.grants.SubjectID
}

// Grants returns the underlying snapshot.
func (c *Checker) Grants() *Grants {
	return c.grants
}

// HasRole checks if the subject holds any of the given roles.
// With no slugs it returns false.
//
// Example:
//
//	if checker.HasRole("admin", "editor") {
//	    // admin OR editor
//	}
func (c *Checker) HasRole(slugs ...string) bool {
	for _, slug := range slugs {
		if c.grants.HasRole(slug) {
			return true
		}
	}
	return false
}

// HasAnyRole is an alias of HasRole.
func (c *Checker) HasAnyRole(slugs ...string) bool {
	return c.HasRole(slugs...)
}

// HasAllRoles checks if the subject holds every one of the given roles.
// With no slugs it returns true.
func (c *Checker) HasAllRoles(slugs ...string) bool {
	for _, slug := range slugs {
		if !c.grants.HasRole(slug) {
			return false
		}
	}
	return true
}

// HasPermission checks if the subject has any of the given permissions.
//
// Super-admins pass unconditionally, even for slugs that were never defined
// and for an empty list. Otherwise a single slug matches when it is granted
// directly, when "*" is granted directly, or when a held role grants it.
//
// Example:
//
//	if checker.HasPermission("edit-posts") {
//	    // show the edit button
//	}
func (c *Checker) HasPermission(slugs ...string) bool {
	if c.IsSuperAdmin() {
		return true
	}
	if len(slugs) > 1 {
		for _, slug := range slugs {
			if c.HasPermission(slug) {
				return true
			}
		}
		return false
	}
	if len(slugs) == 0 {
		return false
	}
	return c.hasSinglePermission(slugs[0])
}

func (c *Checker) hasSinglePermission(slug string) bool {
	if c.grants.HasDirectPermission(slug) || c.grants.HasDirectPermission(WildcardPermission) {
		return true
	}
	for _, role := range c.grants.Roles {
		if c.grants.RoleHasPermission(role, slug) {
			return true
		}
	}
	return false
}

// HasAnyPermission is an alias of HasPermission.
func (c *Checker) HasAnyPermission(slugs ...string) bool {
	return c.HasPermission(slugs...)
}

// HasAllPermissions checks if the subject has every one of the given permissions.
// With no slugs it returns true.
func (c *Checker) HasAllPermissions(slugs ...string) bool {
	for _, slug := range slugs {
		if !c.HasPermission(slug) {
			return false
		}
	}
	return true
}

// IsSuperAdmin reports whether the subject bypasses all permission checks: it holds
// the super-admin role, holds "*" directly, or holds a role that grants "*".
// The result is computed once per Checker.
func (c *Checker) IsSuperAdmin() bool {
	c.superOnce.Do(func() {
		c.super = c.computeSuperAdmin()
	})
	return c.super
}

func (c *Checker) computeSuperAdmin() bool {
	if c.grants.HasRole(SuperAdminRole) || c.grants.HasDirectPermission(WildcardPermission) {
		return true
	}
	for _, role := range c.grants.Roles {
		if c.grants.RoleHasPermission(role, WildcardPermission) {
			return true
		}
	}
	return false
}

// AllPermissions returns the union of direct and role-derived permission slugs,
// deduplicated and sorted.
func (c *Checker) AllPermissions() []string {
	set := make(map[string]struct{}, len(c.grants.Permissions))
	for _, p := range c.grants.Permissions {
		set[p] = struct{}{}
	}
	for _, role := range c.grants.Roles {
		for _, p := range c.grants.RolePermissions[role] {
			set[p] = struct{}{}
		}
	}

	result := make([]string, 0, len(set))
	for p := range set {
		result = append(result, p)
	}
	sort.Strings(result)
	return result
}

// Roles returns the role slugs the subject holds.
func (c *Checker) Roles() []string {
	return slices.Clone(c.grants.Roles)
}

// IsEmpty returns true if the subject has no roles and no direct permissions.
func (c *Checker) IsEmpty() bool {
	return c.grants.IsEmpty()
}
