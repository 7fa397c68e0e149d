package gatekit

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store. It implements the same semantics as DBStore
// (cascading deletes, idempotent attach, set-difference sync) and is meant for
// tests, examples and single-process deployments.
type MemoryStore struct {
	mu sync.RWMutex

	nextID      int64
	roles       map[int64]*Role
	roleSlugs   map[string]int64
	permissions map[int64]*Permission
	permSlugs   map[string]int64

	// association id sets, the value is the row creation time
	rolePerms    map[int64]map[int64]time.Time
	subjectRoles map[string]map[int64]time.Time
	subjectPerms map[string]map[int64]time.Time

	audit    []AuditRecord
	settings map[string]*Setting
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		roles:        make(map[int64]*Role),
		roleSlugs:    make(map[string]int64),
		permissions:  make(map[int64]*Permission),
		permSlugs:    make(map[string]int64),
		rolePerms:    make(map[int64]map[int64]time.Time),
		subjectRoles: make(map[string]map[int64]time.Time),
		subjectPerms: make(map[string]map[int64]time.Time),
		settings:     make(map[string]*Setting),
	}
}

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

// ============================================================================
// ROLES
// ============================================================================

func (m *MemoryStore) CreateRole(_ context.Context, role *Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.roleSlugs[role.Slug]; ok {
		return NewError(ErrDuplicateSlug, "role already exists").WithRole(role.Slug)
	}

	now := time.Now().UTC()
	role.ID = m.id()
	role.CreatedAt, role.UpdatedAt = now, now

	stored := *role
	m.roles[role.ID] = &stored
	m.roleSlugs[role.Slug] = role.ID
	return nil
}

func (m *MemoryStore) UpdateRole(_ context.Context, role *Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := role.ID
	if id == 0 {
		id = m.roleSlugs[role.Slug]
	}
	current, ok := m.roles[id]
	if !ok {
		return NewError(ErrNotFound, "role not found").WithRole(role.Slug)
	}
	if other, taken := m.roleSlugs[role.Slug]; taken && other != id {
		return NewError(ErrDuplicateSlug, "role already exists").WithRole(role.Slug)
	}

	delete(m.roleSlugs, current.Slug)
	role.ID = id
	role.CreatedAt = current.CreatedAt
	role.UpdatedAt = time.Now().UTC()

	stored := *role
	m.roles[id] = &stored
	m.roleSlugs[role.Slug] = id
	return nil
}

func (m *MemoryStore) DeleteRole(_ context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.roleSlugs[slug]
	if !ok {
		return NewError(ErrNotFound, "role not found").WithRole(slug)
	}
	delete(m.roles, id)
	delete(m.roleSlugs, slug)
	delete(m.rolePerms, id)
	for _, held := range m.subjectRoles {
		delete(held, id)
	}
	return nil
}

func (m *MemoryStore) FindRoleBySlug(_ context.Context, slug string) (*Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.roleSlugs[slug]
	if !ok {
		return nil, nil
	}
	role := *m.roles[id]
	return &role, nil
}

func (m *MemoryStore) ListRoles(_ context.Context, filter RoleFilter) ([]Role, error) {
	m.mu.RLock()
	roles := make([]Role, 0, len(m.roles))
	for _, r := range m.roles {
		if filter.DefaultOnly && !r.IsDefault {
			continue
		}
		roles = append(roles, *r)
	}
	m.mu.RUnlock()

	sort.Slice(roles, func(i, j int) bool {
		if filter.OrderByLevel && roles[i].Level != roles[j].Level {
			if filter.Descending {
				return roles[i].Level > roles[j].Level
			}
			return roles[i].Level < roles[j].Level
		}
		return roles[i].Slug < roles[j].Slug
	})
	return roles, nil
}

// ============================================================================
// PERMISSIONS
// ============================================================================

func (m *MemoryStore) CreatePermission(_ context.Context, perm *Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.permSlugs[perm.Slug]; ok {
		return NewError(ErrDuplicateSlug, "permission already exists").WithPermission(perm.Slug)
	}

	now := time.Now().UTC()
	perm.ID = m.id()
	perm.CreatedAt, perm.UpdatedAt = now, now

	stored := *perm
	m.permissions[perm.ID] = &stored
	m.permSlugs[perm.Slug] = perm.ID
	return nil
}

func (m *MemoryStore) UpdatePermission(_ context.Context, perm *Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := perm.ID
	if id == 0 {
		id = m.permSlugs[perm.Slug]
	}
	current, ok := m.permissions[id]
	if !ok {
		return NewError(ErrNotFound, "permission not found").WithPermission(perm.Slug)
	}
	if other, taken := m.permSlugs[perm.Slug]; taken && other != id {
		return NewError(ErrDuplicateSlug, "permission already exists").WithPermission(perm.Slug)
	}

	delete(m.permSlugs, current.Slug)
	perm.ID = id
	perm.CreatedAt = current.CreatedAt
	perm.UpdatedAt = time.Now().UTC()

	stored := *perm
	m.permissions[id] = &stored
	m.permSlugs[perm.Slug] = id
	return nil
}

func (m *MemoryStore) DeletePermission(_ context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.permSlugs[slug]
	if !ok {
		return NewError(ErrNotFound, "permission not found").WithPermission(slug)
	}
	delete(m.permissions, id)
	delete(m.permSlugs, slug)
	for _, granted := range m.rolePerms {
		delete(granted, id)
	}
	for _, granted := range m.subjectPerms {
		delete(granted, id)
	}
	return nil
}

func (m *MemoryStore) FindPermissionBySlug(_ context.Context, slug string) (*Permission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.permSlugs[slug]
	if !ok {
		return nil, nil
	}
	perm := *m.permissions[id]
	return &perm, nil
}

func (m *MemoryStore) ListPermissions(_ context.Context, group string) ([]Permission, error) {
	m.mu.RLock()
	perms := make([]Permission, 0, len(m.permissions))
	for _, p := range m.permissions {
		if group != "" && p.Group != group {
			continue
		}
		perms = append(perms, *p)
	}
	m.mu.RUnlock()

	sort.Slice(perms, func(i, j int) bool {
		if perms[i].Group != perms[j].Group {
			return perms[i].Group < perms[j].Group
		}
		return perms[i].Slug < perms[j].Slug
	})
	return perms, nil
}

// ============================================================================
// ASSOCIATIONS
// ============================================================================

// resolve maps slugs to ids through index, dropping unknown slugs.
func resolve(index map[string]int64, slugs []string) map[int64]string {
	ids := make(map[int64]string, len(slugs))
	for _, s := range uniqueSlugs(slugs) {
		if id, ok := index[s]; ok {
			ids[id] = s
		}
	}
	return ids
}

type syncMode int

const (
	modeAttach syncMode = iota
	modeDetach
	modeSync
)

// apply mutates one association set and reports the slugs that changed.
// slugOf maps ids already in the set back to slugs for detach reporting.
func apply(set map[int64]time.Time, want map[int64]string, mode syncMode, slugOf func(int64) string) ChangeSet {
	var cs ChangeSet
	now := time.Now().UTC()

	switch mode {
	case modeAttach:
		for id, slug := range want {
			if _, ok := set[id]; !ok {
				set[id] = now
				cs.Attached = append(cs.Attached, slug)
			}
		}
	case modeDetach:
		for id, slug := range want {
			if _, ok := set[id]; ok {
				delete(set, id)
				cs.Detached = append(cs.Detached, slug)
			}
		}
	case modeSync:
		for id := range set {
			if _, keep := want[id]; !keep {
				delete(set, id)
				cs.Detached = append(cs.Detached, slugOf(id))
			}
		}
		for id, slug := range want {
			if _, ok := set[id]; !ok {
				set[id] = now
				cs.Attached = append(cs.Attached, slug)
			}
		}
	}

	sort.Strings(cs.Attached)
	sort.Strings(cs.Detached)
	return cs
}

func (m *MemoryStore) roleSlug(id int64) string {
	if r, ok := m.roles[id]; ok {
		return r.Slug
	}
	return ""
}

func (m *MemoryStore) permSlug(id int64) string {
	if p, ok := m.permissions[id]; ok {
		return p.Slug
	}
	return ""
}

func (m *MemoryStore) mutateRolePermissions(roleSlug string, permSlugs []string, mode syncMode) (ChangeSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	roleID, ok := m.roleSlugs[roleSlug]
	if !ok {
		return ChangeSet{}, NewError(ErrNotFound, "role not found").WithRole(roleSlug)
	}
	set := m.rolePerms[roleID]
	if set == nil {
		set = make(map[int64]time.Time)
		m.rolePerms[roleID] = set
	}
	return apply(set, resolve(m.permSlugs, permSlugs), mode, m.permSlug), nil
}

func (m *MemoryStore) AttachRolePermissions(_ context.Context, roleSlug string, permSlugs []string) (ChangeSet, error) {
	return m.mutateRolePermissions(roleSlug, permSlugs, modeAttach)
}

func (m *MemoryStore) DetachRolePermissions(_ context.Context, roleSlug string, permSlugs []string) (ChangeSet, error) {
	return m.mutateRolePermissions(roleSlug, permSlugs, modeDetach)
}

func (m *MemoryStore) SyncRolePermissions(_ context.Context, roleSlug string, permSlugs []string) (ChangeSet, error) {
	return m.mutateRolePermissions(roleSlug, permSlugs, modeSync)
}

func (m *MemoryStore) mutateSubject(sets map[string]map[int64]time.Time, index map[string]int64, slugOf func(int64) string, subjectID string, slugs []string, mode syncMode) ChangeSet {
	set := sets[subjectID]
	if set == nil {
		set = make(map[int64]time.Time)
		sets[subjectID] = set
	}
	cs := apply(set, resolve(index, slugs), mode, slugOf)
	if len(set) == 0 {
		delete(sets, subjectID)
	}
	return cs
}

func (m *MemoryStore) AttachSubjectRoles(_ context.Context, subjectID string, roleSlugs []string) (ChangeSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutateSubject(m.subjectRoles, m.roleSlugs, m.roleSlug, subjectID, roleSlugs, modeAttach), nil
}

func (m *MemoryStore) DetachSubjectRoles(_ context.Context, subjectID string, roleSlugs []string) (ChangeSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutateSubject(m.subjectRoles, m.roleSlugs, m.roleSlug, subjectID, roleSlugs, modeDetach), nil
}

func (m *MemoryStore) SyncSubjectRoles(_ context.Context, subjectID string, roleSlugs []string) (ChangeSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutateSubject(m.subjectRoles, m.roleSlugs, m.roleSlug, subjectID, roleSlugs, modeSync), nil
}

func (m *MemoryStore) AttachSubjectPermissions(_ context.Context, subjectID string, permSlugs []string) (ChangeSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutateSubject(m.subjectPerms, m.permSlugs, m.permSlug, subjectID, permSlugs, modeAttach), nil
}

func (m *MemoryStore) DetachSubjectPermissions(_ context.Context, subjectID string, permSlugs []string) (ChangeSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutateSubject(m.subjectPerms, m.permSlugs, m.permSlug, subjectID, permSlugs, modeDetach), nil
}

func (m *MemoryStore) SyncSubjectPermissions(_ context.Context, subjectID string, permSlugs []string) (ChangeSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutateSubject(m.subjectPerms, m.permSlugs, m.permSlug, subjectID, permSlugs, modeSync), nil
}

func (m *MemoryStore) DeleteSubject(_ context.Context, subjectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subjectRoles, subjectID)
	delete(m.subjectPerms, subjectID)
	return nil
}

// ============================================================================
// READS
// ============================================================================

func (m *MemoryStore) slugsOf(set map[int64]time.Time, slugOf func(int64) string) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, slugOf(id))
	}
	sort.Strings(out)
	return out
}

func (m *MemoryStore) LoadGrants(_ context.Context, subjectID string) (*Grants, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g := NewGrants(subjectID)
	g.Roles = m.slugsOf(m.subjectRoles[subjectID], m.roleSlug)
	g.Permissions = m.slugsOf(m.subjectPerms[subjectID], m.permSlug)
	for id := range m.subjectRoles[subjectID] {
		g.RolePermissions[m.roleSlug(id)] = m.slugsOf(m.rolePerms[id], m.permSlug)
	}
	return g, nil
}

func (m *MemoryStore) RolePermissionSlugs(_ context.Context, roleSlug string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.roleSlugs[roleSlug]
	if !ok {
		return nil, nil
	}
	return m.slugsOf(m.rolePerms[id], m.permSlug), nil
}

func (m *MemoryStore) SubjectsWithRole(_ context.Context, roleSlugs []string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := resolve(m.roleSlugs, roleSlugs)
	var subjects []string
	for subject, held := range m.subjectRoles {
		for id := range ids {
			if _, ok := held[id]; ok {
				subjects = append(subjects, subject)
				break
			}
		}
	}
	sort.Strings(subjects)
	return subjects, nil
}

func (m *MemoryStore) SubjectsWithPermission(_ context.Context, permSlugs []string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	permIDs := resolve(m.permSlugs, permSlugs)
	found := make(map[string]struct{})

	for subject, granted := range m.subjectPerms {
		for id := range permIDs {
			if _, ok := granted[id]; ok {
				found[subject] = struct{}{}
				break
			}
		}
	}

	// roles granting any of the permissions
	var roleIDs []int64
	for roleID, granted := range m.rolePerms {
		for id := range permIDs {
			if _, ok := granted[id]; ok {
				roleIDs = append(roleIDs, roleID)
				break
			}
		}
	}
	for subject, held := range m.subjectRoles {
		for _, roleID := range roleIDs {
			if _, ok := held[roleID]; ok {
				found[subject] = struct{}{}
				break
			}
		}
	}

	subjects := make([]string, 0, len(found))
	for s := range found {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)
	return subjects, nil
}

func (m *MemoryStore) RoleSubjects(ctx context.Context, roleSlug string) ([]string, error) {
	return m.SubjectsWithRole(ctx, []string{roleSlug})
}

// ============================================================================
// AUDIT & HEALTH
// ============================================================================

func (m *MemoryStore) LogAudit(_ context.Context, entry *AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, *entry.ToModel())
	return nil
}

func (m *MemoryStore) AuditLog(_ context.Context, filter AuditLogFilter) ([]AuditRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []AuditRecord
	// newest first
	for i := len(m.audit) - 1; i >= 0; i-- {
		if filter.matches(&m.audit[i]) {
			matched = append(matched, m.audit[i])
		}
	}

	if filter.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[filter.Offset:]
	if limit := filter.limit(); len(matched) > limit {
		matched = matched[:limit]
	}
	return slices.Clone(matched), nil
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}
