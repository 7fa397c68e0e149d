package gatekit

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

var (
	_ Store      = (*DBStore)(nil)
	_ Transactor = (*DBStore)(nil)
)

// DBStore is the PostgreSQL Store. It integrates with the database through dbkit:
// every mutation runs in a dbkit transaction and errors are wrapped with the
// operation name so they keep dbkit's classification (IsDuplicate, IsNotFound).
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	store := gatekit.NewDBStore(db)
//	if _, err := store.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
type DBStore struct {
	db dbkit.IDB
}

// NewDBStore creates a store over a *dbkit.DBKit or a *dbkit.Tx.
func NewDBStore(db dbkit.IDB) *DBStore {
	return &DBStore{db: db}
}

// inTx runs fn in a transaction, or in a savepoint when the store already wraps one.
// Top-level transactions are retried on deadlocks and serialization failures.
func (s *DBStore) inTx(ctx context.Context, op string, fn func(tx dbkit.IDB) error) error {
	defer observeStore(op, time.Now())

	switch db := s.db.(type) {
	case *dbkit.Tx:
		return db.Transaction(ctx, func(tx *dbkit.Tx) error { return fn(tx) })
	case *dbkit.DBKit:
		return withRetry(ctx, txAttempts, func() error {
			return db.Transaction(ctx, func(tx *dbkit.Tx) error { return fn(tx) })
		})
	default:
		return NewError(ErrDatabaseError, "transaction support requires a dbkit.DBKit or dbkit.Tx instance")
	}
}

// WithinTx runs fn against a store bound to one transaction. Nested calls use savepoints.
func (s *DBStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	return s.inTx(ctx, "within_tx", func(tx dbkit.IDB) error {
		return fn(NewDBStore(tx))
	})
}

// lockKey serializes concurrent writers of the same key until the transaction ends.
func lockKey(ctx context.Context, tx dbkit.IDB, key string) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", key).Exec(ctx)
	return dbkit.WithErr1(err, "AdvisoryLock").Err()
}

// ============================================================================
// ROLES
// ============================================================================

func (s *DBStore) CreateRole(ctx context.Context, role *Role) error {
	defer observeStore("create_role", time.Now())

	now := time.Now().UTC()
	role.CreatedAt, role.UpdatedAt = now, now

	result, err := s.db.NewInsert().Model(role).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return NewError(ErrDuplicateSlug, "role already exists").WithRole(role.Slug)
		}
		return dbkit.WithErr(result, err, "CreateRole").Err()
	}
	return nil
}

func (s *DBStore) UpdateRole(ctx context.Context, role *Role) error {
	defer observeStore("update_role", time.Now())

	role.UpdatedAt = time.Now().UTC()
	q := s.db.NewUpdate().Model(role).
		Column("name", "slug", "description", "level", "is_default", "updated_at")
	if role.ID != 0 {
		q = q.WherePK()
	} else {
		q = q.Where("slug = ?", role.Slug)
	}

	result, err := q.Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return NewError(ErrDuplicateSlug, "role already exists").WithRole(role.Slug)
		}
		return dbkit.WithErr(result, err, "UpdateRole").Err()
	}
	return requireAffected(result, NewError(ErrNotFound, "role not found").WithRole(role.Slug))
}

// DeleteRole removes a role; its permission grants and subject assignments cascade.
func (s *DBStore) DeleteRole(ctx context.Context, slug string) error {
	defer observeStore("delete_role", time.Now())

	result, err := s.db.NewDelete().Model((*Role)(nil)).Where("slug = ?", slug).Exec(ctx)
	if err != nil {
		return dbkit.WithErr(result, err, "DeleteRole").Err()
	}
	return requireAffected(result, NewError(ErrNotFound, "role not found").WithRole(slug))
}

func (s *DBStore) FindRoleBySlug(ctx context.Context, slug string) (*Role, error) {
	var role Role
	err := dbkit.WithErr1(s.db.NewSelect().Model(&role).Where("slug = ?", slug).Limit(1).Scan(ctx), "FindRoleBySlug").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func (s *DBStore) ListRoles(ctx context.Context, filter RoleFilter) ([]Role, error) {
	var roles []Role
	q := s.db.NewSelect().Model(&roles)
	if filter.DefaultOnly {
		q = q.Where("is_default = ?", true)
	}
	switch {
	case filter.OrderByLevel && filter.Descending:
		q = q.Order("level DESC", "slug ASC")
	case filter.OrderByLevel:
		q = q.Order("level ASC", "slug ASC")
	default:
		q = q.Order("slug ASC")
	}

	if err := dbkit.WithErr1(q.Scan(ctx), "ListRoles").Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// ============================================================================
// PERMISSIONS
// ============================================================================

func (s *DBStore) CreatePermission(ctx context.Context, perm *Permission) error {
	defer observeStore("create_permission", time.Now())

	now := time.Now().UTC()
	perm.CreatedAt, perm.UpdatedAt = now, now

	result, err := s.db.NewInsert().Model(perm).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return NewError(ErrDuplicateSlug, "permission already exists").WithPermission(perm.Slug)
		}
		return dbkit.WithErr(result, err, "CreatePermission").Err()
	}
	return nil
}

func (s *DBStore) UpdatePermission(ctx context.Context, perm *Permission) error {
	defer observeStore("update_permission", time.Now())

	perm.UpdatedAt = time.Now().UTC()
	q := s.db.NewUpdate().Model(perm).
		Column("name", "slug", "description", "group", "updated_at")
	if perm.ID != 0 {
		q = q.WherePK()
	} else {
		q = q.Where("slug = ?", perm.Slug)
	}

	result, err := q.Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return NewError(ErrDuplicateSlug, "permission already exists").WithPermission(perm.Slug)
		}
		return dbkit.WithErr(result, err, "UpdatePermission").Err()
	}
	return requireAffected(result, NewError(ErrNotFound, "permission not found").WithPermission(perm.Slug))
}

// DeletePermission removes a permission; role grants and direct grants cascade.
func (s *DBStore) DeletePermission(ctx context.Context, slug string) error {
	defer observeStore("delete_permission", time.Now())

	result, err := s.db.NewDelete().Model((*Permission)(nil)).Where("slug = ?", slug).Exec(ctx)
	if err != nil {
		return dbkit.WithErr(result, err, "DeletePermission").Err()
	}
	return requireAffected(result, NewError(ErrNotFound, "permission not found").WithPermission(slug))
}

func (s *DBStore) FindPermissionBySlug(ctx context.Context, slug string) (*Permission, error) {
	var perm Permission
	err := dbkit.WithErr1(s.db.NewSelect().Model(&perm).Where("slug = ?", slug).Limit(1).Scan(ctx), "FindPermissionBySlug").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &perm, nil
}

func (s *DBStore) ListPermissions(ctx context.Context, group string) ([]Permission, error) {
	var perms []Permission
	q := s.db.NewSelect().Model(&perms)
	if group != "" {
		q = q.Where(`"group" = ?`, group)
	}
	q = q.Order("group ASC", "slug ASC")

	if err := dbkit.WithErr1(q.Scan(ctx), "ListPermissions").Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

func requireAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// ============================================================================
// ASSOCIATIONS
// ============================================================================

// association describes one pivot table: owner column, item column and the
// entity table whose slugs identify items.
type association struct {
	name      string
	table     string
	model     any
	ownerCol  string
	itemCol   string
	itemTable string
	rows      func(owner any, itemIDs []int64) any
}

var (
	rolePermissionAssoc = association{
		name:      "RolePermissions",
		table:     "role_permissions",
		model:     (*RolePermission)(nil),
		ownerCol:  "role_id",
		itemCol:   "permission_id",
		itemTable: "permissions",
		rows: func(owner any, ids []int64) any {
			now := time.Now().UTC()
			rows := make([]RolePermission, len(ids))
			for i, id := range ids {
				rows[i] = RolePermission{RoleID: owner.(int64), PermissionID: id, CreatedAt: now, UpdatedAt: now}
			}
			return &rows
		},
	}
	subjectRoleAssoc = association{
		name:      "SubjectRoles",
		table:     "subject_roles",
		model:     (*SubjectRole)(nil),
		ownerCol:  "subject_id",
		itemCol:   "role_id",
		itemTable: "roles",
		rows: func(owner any, ids []int64) any {
			now := time.Now().UTC()
			rows := make([]SubjectRole, len(ids))
			for i, id := range ids {
				rows[i] = SubjectRole{SubjectID: owner.(string), RoleID: id, CreatedAt: now, UpdatedAt: now}
			}
			return &rows
		},
	}
	subjectPermissionAssoc = association{
		name:      "SubjectPermissions",
		table:     "subject_permissions",
		model:     (*SubjectPermission)(nil),
		ownerCol:  "subject_id",
		itemCol:   "permission_id",
		itemTable: "permissions",
		rows: func(owner any, ids []int64) any {
			now := time.Now().UTC()
			rows := make([]SubjectPermission, len(ids))
			for i, id := range ids {
				rows[i] = SubjectPermission{SubjectID: owner.(string), PermissionID: id, CreatedAt: now, UpdatedAt: now}
			}
			return &rows
		},
	}
)

type slugRow struct {
	ID   int64  `bun:"id"`
	Slug string `bun:"slug"`
}

func toSlugMap(rows []slugRow) map[int64]string {
	m := make(map[int64]string, len(rows))
	for _, r := range rows {
		m[r.ID] = r.Slug
	}
	return m
}

// resolveSlugs maps known slugs to ids; unknown slugs are dropped.
func resolveSlugs(ctx context.Context, tx dbkit.IDB, table string, slugs []string) (map[int64]string, error) {
	slugs = uniqueSlugs(slugs)
	if len(slugs) == 0 {
		return map[int64]string{}, nil
	}
	var rows []slugRow
	err := dbkit.WithErr1(tx.NewRaw("SELECT id, slug FROM ? WHERE slug IN (?)", bun.Ident(table), bun.In(slugs)).Scan(ctx, &rows), "ResolveSlugs").Err()
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return toSlugMap(rows), nil
}

func (a association) current(ctx context.Context, tx dbkit.IDB, owner any) (map[int64]string, error) {
	var rows []slugRow
	err := dbkit.WithErr1(tx.NewRaw(
		"SELECT i.id, i.slug FROM ? AS x JOIN ? AS i ON i.id = x.? WHERE x.? = ?",
		bun.Ident(a.table), bun.Ident(a.itemTable), bun.Ident(a.itemCol), bun.Ident(a.ownerCol), owner,
	).Scan(ctx, &rows), "Current"+a.name).Err()
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return toSlugMap(rows), nil
}

// mutate applies an attach, detach or sync to the owner's association set inside tx.
func (a association) mutate(ctx context.Context, tx dbkit.IDB, owner any, slugs []string, mode syncMode) (ChangeSet, error) {
	want, err := resolveSlugs(ctx, tx, a.itemTable, slugs)
	if err != nil {
		return ChangeSet{}, err
	}
	have, err := a.current(ctx, tx, owner)
	if err != nil {
		return ChangeSet{}, err
	}

	var add, remove []int64
	var cs ChangeSet
	switch mode {
	case modeAttach, modeSync:
		for id, slug := range want {
			if _, ok := have[id]; !ok {
				add = append(add, id)
				cs.Attached = append(cs.Attached, slug)
			}
		}
	}
	switch mode {
	case modeDetach:
		for id, slug := range want {
			if _, ok := have[id]; ok {
				remove = append(remove, id)
				cs.Detached = append(cs.Detached, slug)
			}
		}
	case modeSync:
		for id, slug := range have {
			if _, ok := want[id]; !ok {
				remove = append(remove, id)
				cs.Detached = append(cs.Detached, slug)
			}
		}
	}

	if len(remove) > 0 {
		result, err := tx.NewDelete().Model(a.model).
			Where("? = ?", bun.Ident(a.ownerCol), owner).
			Where("? IN (?)", bun.Ident(a.itemCol), bun.In(remove)).
			Exec(ctx)
		if err := dbkit.WithErr(result, err, "Detach"+a.name).Err(); err != nil {
			return ChangeSet{}, err
		}
	}
	if len(add) > 0 {
		result, err := tx.NewInsert().Model(a.rows(owner, add)).
			On("CONFLICT DO NOTHING").
			Exec(ctx)
		if err := dbkit.WithErr(result, err, "Attach"+a.name).Err(); err != nil {
			return ChangeSet{}, err
		}
	}

	sort.Strings(cs.Attached)
	sort.Strings(cs.Detached)
	return cs, nil
}

func (s *DBStore) mutateRolePermissions(ctx context.Context, op, roleSlug string, permSlugs []string, mode syncMode) (ChangeSet, error) {
	var cs ChangeSet
	err := s.inTx(ctx, op, func(tx dbkit.IDB) error {
		if err := lockKey(ctx, tx, "gatekit:role:"+roleSlug); err != nil {
			return err
		}
		var roleID int64
		err := tx.NewSelect().Model((*Role)(nil)).Column("id").Where("slug = ?", roleSlug).Limit(1).Scan(ctx, &roleID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) || dbkit.IsNotFound(err) {
				return NewError(ErrNotFound, "role not found").WithRole(roleSlug)
			}
			return dbkit.WithErr1(err, "FindRoleID").Err()
		}
		cs, err = rolePermissionAssoc.mutate(ctx, tx, roleID, permSlugs, mode)
		return err
	})
	return cs, err
}

func (s *DBStore) AttachRolePermissions(ctx context.Context, roleSlug string, permSlugs []string) (ChangeSet, error) {
	return s.mutateRolePermissions(ctx, "attach_role_permissions", roleSlug, permSlugs, modeAttach)
}

func (s *DBStore) DetachRolePermissions(ctx context.Context, roleSlug string, permSlugs []string) (ChangeSet, error) {
	return s.mutateRolePermissions(ctx, "detach_role_permissions", roleSlug, permSlugs, modeDetach)
}

func (s *DBStore) SyncRolePermissions(ctx context.Context, roleSlug string, permSlugs []string) (ChangeSet, error) {
	return s.mutateRolePermissions(ctx, "sync_role_permissions", roleSlug, permSlugs, modeSync)
}

func (s *DBStore) mutateSubject(ctx context.Context, op string, a association, subjectID string, slugs []string, mode syncMode) (ChangeSet, error) {
	var cs ChangeSet
	err := s.inTx(ctx, op, func(tx dbkit.IDB) error {
		if err := lockKey(ctx, tx, "gatekit:subject:"+subjectID); err != nil {
			return err
		}
		var err error
		cs, err = a.mutate(ctx, tx, subjectID, slugs, mode)
		return err
	})
	return cs, err
}

func (s *DBStore) AttachSubjectRoles(ctx context.Context, subjectID string, roleSlugs []string) (ChangeSet, error) {
	return s.mutateSubject(ctx, "attach_subject_roles", subjectRoleAssoc, subjectID, roleSlugs, modeAttach)
}

func (s *DBStore) DetachSubjectRoles(ctx context.Context, subjectID string, roleSlugs []string) (ChangeSet, error) {
	return s.mutateSubject(ctx, "detach_subject_roles", subjectRoleAssoc, subjectID, roleSlugs, modeDetach)
}

func (s *DBStore) SyncSubjectRoles(ctx context.Context, subjectID string, roleSlugs []string) (ChangeSet, error) {
	return s.mutateSubject(ctx, "sync_subject_roles", subjectRoleAssoc, subjectID, roleSlugs, modeSync)
}

func (s *DBStore) AttachSubjectPermissions(ctx context.Context, subjectID string, permSlugs []string) (ChangeSet, error) {
	return s.mutateSubject(ctx, "attach_subject_permissions", subjectPermissionAssoc, subjectID, permSlugs, modeAttach)
}

func (s *DBStore) DetachSubjectPermissions(ctx context.Context, subjectID string, permSlugs []string) (ChangeSet, error) {
	return s.mutateSubject(ctx, "detach_subject_permissions", subjectPermissionAssoc, subjectID, permSlugs, modeDetach)
}

func (s *DBStore) SyncSubjectPermissions(ctx context.Context, subjectID string, permSlugs []string) (ChangeSet, error) {
	return s.mutateSubject(ctx, "sync_subject_permissions", subjectPermissionAssoc, subjectID, permSlugs, modeSync)
}

func (s *DBStore) DeleteSubject(ctx context.Context, subjectID string) error {
	return s.inTx(ctx, "delete_subject", func(tx dbkit.IDB) error {
		if err := lockKey(ctx, tx, "gatekit:subject:"+subjectID); err != nil {
			return err
		}
		result, err := tx.NewDelete().Model((*SubjectRole)(nil)).Where("subject_id = ?", subjectID).Exec(ctx)
		if err := dbkit.WithErr(result, err, "DeleteSubjectRoles").Err(); err != nil {
			return err
		}
		result, err = tx.NewDelete().Model((*SubjectPermission)(nil)).Where("subject_id = ?", subjectID).Exec(ctx)
		return dbkit.WithErr(result, err, "DeleteSubjectPermissions").Err()
	})
}

// ============================================================================
// READS
// ============================================================================

func (s *DBStore) scanStrings(ctx context.Context, op, query string, args ...any) ([]string, error) {
	var out []string
	err := dbkit.WithErr1(s.db.NewRaw(query, args...).Scan(ctx, &out), op).Err()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

func (s *DBStore) LoadGrants(ctx context.Context, subjectID string) (*Grants, error) {
	g := NewGrants(subjectID)

	roles, err := s.scanStrings(ctx, "LoadSubjectRoles",
		"SELECT r.slug FROM subject_roles sr JOIN roles r ON r.id = sr.role_id WHERE sr.subject_id = ? ORDER BY r.slug", subjectID)
	if err != nil {
		return nil, err
	}
	perms, err := s.scanStrings(ctx, "LoadSubjectPermissions",
		"SELECT p.slug FROM subject_permissions sp JOIN permissions p ON p.id = sp.permission_id WHERE sp.subject_id = ? ORDER BY p.slug", subjectID)
	if err != nil {
		return nil, err
	}
	g.Roles, g.Permissions = roles, perms
	if len(roles) == 0 {
		return g, nil
	}

	var rows []struct {
		Role       string `bun:"role"`
		Permission string `bun:"permission"`
	}
	err = dbkit.WithErr1(s.db.NewRaw(`
		SELECT r.slug AS role, p.slug AS permission
		FROM subject_roles sr
		JOIN roles r ON r.id = sr.role_id
		JOIN role_permissions rp ON rp.role_id = sr.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE sr.subject_id = ?
		ORDER BY r.slug, p.slug`, subjectID).Scan(ctx, &rows), "LoadRolePermissions").Err()
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	for _, role := range roles {
		g.RolePermissions[role] = nil
	}
	for _, row := range rows {
		g.RolePermissions[row.Role] = append(g.RolePermissions[row.Role], row.Permission)
	}
	return g, nil
}

func (s *DBStore) RolePermissionSlugs(ctx context.Context, roleSlug string) ([]string, error) {
	return s.scanStrings(ctx, "RolePermissionSlugs", `
		SELECT p.slug FROM role_permissions rp
		JOIN roles r ON r.id = rp.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE r.slug = ? ORDER BY p.slug`, roleSlug)
}

func (s *DBStore) SubjectsWithRole(ctx context.Context, roleSlugs []string) ([]string, error) {
	roleSlugs = uniqueSlugs(roleSlugs)
	if len(roleSlugs) == 0 {
		return nil, nil
	}
	return s.scanStrings(ctx, "SubjectsWithRole", `
		SELECT DISTINCT sr.subject_id FROM subject_roles sr
		JOIN roles r ON r.id = sr.role_id
		WHERE r.slug IN (?) ORDER BY sr.subject_id`, bun.In(roleSlugs))
}

func (s *DBStore) SubjectsWithPermission(ctx context.Context, permSlugs []string) ([]string, error) {
	permSlugs = uniqueSlugs(permSlugs)
	if len(permSlugs) == 0 {
		return nil, nil
	}
	return s.scanStrings(ctx, "SubjectsWithPermission", `
		SELECT sp.subject_id FROM subject_permissions sp
		JOIN permissions p ON p.id = sp.permission_id
		WHERE p.slug IN (?)
		UNION
		SELECT sr.subject_id FROM subject_roles sr
		JOIN role_permissions rp ON rp.role_id = sr.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE p.slug IN (?)
		ORDER BY 1`, bun.In(permSlugs), bun.In(permSlugs))
}

func (s *DBStore) RoleSubjects(ctx context.Context, roleSlug string) ([]string, error) {
	return s.SubjectsWithRole(ctx, []string{roleSlug})
}

// ============================================================================
// AUDIT LOG
// ============================================================================

func (s *DBStore) LogAudit(ctx context.Context, entry *AuditEntry) error {
	_, err := s.db.NewInsert().Model(entry.ToModel()).Exec(ctx)
	return dbkit.WithErr1(err, "LogAudit").Err()
}

// AuditLog retrieves audit log entries, newest first.
func (s *DBStore) AuditLog(ctx context.Context, filter AuditLogFilter) ([]AuditRecord, error) {
	var logs []AuditRecord
	q := s.db.NewSelect().Model(&logs)
	if filter.ActorID != "" {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if filter.TargetType != "" {
		q = q.Where("target_type = ?", filter.TargetType)
	}
	if filter.Target != "" {
		q = q.Where("target = ?", filter.Target)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.Relation != "" {
		q = q.Where("relation = ?", filter.Relation)
	}
	if !filter.Since.IsZero() {
		q = q.Where("timestamp >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("timestamp <= ?", filter.Until)
	}

	q = q.Limit(filter.limit())
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	q = q.Order("timestamp DESC")
	if err := dbkit.WithErr1(q.Scan(ctx), "AuditLog").Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

// ============================================================================
// HEALTH
// ============================================================================

// Ping checks connectivity and that the gatekit schema exists.
func (s *DBStore) Ping(ctx context.Context) error {
	var provisioned bool
	err := s.db.NewRaw("SELECT to_regclass('roles') IS NOT NULL AND to_regclass('permissions') IS NOT NULL").Scan(ctx, &provisioned)
	if err != nil {
		return NewError(ErrStoreUnavailable, dbkit.WithErr1(err, "Ping").Err().Error())
	}
	if !provisioned {
		return NewError(ErrStoreUnavailable, "gatekit tables are missing, run migrations")
	}
	return nil
}

// Health reports detailed database status when the store wraps a *dbkit.DBKit.
func (s *DBStore) Health(ctx context.Context) dbkit.HealthStatus {
	if db, ok := s.db.(*dbkit.DBKit); ok {
		return db.Health(ctx)
	}

	err := s.Ping(ctx)
	status := dbkit.HealthStatus{Healthy: err == nil}
	if err != nil {
		status.Error = err.Error()
	}
	return status
}

// PoolStats returns connection pool statistics, or zero values inside a transaction.
func (s *DBStore) PoolStats() dbkit.PoolStats {
	if db, ok := s.db.(*dbkit.DBKit); ok {
		return dbkit.PoolStatsFromSQL(db.Stats())
	}
	return dbkit.PoolStats{}
}
