package gatekit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// Migrations returns all database migrations required by DBStore and DBSettingsStore.
// Run them with db.Migrate(ctx, gatekit.Migrations()) or DBStore.Migrate.
func Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "gatekit-001",
			Description: "Create roles and permissions tables",
			SQL: `
                CREATE TABLE IF NOT EXISTS roles (
                    id BIGSERIAL PRIMARY KEY,
                    name TEXT NOT NULL,
                    slug VARCHAR(255) NOT NULL UNIQUE,
                    description TEXT,
                    level INTEGER NOT NULL DEFAULT 0,
                    is_default BOOLEAN NOT NULL DEFAULT FALSE,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                );
                CREATE INDEX IF NOT EXISTS idx_roles_level ON roles (level);
                CREATE INDEX IF NOT EXISTS idx_roles_is_default ON roles (is_default);

                CREATE TABLE IF NOT EXISTS permissions (
                    id BIGSERIAL PRIMARY KEY,
                    name TEXT NOT NULL,
                    slug VARCHAR(255) NOT NULL UNIQUE,
                    description TEXT,
                    "group" TEXT,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                );
                CREATE INDEX IF NOT EXISTS idx_permissions_group ON permissions ("group")`,
		},
		{
			ID:          "gatekit-002",
			Description: "Create association tables",
			SQL: `
                CREATE TABLE IF NOT EXISTS role_permissions (
                    role_id BIGINT NOT NULL REFERENCES roles (id) ON DELETE CASCADE,
                    permission_id BIGINT NOT NULL REFERENCES permissions (id) ON DELETE CASCADE,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    PRIMARY KEY (role_id, permission_id)
                );

                CREATE TABLE IF NOT EXISTS subject_roles (
                    subject_id TEXT NOT NULL,
                    role_id BIGINT NOT NULL REFERENCES roles (id) ON DELETE CASCADE,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    PRIMARY KEY (subject_id, role_id)
                );
                CREATE INDEX IF NOT EXISTS idx_subject_roles_role ON subject_roles (role_id);

                CREATE TABLE IF NOT EXISTS subject_permissions (
                    subject_id TEXT NOT NULL,
                    permission_id BIGINT NOT NULL REFERENCES permissions (id) ON DELETE CASCADE,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    PRIMARY KEY (subject_id, permission_id)
                );
                CREATE INDEX IF NOT EXISTS idx_subject_permissions_permission ON subject_permissions (permission_id)`,
		},
		{
			ID:          "gatekit-003",
			Description: "Create gatekit_audit_log table",
			SQL: `
                CREATE TABLE IF NOT EXISTS gatekit_audit_log (
                    id UUID PRIMARY KEY,
                    timestamp TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    actor_id TEXT NOT NULL,
                    action TEXT NOT NULL,
                    target_type TEXT NOT NULL,
                    target TEXT NOT NULL,
                    relation TEXT,
                    slugs TEXT[],
                    ip_address TEXT,
                    user_agent TEXT,
                    request_id TEXT
                );
                CREATE INDEX IF NOT EXISTS idx_gatekit_audit_target ON gatekit_audit_log (target_type, target);
                CREATE INDEX IF NOT EXISTS idx_gatekit_audit_timestamp ON gatekit_audit_log (timestamp DESC)`,
		},
		{
			ID:          "gatekit-004",
			Description: "Create settings table",
			SQL: `
                CREATE TABLE IF NOT EXISTS settings (
                    id BIGSERIAL PRIMARY KEY,
                    owner_type VARCHAR(255) NOT NULL DEFAULT '',
                    owner_id VARCHAR(255) NOT NULL DEFAULT '',
                    "group" VARCHAR(255) NOT NULL DEFAULT 'general',
                    key VARCHAR(255) NOT NULL,
                    value TEXT,
                    type VARCHAR(32) NOT NULL DEFAULT 'string',
                    is_public BOOLEAN NOT NULL DEFAULT FALSE,
                    metadata JSONB,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    UNIQUE (owner_type, owner_id, "group", key)
                );
                CREATE INDEX IF NOT EXISTS idx_settings_group_public ON settings ("group", is_public)`,
		},
	}
}

// Migrate applies any pending gatekit migrations. The store must wrap a *dbkit.DBKit.
// It returns the ids of the migrations that were applied.
func (s *DBStore) Migrate(ctx context.Context) ([]string, error) {
	db, ok := s.db.(*dbkit.DBKit)
	if !ok {
		return nil, NewError(ErrDatabaseError, "migrations require a dbkit.DBKit instance")
	}

	result, err := db.Migrate(ctx, Migrations())
	if err != nil {
		return nil, err
	}

	applied := make([]string, 0, len(result.Applied))
	for _, m := range result.Applied {
		applied = append(applied, m.ID)
	}
	return applied, nil
}
