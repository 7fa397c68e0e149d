package gatekit

import (
	"context"
	"sort"
	"time"

	"github.com/fernandezvara/dbkit"
)

// SettingsStore persists settings.
type SettingsStore interface {
	// FindSetting returns (nil, nil) when the setting does not exist.
	FindSetting(ctx context.Context, owner Owner, group, key string) (*Setting, error)
	// SaveSetting inserts the setting or replaces the existing one with the same owner, group and key.
	SaveSetting(ctx context.Context, s *Setting) error
	// DeleteSettings removes one key, a whole group when key is empty, or every setting
	// of the owner when group is empty too. It returns the number of rows removed.
	DeleteSettings(ctx context.Context, owner Owner, group, key string) (int, error)
	// ListSettings returns the owner's settings, optionally one group or only public ones.
	ListSettings(ctx context.Context, owner Owner, group string, publicOnly bool) ([]Setting, error)
}

var (
	_ SettingsStore = (*MemoryStore)(nil)
	_ SettingsStore = (*DBSettingsStore)(nil)
)

// ============================================================================
// MEMORY
// ============================================================================

func settingID(owner Owner, group, key string) string {
	return owner.Type + "\x00" + owner.ID + "\x00" + group + "\x00" + key
}

func (m *MemoryStore) FindSetting(_ context.Context, owner Owner, group, key string) (*Setting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.settings[settingID(owner, group, key)]
	if !ok {
		return nil, nil
	}
	found := *s
	return &found, nil
}

func (m *MemoryStore) SaveSetting(_ context.Context, s *Setting) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	id := settingID(s.Owner(), s.Group, s.Key)
	if current, ok := m.settings[id]; ok {
		s.ID = current.ID
		s.CreatedAt = current.CreatedAt
	} else {
		s.ID = m.id()
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	stored := *s
	m.settings[id] = &stored
	return nil
}

func (m *MemoryStore) settingMatches(s *Setting, owner Owner, group, key string) bool {
	if s.OwnerType != owner.Type || s.OwnerID != owner.ID {
		return false
	}
	if group != "" && s.Group != group {
		return false
	}
	return key == "" || s.Key == key
}

func (m *MemoryStore) DeleteSettings(_ context.Context, owner Owner, group, key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, s := range m.settings {
		if m.settingMatches(s, owner, group, key) {
			delete(m.settings, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) ListSettings(_ context.Context, owner Owner, group string, publicOnly bool) ([]Setting, error) {
	m.mu.RLock()
	var out []Setting
	for _, s := range m.settings {
		if !m.settingMatches(s, owner, group, "") || (publicOnly && !s.IsPublic) {
			continue
		}
		out = append(out, *s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

// ============================================================================
// POSTGRES
// ============================================================================

// DBSettingsStore is the PostgreSQL SettingsStore. Its table is created by Migrations.
type DBSettingsStore struct {
	db dbkit.IDB
}

// NewDBSettingsStore creates a settings store over a dbkit connection or transaction.
func NewDBSettingsStore(db dbkit.IDB) *DBSettingsStore {
	return &DBSettingsStore{db: db}
}

func (s *DBSettingsStore) FindSetting(ctx context.Context, owner Owner, group, key string) (*Setting, error) {
	var setting Setting
	err := dbkit.WithErr1(s.db.NewSelect().Model(&setting).
		Where("owner_type = ? AND owner_id = ?", owner.Type, owner.ID).
		Where(`"group" = ? AND key = ?`, group, key).
		Limit(1).Scan(ctx), "FindSetting").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &setting, nil
}

func (s *DBSettingsStore) SaveSetting(ctx context.Context, setting *Setting) error {
	defer observeStore("save_setting", time.Now())

	now := time.Now().UTC()
	setting.CreatedAt, setting.UpdatedAt = now, now

	result, err := s.db.NewInsert().Model(setting).
		On(`CONFLICT (owner_type, owner_id, "group", key) DO UPDATE`).
		Set("value = EXCLUDED.value").
		Set("type = EXCLUDED.type").
		Set("is_public = EXCLUDED.is_public").
		Set("metadata = EXCLUDED.metadata").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("id, created_at").
		Exec(ctx)
	return dbkit.WithErr(result, err, "SaveSetting").Err()
}

func (s *DBSettingsStore) DeleteSettings(ctx context.Context, owner Owner, group, key string) (int, error) {
	defer observeStore("delete_settings", time.Now())

	q := s.db.NewDelete().Model((*Setting)(nil)).
		Where("owner_type = ? AND owner_id = ?", owner.Type, owner.ID)
	if group != "" {
		q = q.Where(`"group" = ?`, group)
	}
	if key != "" {
		q = q.Where("key = ?", key)
	}

	result, err := q.Exec(ctx)
	if err := dbkit.WithErr(result, err, "DeleteSettings").Err(); err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

func (s *DBSettingsStore) ListSettings(ctx context.Context, owner Owner, group string, publicOnly bool) ([]Setting, error) {
	var settings []Setting
	q := s.db.NewSelect().Model(&settings).
		Where("owner_type = ? AND owner_id = ?", owner.Type, owner.ID)
	if group != "" {
		q = q.Where(`"group" = ?`, group)
	}
	if publicOnly {
		q = q.Where("is_public = ?", true)
	}
	q = q.Order("group ASC", "key ASC")

	if err := dbkit.WithErr1(q.Scan(ctx), "ListSettings").Err(); err != nil {
		return nil, err
	}
	return settings, nil
}
