package gatekit

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
)

// DefaultSettingsGroup is used when a settings call passes an empty group.
const DefaultSettingsGroup = "general"

// SettingType records how a stored value is cast back when read.
type SettingType string

const (
	SettingString  SettingType = "string"
	SettingBoolean SettingType = "boolean"
	SettingInteger SettingType = "integer"
	SettingFloat   SettingType = "float"
	SettingArray   SettingType = "array"
	SettingJSON    SettingType = "json"
)

// Owner scopes settings to one entity. The zero Owner means app-wide.
type Owner struct {
	Type string
	ID   string
}

// IsApp reports whether the owner is the app-wide scope.
func (o Owner) IsApp() bool {
	return o.Type == "" && o.ID == ""
}

// validate rejects owners with only one of Type and ID set.
func (o Owner) validate() error {
	if (o.Type == "") != (o.ID == "") {
		return NewError(ErrValidation, fmt.Sprintf("setting owner needs both type and id, got %q/%q", o.Type, o.ID))
	}
	return nil
}

// Setting is one typed key/value pair. Value holds the JSON encoding of the value.
type Setting struct {
	bun.BaseModel `bun:"table:settings,alias:st"`

	ID        int64          `bun:"id,pk,autoincrement" json:"id"`
	OwnerType string         `bun:"owner_type,notnull" json:"owner_type,omitempty"`
	OwnerID   string         `bun:"owner_id,notnull" json:"owner_id,omitempty"`
	Group     string         `bun:"group,notnull" json:"group"`
	Key       string         `bun:"key,notnull" json:"key"`
	Value     string         `bun:"value" json:"value"`
	Type      SettingType    `bun:"type,notnull" json:"type"`
	IsPublic  bool           `bun:"is_public,notnull" json:"is_public"`
	Metadata  map[string]any `bun:"metadata,type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time      `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time      `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// Owner returns the setting's owner.
func (s *Setting) Owner() Owner {
	return Owner{Type: s.OwnerType, ID: s.OwnerID}
}

// CacheKey is setting:app:{group}:{key} for app-wide settings and
// setting:{type}:{id}:{group}:{key} for owned ones.
func (s *Setting) CacheKey() string {
	return settingCacheKey(s.Owner(), s.Group, s.Key)
}

func settingCacheKey(owner Owner, group, key string) string {
	if owner.IsApp() {
		return fmt.Sprintf("setting:app:%s:%s", group, key)
	}
	return fmt.Sprintf("setting:%s:%s:%s:%s", owner.Type, owner.ID, group, key)
}

// SetValue encodes v and infers its type: booleans, integers and floats keep their
// kind, slices, arrays and maps become "array", anything else is a string.
func (s *Setting) SetValue(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return NewError(ErrValidation, "setting value is not encodable: "+err.Error())
	}
	s.Type = settingTypeOf(v)
	s.Value = string(raw)
	return nil
}

func settingTypeOf(v any) SettingType {
	if v == nil {
		return SettingString
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Bool:
		return SettingBoolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return SettingInteger
	case reflect.Float32, reflect.Float64:
		return SettingFloat
	case reflect.Slice, reflect.Array, reflect.Map:
		return SettingArray
	default:
		return SettingString
	}
}

// CastedValue decodes Value according to Type. Integers come back as int64,
// floats as float64, arrays as []any or map[string]any.
func (s *Setting) CastedValue() any {
	if s.Value == "" {
		return nil
	}
	var decoded any
	if err := json.Unmarshal([]byte(s.Value), &decoded); err != nil {
		// legacy rows may hold a bare string
		decoded = s.Value
	}

	switch s.Type {
	case SettingBoolean:
		return truthy(decoded)
	case SettingInteger:
		var n int64
		if err := json.Unmarshal([]byte(s.Value), &n); err == nil {
			return n
		}
		f, _ := toFloat(decoded)
		return int64(f)
	case SettingFloat:
		n, _ := toFloat(decoded)
		return n
	case SettingArray, SettingJSON:
		return decoded
	default:
		if str, ok := decoded.(string); ok {
			return str
		}
		return decoded
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case int64:
		return t != 0
	case string:
		return t != "" && t != "0" && t != "false"
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		var f float64
		if _, err := fmt.Sscan(t, &f); err == nil {
			return f, true
		}
	}
	return 0, false
}

// ============================================================================
// MANAGER
// ============================================================================

// SettingsManager reads and writes typed settings with read-through caching.
// Reads go through Remember under the setting's cache key; every write or delete
// forgets the affected keys right after the store call.
//
// Example:
//
//	settings := gatekit.NewSettingsManager(store, gatekit.WithSettingsCache(cache))
//	_, _ = settings.Set(ctx, "mail", "from", "noreply@example.com")
//	from, _ := settings.GetString(ctx, "mail", "from", "")
//
//	team := settings.ForOwner("team", "42")
//	_, _ = team.Toggle(ctx, "", "beta")
type SettingsManager struct {
	store  SettingsStore
	cache  Cache
	ttl    time.Duration
	owner  Owner
	logger zerolog.Logger
}

// SettingsOption configures a SettingsManager.
type SettingsOption func(*SettingsManager)

// WithSettingsCache enables read-through caching.
func WithSettingsCache(cache Cache) SettingsOption {
	return func(m *SettingsManager) { m.cache = cache }
}

// WithSettingsTTL sets how long cached values live. Defaults to DefaultCacheTTL.
func WithSettingsTTL(ttl time.Duration) SettingsOption {
	return func(m *SettingsManager) { m.ttl = ttl }
}

// WithSettingsLogger sets the logger used for cache failures.
func WithSettingsLogger(logger zerolog.Logger) SettingsOption {
	return func(m *SettingsManager) { m.logger = logger }
}

// NewSettingsManager creates an app-wide settings manager.
func NewSettingsManager(store SettingsStore, opts ...SettingsOption) *SettingsManager {
	m := &SettingsManager{
		store:  store,
		ttl:    DefaultCacheTTL,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ForOwner returns a manager for settings belonging to one entity. Both ownerType
// and ownerID are required; a manager with only one of them rejects every call.
func (m *SettingsManager) ForOwner(ownerType, ownerID string) *SettingsManager {
	scoped := *m
	scoped.owner = Owner{Type: ownerType, ID: ownerID}
	return &scoped
}

// Owner returns the scope of this manager.
func (m *SettingsManager) Owner() Owner {
	return m.owner
}

func normalizeGroup(group string) string {
	if group == "" {
		return DefaultSettingsGroup
	}
	return group
}

// cachedSetting is the cache envelope; Found distinguishes a missing setting from a
// stored null so the caller's default is never cached.
type cachedSetting struct {
	Found bool        `json:"found"`
	Type  SettingType `json:"type,omitempty"`
	Value string      `json:"value,omitempty"`
}

func (m *SettingsManager) lookup(ctx context.Context, group, key string) (cachedSetting, error) {
	if err := m.owner.validate(); err != nil {
		return cachedSetting{}, err
	}
	return Remember(ctx, m.cache, settingCacheKey(m.owner, group, key), m.ttl,
		func(ctx context.Context) (cachedSetting, error) {
			s, err := m.store.FindSetting(ctx, m.owner, group, key)
			if err != nil || s == nil {
				return cachedSetting{}, err
			}
			return cachedSetting{Found: true, Type: s.Type, Value: s.Value}, nil
		})
}

// Get returns the casted value of a setting, or def when it does not exist.
func (m *SettingsManager) Get(ctx context.Context, group, key string, def any) (any, error) {
	group = normalizeGroup(group)
	cs, err := m.lookup(ctx, group, key)
	if err != nil {
		return def, err
	}
	if !cs.Found {
		return def, nil
	}
	s := Setting{Type: cs.Type, Value: cs.Value}
	return s.CastedValue(), nil
}

// GetString returns a setting as a string.
func (m *SettingsManager) GetString(ctx context.Context, group, key, def string) (string, error) {
	v, err := m.Get(ctx, group, key, def)
	if err != nil {
		return def, err
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}

// GetBool returns a setting as a boolean.
func (m *SettingsManager) GetBool(ctx context.Context, group, key string, def bool) (bool, error) {
	v, err := m.Get(ctx, group, key, def)
	if err != nil {
		return def, err
	}
	return truthy(v), nil
}

// GetInt returns a numeric setting as int64.
func (m *SettingsManager) GetInt(ctx context.Context, group, key string, def int64) (int64, error) {
	v, err := m.Get(ctx, group, key, def)
	if err != nil {
		return def, err
	}
	if n, ok := v.(int64); ok {
		return n, nil
	}
	if f, ok := toFloat(v); ok {
		return int64(f), nil
	}
	return def, nil
}

// GetFloat returns a numeric setting as float64.
func (m *SettingsManager) GetFloat(ctx context.Context, group, key string, def float64) (float64, error) {
	v, err := m.Get(ctx, group, key, def)
	if err != nil {
		return def, err
	}
	if n, ok := toFloat(v); ok {
		return n, nil
	}
	return def, nil
}

// SetOption adjusts a setting being written.
type SetOption func(*Setting)

// Public marks the setting as readable by anyone (see All with publicOnly).
func Public() SetOption {
	return func(s *Setting) { s.IsPublic = true }
}

// WithMetadata attaches free-form metadata to the setting.
func WithMetadata(metadata map[string]any) SetOption {
	return func(s *Setting) { s.Metadata = metadata }
}

// Set creates or replaces a setting and forgets its cached value.
func (m *SettingsManager) Set(ctx context.Context, group, key string, value any, opts ...SetOption) (*Setting, error) {
	if err := m.owner.validate(); err != nil {
		return nil, err
	}
	s := &Setting{
		OwnerType: m.owner.Type,
		OwnerID:   m.owner.ID,
		Group:     normalizeGroup(group),
		Key:       key,
	}
	if err := s.SetValue(value); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := m.store.SaveSetting(ctx, s); err != nil {
		return nil, err
	}
	m.forget(ctx, s.CacheKey())
	return s, nil
}

// Has reports whether a setting exists.
func (m *SettingsManager) Has(ctx context.Context, group, key string) (bool, error) {
	if err := m.owner.validate(); err != nil {
		return false, err
	}
	s, err := m.store.FindSetting(ctx, m.owner, normalizeGroup(group), key)
	return s != nil, err
}

// Remove deletes a setting. It reports whether anything was deleted.
func (m *SettingsManager) Remove(ctx context.Context, group, key string) (bool, error) {
	if err := m.owner.validate(); err != nil {
		return false, err
	}
	group = normalizeGroup(group)
	n, err := m.store.DeleteSettings(ctx, m.owner, group, key)
	if err != nil {
		return false, err
	}
	m.forget(ctx, settingCacheKey(m.owner, group, key))
	return n > 0, nil
}

// Group returns every setting of a group keyed by setting key.
func (m *SettingsManager) Group(ctx context.Context, group string) (map[string]any, error) {
	if err := m.owner.validate(); err != nil {
		return nil, err
	}
	list, err := m.store.ListSettings(ctx, m.owner, normalizeGroup(group), false)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(list))
	for i := range list {
		out[list[i].Key] = list[i].CastedValue()
	}
	return out, nil
}

// All returns every setting keyed by "group.key", optionally only public ones.
func (m *SettingsManager) All(ctx context.Context, publicOnly bool) (map[string]any, error) {
	if err := m.owner.validate(); err != nil {
		return nil, err
	}
	list, err := m.store.ListSettings(ctx, m.owner, "", publicOnly)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(list))
	for i := range list {
		k := list[i].Key
		if list[i].Group != "" {
			k = list[i].Group + "." + k
		}
		out[k] = list[i].CastedValue()
	}
	return out, nil
}

// SetMultiple writes several settings of one group.
func (m *SettingsManager) SetMultiple(ctx context.Context, group string, values map[string]any) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, err := m.Set(ctx, group, k, values[k]); err != nil {
			return err
		}
	}
	return nil
}

// Clear deletes every setting of a group, or every setting of the owner when group
// is empty. It returns the number of settings removed.
func (m *SettingsManager) Clear(ctx context.Context, group string) (int, error) {
	if err := m.owner.validate(); err != nil {
		return 0, err
	}
	list, err := m.store.ListSettings(ctx, m.owner, group, false)
	if err != nil {
		return 0, err
	}
	n, err := m.store.DeleteSettings(ctx, m.owner, group, "")
	if err != nil {
		return 0, err
	}

	keys := make([]string, len(list))
	for i := range list {
		keys[i] = list[i].CacheKey()
	}
	m.forget(ctx, keys...)
	return n, nil
}

// Increment adds amount to a numeric setting, treating a missing one as 0.
// Integer settings stay integers; float settings stay floats.
func (m *SettingsManager) Increment(ctx context.Context, group, key string, amount int64) (any, error) {
	current, err := m.Get(ctx, group, key, int64(0))
	if err != nil {
		return nil, err
	}

	var next any
	switch v := current.(type) {
	case int64:
		next = v + amount
	case float64:
		next = v + float64(amount)
	default:
		n, ok := toFloat(v)
		if !ok {
			return nil, NewError(ErrValidation, fmt.Sprintf("setting %s.%s is not numeric", normalizeGroup(group), key))
		}
		next = int64(n) + amount
	}

	if _, err := m.Set(ctx, group, key, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Decrement subtracts amount from a numeric setting.
func (m *SettingsManager) Decrement(ctx context.Context, group, key string, amount int64) (any, error) {
	return m.Increment(ctx, group, key, -amount)
}

// Toggle flips a boolean setting, treating a missing one as false, and returns the new value.
func (m *SettingsManager) Toggle(ctx context.Context, group, key string) (bool, error) {
	current, err := m.GetBool(ctx, group, key, false)
	if err != nil {
		return false, err
	}
	next := !current
	if _, err := m.Set(ctx, group, key, next); err != nil {
		return false, err
	}
	return next, nil
}

func (m *SettingsManager) forget(ctx context.Context, keys ...string) {
	if m.cache == nil || len(keys) == 0 {
		return
	}
	if err := m.cache.Forget(ctx, keys...); err != nil {
		m.logger.Warn().Err(err).Strs("keys", keys).Msg("failed to forget cached settings")
	}
}
