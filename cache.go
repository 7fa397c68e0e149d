package gatekit

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent or expired.
var ErrCacheMiss = errors.New("gatekit: cache miss")

// DefaultCacheTTL is the lifetime of remembered values when none is configured.
const DefaultCacheTTL = time.Hour

// Cache is the key/value store used for grant snapshots and settings.
type Cache interface {
	// Get returns ErrCacheMiss when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Forget(ctx context.Context, keys ...string) error
	// Version returns the current generation of a namespace, starting at 1.
	Version(ctx context.Context, namespace string) (int64, error)
	// Bump advances the namespace generation, making older keys unreachable.
	Bump(ctx context.Context, namespace string) error
}

var _ Cache = (*RedisCache)(nil)

// RedisCache implements Cache on go-redis. A nil *RedisCache or one with a nil
// client is a pass-through: reads miss and writes succeed without storing.
type RedisCache struct {
	client redis.UniversalClient
	prefix string

	// flights collapses concurrent Remember misses on this cache only.
	flights singleflight.Group
}

// NewRedisCache wraps a redis client. Keys are stored under prefix when it is non-empty.
func NewRedisCache(client redis.UniversalClient, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) disabled() bool {
	return c == nil || c.client == nil
}

func (c *RedisCache) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + k
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	if c.disabled() {
		return nil, ErrCacheMiss
	}
	payload, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return payload, err
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.disabled() {
		return nil
	}
	return c.client.Set(ctx, c.key(key), value, ttl).Err()
}

func (c *RedisCache) Forget(ctx context.Context, keys ...string) error {
	if c.disabled() || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.client.Del(ctx, full...).Err()
}

func (c *RedisCache) Version(ctx context.Context, namespace string) (int64, error) {
	if c.disabled() {
		return 0, nil
	}
	key := c.key(namespace + ":version")
	ver, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) || (err == nil && ver <= 0) {
		// SetNX so two processes initialising at once agree on the value.
		if err := c.client.SetNX(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, key).Int64()
	}
	return ver, err
}

func (c *RedisCache) Bump(ctx context.Context, namespace string) error {
	if c.disabled() {
		return nil
	}
	return c.client.Incr(ctx, c.key(namespace+":version")).Err()
}

func (c *RedisCache) flightGroup() *singleflight.Group {
	if c == nil {
		return nil
	}
	return &c.flights
}

// Ping checks the redis connection. A disabled cache is always healthy.
func (c *RedisCache) Ping(ctx context.Context) error {
	if c.disabled() {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// flightCache is implemented by caches that collapse concurrent misses per key.
type flightCache interface {
	flightGroup() *singleflight.Group
}

// Remember returns the cached value for key, or calls producer, caches its result
// for ttl and returns it. Concurrent misses for the same key on the same cache share
// one producer call. A nil cache always calls producer. Cache errors never fail the
// call: a broken cache degrades to calling producer.
//
// Example:
//
//	grants, err := gatekit.Remember(ctx, cache, "grants:42", time.Hour,
//	    func(ctx context.Context) (*gatekit.Grants, error) {
//	        return store.LoadGrants(ctx, "42")
//	    })
func Remember[T any](ctx context.Context, cache Cache, key string, ttl time.Duration, producer func(context.Context) (T, error)) (T, error) {
	var zero T
	if cache == nil {
		return producer(ctx)
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	if payload, err := cache.Get(ctx, key); err == nil {
		var value T
		if err := json.Unmarshal(payload, &value); err == nil {
			recordCacheHit()
			return value, nil
		}
	}
	recordCacheMiss()

	load := func() (T, error) {
		value, err := producer(ctx)
		if err != nil {
			return zero, err
		}
		if raw, err := json.Marshal(value); err == nil {
			_ = cache.Set(ctx, key, raw, ttl)
		}
		return value, nil
	}

	fc, ok := cache.(flightCache)
	if !ok || fc.flightGroup() == nil {
		return load()
	}
	v, err, _ := fc.flightGroup().Do(key, func() (any, error) {
		value, err := load()
		return value, err
	})
	if err != nil {
		return zero, err
	}
	value, _ := v.(T)
	return value, nil
}
