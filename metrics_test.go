package gatekit

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// TestChecksTotal tests that decisions are counted by kind
func TestChecksTotal(t *testing.T) {
	allow := testutil.ToFloat64(ChecksTotal.WithLabelValues("permission", "allow"))
	deny := testutil.ToFloat64(ChecksTotal.WithLabelValues("permission", "deny"))

	ctx := context.Background()
	svc, _ := newTestService(t)
	_, _ = svc.AssignRole(ctx, "bob", "editor")

	svc.HasPermission(ctx, "bob", "edit-posts")
	svc.HasPermission(ctx, "bob", "delete-users")
	svc.HasPermission(ctx, "bob", "delete-users")

	assert.Equal(t, allow+1, testutil.ToFloat64(ChecksTotal.WithLabelValues("permission", "allow")))
	assert.Equal(t, deny+2, testutil.ToFloat64(ChecksTotal.WithLabelValues("permission", "deny")))
}

// TestCacheCounters tests hit and miss accounting in Remember
func TestCacheCounters(t *testing.T) {
	ctx := context.Background()
	_, cache := newTestRedis(t, "")
	hits, misses := testutil.ToFloat64(CacheHitsTotal), testutil.ToFloat64(CacheMissesTotal)

	producer := func(context.Context) (string, error) { return "v", nil }
	_, _ = Remember(ctx, cache, "counted", time.Minute, producer)
	_, _ = Remember(ctx, cache, "counted", time.Minute, producer)

	assert.Equal(t, misses+1, testutil.ToFloat64(CacheMissesTotal))
	assert.Equal(t, hits+1, testutil.ToFloat64(CacheHitsTotal))
}

// TestGatesRegisteredGauge tests the gauge set by gate registration
func TestGatesRegisteredGauge(t *testing.T) {
	svc, _ := newTestService(t)
	svc.RegisterPermissionGates(context.Background())

	assert.Equal(t, float64(len(svc.Gate().Abilities())), testutil.ToFloat64(GatesRegistered))
}
