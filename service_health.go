package gatekit

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
)

// HealthReport describes the state of the store and the cache.
type HealthReport struct {
	Healthy bool               `json:"healthy"`
	Store   dbkit.HealthStatus `json:"store"`
	Cache   *CacheHealth       `json:"cache,omitempty"`
	Pool    *dbkit.PoolStats   `json:"pool,omitempty"`
	Gates   int                `json:"gates"`
}

// CacheHealth is the cache part of a HealthReport.
type CacheHealth struct {
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency"`
	Error   string        `json:"error,omitempty"`
}

type storeHealth interface {
	Health(ctx context.Context) dbkit.HealthStatus
}

type poolStatser interface {
	PoolStats() dbkit.PoolStats
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Health checks the store and the cache. A cache failure marks the report unhealthy
// even though checks still work from the store.
func (s *Service) Health(ctx context.Context) HealthReport {
	report := HealthReport{Gates: len(s.gate.Abilities())}

	if hs, ok := s.store.(storeHealth); ok {
		report.Store = hs.Health(ctx)
	} else {
		err := s.store.Ping(ctx)
		report.Store = dbkit.HealthStatus{Healthy: err == nil}
		if err != nil {
			report.Store.Error = err.Error()
		}
	}
	if ps, ok := s.store.(poolStatser); ok {
		stats := ps.PoolStats()
		report.Pool = &stats
	}

	report.Healthy = report.Store.Healthy
	if p, ok := s.cache.(pinger); ok && s.cache != nil {
		start := time.Now()
		err := p.Ping(ctx)
		report.Cache = &CacheHealth{Healthy: err == nil, Latency: time.Since(start)}
		if err != nil {
			report.Cache.Error = err.Error()
			report.Healthy = false
		}
	}
	return report
}
