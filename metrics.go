package gatekit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChecksTotal counts capability checks by kind (role, permission, gate, guard) and outcome.
	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekit_checks_total",
			Help: "Total number of authorization checks",
		},
		[]string{"kind", "decision"},
	)

	// GatesRegistered is the number of abilities defined on the gate after the last registration.
	GatesRegistered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gatekit_gates_registered",
			Help: "Number of abilities currently registered on the gate",
		},
	)

	// CacheHitsTotal counts remembered values served from the cache.
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gatekit_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	// CacheMissesTotal counts remembered values that had to be produced.
	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gatekit_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// StoreOperationDuration tracks the latency of store mutations.
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gatekit_store_operation_duration_seconds",
			Help:    "Duration of store mutations in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"operation"},
	)
)

func decision(allowed bool) string {
	if allowed {
		return "allow"
	}
	return "deny"
}

func recordCheck(kind string, allowed bool) {
	ChecksTotal.WithLabelValues(kind, decision(allowed)).Inc()
}

func recordCacheHit() {
	CacheHitsTotal.Inc()
}

func recordCacheMiss() {
	CacheMissesTotal.Inc()
}

func observeStore(op string, start time.Time) {
	StoreOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
