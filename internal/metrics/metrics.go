// Package metrics holds the Prometheus collectors shared by the cache,
// provider and breaker layers. Collectors register on the default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheLookups counts cache reads by namespace and result (hit, miss, unavailable).
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coffeemap_cache_lookups_total",
			Help: "Total number of cache lookups by result",
		},
		[]string{"namespace", "result"},
	)

	CacheWriteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coffeemap_cache_write_errors_total",
			Help: "Total number of failed cache writes",
		},
		[]string{"namespace"},
	)

	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coffeemap_provider_requests_total",
			Help: "Total number of upstream provider calls by outcome",
		},
		[]string{"provider", "outcome"}, // "success", "not_found", "failure", "rejected"
	)

	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coffeemap_provider_request_duration_seconds",
			Help:    "Duration of upstream provider calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// BreakerState is 0 closed, 1 half-open, 2 open.
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "coffeemap_provider_breaker_state",
			Help: "Circuit breaker state per provider (0=closed, 1=half-open, 2=open)",
		},
		[]string{"provider"},
	)
)
