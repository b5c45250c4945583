package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure|locked).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpexotics_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// PermissionChecks counts permission evaluations and their outcome (allowed|denied).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpexotics_permission_checks_total",
			Help: "Total number of permission checks",
		},
		[]string{"resource", "action", "result"},
	)

	// VINDecodeRequests counts outbound VIN decode calls by result (success|invalid|upstream_error).
	VINDecodeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpexotics_vin_decode_requests_total",
			Help: "Total number of VIN decode requests",
		},
		[]string{"result"},
	)

	// DealsCreated counts deal records created by deal type.
	DealsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpexotics_deals_created_total",
			Help: "Total number of deals created",
		},
		[]string{"deal_type"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rpexotics_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
