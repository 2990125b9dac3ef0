package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProvisioningAttempts counts provisioning runs by terminal outcome
	// (complete|validation_failed|duplicate|auth_provider_failed|identity_failed|partial).
	ProvisioningAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventdesk_provisioning_attempts_total",
			Help: "Total number of account provisioning attempts",
		},
		[]string{"outcome"},
	)

	// ProvisioningDuration measures end-to-end provisioning latency.
	ProvisioningDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eventdesk_provisioning_duration_seconds",
			Help:    "Account provisioning latency",
			Buckets: prometheus.DefBuckets,
		},
	)

	// DuplicateChecks counts duplicate detector invocations by mode and result.
	DuplicateChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventdesk_duplicate_checks_total",
			Help: "Duplicate email checks by mode (reactive|authoritative) and result (hit|miss)",
		},
		[]string{"mode", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventdesk_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
