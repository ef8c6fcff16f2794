package tokens

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	refreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rusty_tokens_refresh_total",
			Help: "Total managed-token refresh attempts by outcome.",
		},
		[]string{"name", "outcome"},
	)

	refreshDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rusty_tokens_refresh_duration_seconds",
			Help:    "Duration of one access-token provider round-trip.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"name"},
	)

	agingWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rusty_tokens_aging_warnings_total",
			Help: "Count of iterations where a managed token was past its warning deadline.",
		},
		[]string{"name"},
	)

	credentialsFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rusty_tokens_credentials_failures_total",
			Help: "Count of credentials-provider failures observed by the manager loop.",
		},
	)
)
