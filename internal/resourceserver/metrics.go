package resourceserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	authenticateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rusty_tokens_authenticate_total",
			Help: "Total Authenticate calls by outcome (ok, rejected, fallback_ok, error).",
		},
		[]string{"outcome"},
	)

	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rusty_tokens_tokeninfo_cache_total",
			Help: "Token-info cache lookups by result (hit, miss).",
		},
		[]string{"result"},
	)
)
