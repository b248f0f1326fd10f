package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// validationTotal counts validations by action and outcome
	validationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "heritrace_validation_total",
		Help: "Total triple validations by action and outcome",
	}, []string{"action", "outcome"})

	// validationDuration tracks validation latency
	validationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "heritrace_validation_duration_seconds",
		Help:    "Validation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~1.6s
	}, []string{"operation"})

	// entitiesCreated counts entity creations by outcome
	entitiesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "heritrace_entities_created_total",
		Help: "Total entity creation requests by outcome",
	}, []string{"outcome"})

	// exportsTotal counts entity exports by format
	exportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "heritrace_exports_total",
		Help: "Total entity exports by format",
	}, []string{"format"})
)
