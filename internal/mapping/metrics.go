package mapping

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journey_mapping_resolutions_total",
		Help: "Mappings returned to callers, by source (cache or generated).",
	}, []string{"source"})

	classifierCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journey_mapping_classifier_calls_total",
		Help: "Classifier invocations by outcome.",
	}, []string{"outcome"})

	droppedEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journey_mapping_dropped_entries_total",
		Help: "Classifier entries discarded during validation, by reason.",
	}, []string{"reason"})

	classifierSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "journey_mapping_classifier_seconds",
		Help:    "Classifier call latency.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
	})
)

// Classifier call outcomes.
const (
	outcomeOK        = "ok"
	outcomeError     = "error"
	outcomeInvalid   = "invalid"
	outcomeAbandoned = "abandoned"
)
