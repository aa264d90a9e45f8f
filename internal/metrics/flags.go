package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	flagEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feature_flags",
			Name:      "evaluations_total",
			Help:      "Feature flag evaluations by flag, deciding strategy and result",
		},
		[]string{"flag", "strategy", "result"},
	)

	flagEvaluationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feature_flags",
			Name:      "evaluation_errors_total",
			Help:      "Feature flag evaluations that failed on a missing or invalid configuration",
		},
		[]string{"flag", "reason"},
	)

	flagCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feature_flags",
			Name:      "cache_lookups_total",
			Help:      "Feature flag list cache lookups by outcome",
		},
		[]string{"outcome"},
	)
)

// FlagMetrics is safe to use as a nil pointer, which records nothing.
type FlagMetrics struct{}

func NewFlagMetrics() *FlagMetrics {
	return &FlagMetrics{}
}

func (fm *FlagMetrics) RecordEvaluation(flag, strategy string, enabled bool) {
	if fm == nil {
		return
	}
	flagEvaluationsTotal.WithLabelValues(flag, strategy, strconv.FormatBool(enabled)).Inc()
}

func (fm *FlagMetrics) RecordEvaluationError(flag, reason string) {
	if fm == nil {
		return
	}
	flagEvaluationErrors.WithLabelValues(flag, reason).Inc()
}

func (fm *FlagMetrics) RecordCacheLookup(hit bool) {
	if fm == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	flagCacheLookups.WithLabelValues(outcome).Inc()
}
