package adaptation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TelemetryGaps counts criteria and conditions that could not be
	// evaluated because a metric was missing or its lookup failed.
	TelemetryGaps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scaffold",
			Subsystem: "adaptation",
			Name:      "telemetry_gaps_total",
			Help:      "Metric lookups that returned no value",
		},
		[]string{"metric"},
	)

	// RuleMatches counts adaptation rules that fired, by action kind.
	RuleMatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scaffold",
			Subsystem: "adaptation",
			Name:      "rule_matches_total",
			Help:      "Adaptation rules whose condition held",
		},
		[]string{"action"},
	)

	// Completions counts completion evaluations by result.
	Completions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scaffold",
			Subsystem: "adaptation",
			Name:      "completion_checks_total",
			Help:      "Completion evaluations by result",
		},
		[]string{"result"},
	)
)
