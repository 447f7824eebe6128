package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scaffold",
		Subsystem: "orchestrator",
		Name:      "ticks_total",
		Help:      "Orchestrator ticks executed",
	})

	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scaffold",
		Subsystem: "orchestrator",
		Name:      "transitions_total",
		Help:      "Agent status transitions by target status",
	}, []string{"to"})

	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scaffold",
		Subsystem: "orchestrator",
		Name:      "decisions_total",
		Help:      "Step decisions by kind",
	}, []string{"kind"})

	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scaffold",
		Subsystem: "orchestrator",
		Name:      "tick_duration_seconds",
		Help:      "Wall time of one tick across all agents",
		Buckets:   prometheus.DefBuckets,
	})

	agentPanics = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scaffold",
		Subsystem: "orchestrator",
		Name:      "agent_panics_total",
		Help:      "Agent ticks that panicked and were recovered",
	})

	configWarnings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scaffold",
		Subsystem: "orchestrator",
		Name:      "configuration_warnings_total",
		Help:      "Failed reconfiguration calls by port",
	}, []string{"port"})

	sinkErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scaffold",
		Subsystem: "orchestrator",
		Name:      "sink_errors_total",
		Help:      "Events a sink failed to handle",
	})
)
