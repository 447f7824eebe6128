package llm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scaffold",
		Subsystem: "llm",
		Name:      "requests_total",
		Help:      "LLM requests by provider, purpose and result.",
	}, []string{"model", "purpose", "result"})

	tokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scaffold",
		Subsystem: "llm",
		Name:      "tokens_total",
		Help:      "Tokens consumed by direction.",
	}, []string{"model", "direction"})

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scaffold",
		Subsystem: "llm",
		Name:      "request_duration_seconds",
		Help:      "Latency of a single provider call.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"model"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scaffold",
		Subsystem: "llm",
		Name:      "retries_total",
		Help:      "Retried LLM calls by error class.",
	}, []string{"class"})
)
