package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BackendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sedar",
		Subsystem: "backend",
		Name:      "requests_total",
		Help:      "Requests sent to the SEDAR REST backend.",
	}, []string{"method", "resource", "status"})

	BackendLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sedar",
		Subsystem: "backend",
		Name:      "request_duration_seconds",
		Help:      "Latency of SEDAR REST backend requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "resource"})

	FormSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sedar",
		Subsystem: "forms",
		Name:      "sessions_opened_total",
		Help:      "Form sessions opened, by form kind and mode.",
	}, []string{"kind", "mode"})

	FormSubmits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sedar",
		Subsystem: "forms",
		Name:      "submits_total",
		Help:      "Form submit attempts by outcome (ok, invalid, conflict, failed).",
	}, []string{"kind", "outcome"})

	LookupCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sedar",
		Subsystem: "lookups",
		Name:      "cache_total",
		Help:      "Lookup list cache hits and misses.",
	}, []string{"result"})
)
