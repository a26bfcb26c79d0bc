// Package metrics exposes prometheus instrumentation for the polling
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Polls counts poll cycles per domain and outcome
	// (fresh, cached, stale, failed).
	Polls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scoreboard",
		Subsystem: "poller",
		Name:      "polls_total",
		Help:      "Poll cycles by domain and outcome.",
	}, []string{"domain", "outcome"})

	// SourceFailures counts fetch failures per source.
	SourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scoreboard",
		Subsystem: "poller",
		Name:      "source_failures_total",
		Help:      "Fetch or validation failures by source.",
	}, []string{"source", "domain"})

	// RateLimitSkips counts endpoints skipped by the rate limiter.
	RateLimitSkips = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scoreboard",
		Subsystem: "poller",
		Name:      "rate_limit_skips_total",
		Help:      "Endpoint attempts skipped because a source was over its rate limit.",
	}, []string{"source"})

	// CacheHits counts conditional-fetch 304 responses per domain.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scoreboard",
		Subsystem: "cache",
		Name:      "conditional_hits_total",
		Help:      "304 Not Modified responses served from cache.",
	}, []string{"domain"})

	// DriftEvents counts significant schema drift detections.
	DriftEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scoreboard",
		Subsystem: "normalizer",
		Name:      "schema_drift_total",
		Help:      "Schema changes crossing the drift significance threshold.",
	}, []string{"source", "domain"})

	// ConsecutiveFailures tracks the current failure streak per domain.
	ConsecutiveFailures = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "scoreboard",
		Subsystem: "poller",
		Name:      "consecutive_failures",
		Help:      "Current consecutive failure count per domain.",
	}, []string{"domain"})

	// ActiveSourceIndex tracks the sticky fallback position per domain.
	ActiveSourceIndex = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "scoreboard",
		Subsystem: "poller",
		Name:      "active_source_index",
		Help:      "Index of the endpoint currently polled first per domain.",
	}, []string{"domain"})

	// PollInterval tracks the current adaptive interval per domain.
	PollInterval = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "scoreboard",
		Subsystem: "poller",
		Name:      "interval_seconds",
		Help:      "Current polling interval per domain.",
	}, []string{"domain"})
)
