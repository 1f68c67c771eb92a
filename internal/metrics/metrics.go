package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Delivery outcomes by the path that succeeded ("primary", "secondary", "none")
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logrelay_deliveries_total",
			Help: "Total number of delivery calls by resulting path",
		},
		[]string{"path"},
	)

	// Primary failures that were rerouted to the secondary sink
	FallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logrelay_fallbacks_total",
			Help: "Total number of events rerouted to the secondary sink",
		},
	)

	// Per-sink attempt metrics
	SinkAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logrelay_sink_attempts_total",
			Help: "Total number of sink attempts by result",
		},
		[]string{"sink", "result"},
	)

	SinkAttemptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "logrelay_sink_attempt_duration_seconds",
			Help:    "Duration of individual sink attempts in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sink"},
	)

	// Rate limiting metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logrelay_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"key"},
	)

	// HTTP boundary
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logrelay_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"route", "status"},
	)
)

// Attempt results used as the "result" label.
const (
	ResultSuccess  = "success"
	ResultError    = "error"
	ResultTimeout  = "timeout"
	ResultCanceled = "canceled"
)
