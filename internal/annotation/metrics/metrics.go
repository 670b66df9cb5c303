package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal tracks every dispatched request by kind and status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "varannot_http_requests_total",
			Help: "Total number of requests sent to the annotation service",
		},
		[]string{"kind", "status"},
	)

	// HTTPRequestDuration tracks request latency
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "varannot_http_request_duration_seconds",
			Help:    "Annotation service request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// RetriesTotal tracks retries by kind and reason (transient, rate_limited)
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "varannot_retries_total",
			Help: "Total number of retried requests",
		},
		[]string{"kind", "reason"},
	)

	// RateLimitedTotal tracks 429 responses
	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "varannot_rate_limited_total",
			Help: "Total number of rate-limited responses",
		},
		[]string{"kind"},
	)

	// GateWait tracks time spent waiting for a dispatch slot
	GateWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "varannot_gate_wait_seconds",
			Help:    "Time spent waiting on the rate gate",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// OutcomesTotal tracks annotation outcomes per kind
	OutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "varannot_annotation_outcomes_total",
			Help: "Total number of annotation outcomes",
		},
		[]string{"kind", "outcome"},
	)

	// VariantsProcessed tracks variants that finished annotation
	VariantsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "varannot_variants_processed_total",
			Help: "Total number of variants annotated",
		},
	)

	// VariantsInFlight tracks variants currently being annotated
	VariantsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "varannot_variants_in_flight",
			Help: "Number of variants currently being annotated",
		},
	)
)
