// Package metrics registers the Prometheus collectors for the service.
// HTTP collectors are fed by the Metrics middleware; analysis collectors are
// fed by the pipeline:
//   - http_request_total / http_request_duration_seconds / http_request_in_flight
//   - analysis_total{mode,status}
//   - interactions_found_total{risk}
//   - generation_duration_seconds{provider} / generation_failures_total{provider}
//   - safety_alerts_total
//
// All collectors are registered with the default registry during package initialization.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 15, 60},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)

	AnalysisTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_total",
			Help: "Completed analyses by mode (batch, stream) and status",
		},
		[]string{"mode", "status"},
	)

	InteractionsFound = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interactions_found_total",
			Help: "Reported interactions by risk level",
		},
		[]string{"risk"},
	)

	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_duration_seconds",
			Help:    "Explanation generation latency",
			Buckets: []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider"},
	)

	GenerationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_failures_total",
			Help: "Failed explanation generations",
		},
		[]string{"provider"},
	)

	SafetyAlerts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "safety_alerts_total",
			Help: "Explanations flagged by the safety gate",
		},
	)

	ReferenceReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reference_reloads_total",
			Help: "Reference data reloads by outcome",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(AnalysisTotal)
	prometheus.MustRegister(InteractionsFound)
	prometheus.MustRegister(GenerationDuration)
	prometheus.MustRegister(GenerationFailures)
	prometheus.MustRegister(SafetyAlerts)
	prometheus.MustRegister(ReferenceReloads)
}
