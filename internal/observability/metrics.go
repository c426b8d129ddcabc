package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	securityEventsTotal   *prometheus.CounterVec
	violationsTotal       *prometheus.CounterVec
	sessionTransitions    *prometheus.CounterVec
	evaluationSeconds     *prometheus.HistogramVec
	requestsTotal         *prometheus.CounterVec
	requestLatencySeconds *prometheus.HistogramVec
	requestErrorsTotal    *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the security engine and API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		securityEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "security_events_total",
			Help: "Total number of security events processed by the engine.",
		}, []string{"kind", "action"})

		violationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "security_violations_total",
			Help: "Total number of confirmed security violations.",
		}, []string{"type", "severity"})

		sessionTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "security_session_transitions_total",
			Help: "Total number of session status transitions.",
		}, []string{"status"})

		evaluationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "security_evaluation_seconds",
			Help:    "Latency distribution of the evaluate-and-persist cycle.",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"kind"})

		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "security_api_requests_total",
			Help: "Total number of security API requests served.",
		}, []string{"method", "route", "status"})

		requestLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "security_api_latency_seconds",
			Help:    "Latency distribution for security API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		requestErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "security_api_errors_total",
			Help: "Total number of error responses returned by security API endpoints.",
		}, []string{"method", "route", "status"})

		prometheus.MustRegister(
			securityEventsTotal,
			violationsTotal,
			sessionTransitions,
			evaluationSeconds,
			requestsTotal,
			requestLatencySeconds,
			requestErrorsTotal,
		)
	})
}

// SecurityEvents exposes the counter of processed engine events.
func SecurityEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return securityEventsTotal
}

// Violations exposes the counter of confirmed violations.
func Violations() *prometheus.CounterVec {
	RegisterMetrics()
	return violationsTotal
}

// SessionTransitions exposes the counter of session status transitions.
func SessionTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return sessionTransitions
}

// EvaluationLatency exposes the histogram of evaluate-and-persist latencies.
func EvaluationLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return evaluationSeconds
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// RequestLatency exposes the latency histogram for API requests.
func RequestLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return requestLatencySeconds
}

// RequestErrors exposes the counter for API error responses.
func RequestErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return requestErrorsTotal
}
