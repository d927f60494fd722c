// Package observability provides Prometheus metrics, HTTP middleware, and an
// endpoint decorator for monitoring chatlike.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// Circuit breaker states as reported by CircuitState.
const (
	CircuitClosed   = 0
	CircuitHalfOpen = 1
	CircuitOpen     = 2
)

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatlike_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatlike_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method"},
	)

	// StreamingConnections tracks the number of active SSE streaming connections.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatlike_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// EndpointRunsTotal counts adapter runs by outcome (ok, aborted, error).
	EndpointRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatlike_endpoint_runs_total",
			Help: "Endpoint runs",
		},
		[]string{"endpoint", "status"},
	)

	// EndpointLatency records the time from Run until the stream ended.
	EndpointLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatlike_endpoint_latency_seconds",
			Help:    "Endpoint latency",
			Buckets: LLMBuckets,
		},
		[]string{"endpoint"},
	)

	// EndpointFirstChunkLatency records the time from Run until the first chunk.
	EndpointFirstChunkLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatlike_endpoint_first_chunk_seconds",
			Help:    "Time to first chunk",
			Buckets: LLMBuckets,
		},
		[]string{"endpoint"},
	)

	// EndpointChunksTotal counts chunks delivered to consumers.
	EndpointChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatlike_endpoint_chunks_total",
			Help: "Chunks delivered",
		},
		[]string{"endpoint"},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatlike_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"tier"},
	)

	// CircuitState reports the circuit breaker state per endpoint
	// (0 closed, 1 half-open, 2 open).
	CircuitState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chatlike_circuit_state",
			Help: "Circuit breaker state",
		},
		[]string{"endpoint"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		EndpointRunsTotal,
		EndpointLatency,
		EndpointFirstChunkLatency,
		EndpointChunksTotal,
		RateLimitRejectedTotal,
		CircuitState,
	)
}

// Handler returns the HTTP handler exposing the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
