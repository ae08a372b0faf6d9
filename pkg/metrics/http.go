package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPMetrics records request counts and latency for the API surface.
type HTTPMetrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge
}

// NewHTTPMetrics builds a registry with the HTTP collectors registered.
func NewHTTPMetrics() *HTTPMetrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests by method, route, and status.",
	}, []string{"method", "route", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	inflight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_requests_in_flight",
		Help: "Requests currently being served.",
	})
	registry.MustRegister(requests, duration, inflight)
	return &HTTPMetrics{
		registry: registry,
		requests: requests,
		duration: duration,
		inflight: inflight,
	}
}

// ObserveRequest records a completed request.
func (m *HTTPMetrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.WithLabelValues(method, normalizeRoute(route), statusLabel(status)).Inc()
	m.duration.WithLabelValues(method, normalizeRoute(route)).Observe(elapsed.Seconds())
}

// IncInFlight marks a request as started.
func (m *HTTPMetrics) IncInFlight() {
	if m == nil || m.inflight == nil {
		return
	}
	m.inflight.Inc()
}

// DecInFlight marks a request as finished.
func (m *HTTPMetrics) DecInFlight() {
	if m == nil || m.inflight == nil {
		return
	}
	m.inflight.Dec()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *HTTPMetrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func normalizeRoute(route string) string {
	if route == "" {
		return "unmatched"
	}
	return route
}

func statusLabel(status int) string {
	switch {
	case status < 200:
		return "1xx"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
