// Package metrics exposes Prometheus collectors for the HTTP API and the map
// search engine on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the registered collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	operations          *prometheus.CounterVec
	operationDuration   *prometheus.HistogramVec
	rateLimited         prometheus.Counter
}

// New creates a fresh registry with the HTTP and engine metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "compmap",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests served",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "compmap",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "compmap",
		Name:      "mapsearch_operations_total",
		Help:      "Map search operations by outcome",
	}, []string{"operation", "outcome"})

	operationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "compmap",
		Name:      "mapsearch_operation_duration_seconds",
		Help:      "Duration of map search operations including store queries",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"operation"})

	rateLimited := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "compmap",
		Name:      "http_rate_limited_total",
		Help:      "Requests rejected by the rate limiter",
	})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		operations,
		operationDuration,
		rateLimited,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		operations:          operations,
		operationDuration:   operationDuration,
		rateLimited:         rateLimited,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle. path should
// be the route pattern, not the raw URL.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// ObserveOperation records one engine call. It satisfies mapsearch.Observer.
func (m *Metrics) ObserveOperation(op string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.operationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// IncRateLimited counts one rejected request.
func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

// Handler exposes the registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
