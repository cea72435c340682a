// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iwvelando/revenue-forecast/pkg/constants"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Projection metrics
	ForecastsComputed  *prometheus.CounterVec
	ForecastDuration   prometheus.Histogram
	SegmentsProjected  prometheus.Histogram
	OptimizerSolutions *prometheus.CounterVec

	// Cache metrics
	CacheLookups *prometheus.CounterVec

	// Storage metrics
	StoreOperations *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered on its own registry, so
// several handlers can coexist in one process.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = constants.MetricsNamespace
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),

		ForecastsComputed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "projection",
			Name:      "forecasts_total",
			Help:      "Total number of forecasts computed by source and outcome",
		}, []string{"source", "outcome"}),
		ForecastDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "projection",
			Name:      "forecast_duration_seconds",
			Help:      "Time to compute a forecast including scenarios",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		SegmentsProjected: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "projection",
			Name:      "segments",
			Help:      "Number of segments per computed forecast",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		}),
		OptimizerSolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "solutions_total",
			Help:      "Total number of optimizer directives solved by convergence",
		}, []string{"converged"}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total number of cache lookups by result",
		}, []string{"result"}),

		StoreOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operations_total",
			Help:      "Total number of storage operations by operation and outcome",
		}, []string{"operation", "outcome"}),
	}
}

// Handler returns the HTTP handler that exposes the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// ObserveForecast records a forecast attempt.
func (m *Metrics) ObserveForecast(source string, segments int, elapsed time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.ForecastsComputed.WithLabelValues(source, outcome).Inc()
	if err == nil {
		m.ForecastDuration.Observe(elapsed.Seconds())
		m.SegmentsProjected.Observe(float64(segments))
	}
}

// ObserveStore records a storage operation.
func (m *Metrics) ObserveStore(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.StoreOperations.WithLabelValues(operation, outcome).Inc()
}

// Middleware wraps next and records request metrics under route.
func (m *Metrics) Middleware(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		m.ObserveRequest(route, r.Method, recorder.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
