package telemetry

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/resepku/backend/internal/domain/shared"
)

const metricsNamespace = "resepku"

// Metrics collects Prometheus metrics for the HTTP layer and the services.
type Metrics struct {
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge
	recipeOps    *prometheus.CounterVec
	authEvents   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
		recipeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "recipe_operations_total",
			Help:      "Recipe service operations by outcome.",
		}, []string{"operation", "result"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "auth_events_total",
			Help:      "Session events (sign up, sign in, sign out, refresh) by outcome.",
		}, []string{"event", "result"}),
	}

	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.httpInFlight,
		m.recipeOps,
		m.authEvents,
	)
	return m
}

// RegisterRuntimeCollectors adds Go runtime, process and connection pool
// metrics. db may be nil.
func RegisterRuntimeCollectors(reg prometheus.Registerer, db *sql.DB) {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if db != nil {
		reg.MustRegister(collectors.NewDBStatsCollector(db, metricsNamespace))
	}
}

// RequestStarted increments the in-flight gauge and returns the matching
// decrement.
func (m *Metrics) RequestStarted() func() {
	m.httpInFlight.Inc()
	return m.httpInFlight.Dec
}

// RecordHTTPRequest records one served request. route is the matched route
// template so that path parameters don't explode cardinality.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordRecipeOp counts a recipe service operation.
func (m *Metrics) RecordRecipeOp(op string, err error) {
	m.recipeOps.WithLabelValues(op, resultLabel(err)).Inc()
}

// RecordAuthEvent counts a session event.
func (m *Metrics) RecordAuthEvent(event string, err error) {
	m.authEvents.WithLabelValues(event, resultLabel(err)).Inc()
}

// resultLabel is "ok", the lower-cased domain error code, or "error".
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) && domainErr.Code != "" {
		return strings.ToLower(domainErr.Code)
	}
	return "error"
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
