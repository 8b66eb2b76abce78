package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the gateway.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	queriesTotal    *prometheus.CounterVec
	guardBlocks     *prometheus.CounterVec
	auditFailures   prometheus.Counter
}

// NewMetrics initialises the registry and the base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leadgate_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "leadgate_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	queries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leadgate_queries_total",
		Help: "Mediated queries by final outcome.",
	}, []string{"outcome"})
	blocks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leadgate_guard_blocks_total",
		Help: "Inputs blocked by the injection guard, by rule category.",
	}, []string{"category"})
	auditFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "leadgate_audit_write_failures_total",
		Help: "Audit writes that failed; the originating queries still completed.",
	})
	registry.MustRegister(requests, duration, queries, blocks, auditFailures)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		queriesTotal:    queries,
		guardBlocks:     blocks,
		auditFailures:   auditFailures,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// RecordQuery counts one mediated query with its final outcome.
func (m *Metrics) RecordQuery(outcome string) {
	if m == nil {
		return
	}
	m.queriesTotal.WithLabelValues(outcome).Inc()
}

// RecordGuardBlock counts one guard rejection by rule category.
func (m *Metrics) RecordGuardBlock(category string) {
	if m == nil {
		return
	}
	if category == "" {
		category = "heuristic"
	}
	m.guardBlocks.WithLabelValues(category).Inc()
}

// RecordAuditFailure counts one failed audit write.
func (m *Metrics) RecordAuditFailure() {
	if m == nil {
		return
	}
	m.auditFailures.Inc()
}

// Middleware records request metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
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

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
