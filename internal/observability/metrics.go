package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the Prometheus metrics exposed on /metrics.
type Metrics struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	ledgerRejections *prometheus.CounterVec
	reportBuild      *prometheus.HistogramVec
	reportCache      *prometheus.CounterVec
}

// NewMetrics builds the registry with HTTP and office metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "office_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "office_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "office_ledger_rejections_total",
		Help: "Expenditure and budget writes rejected by the ledger, by reason.",
	}, []string{"reason"})
	build := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "office_report_build_seconds",
		Help:    "Activity report aggregation time by grouping.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"grouping"})
	cache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "office_report_cache_total",
		Help: "Activity report cache lookups by result.",
	}, []string{"result"})
	registry.MustRegister(requests, duration, rejections, build, cache)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		ledgerRejections: rejections,
		reportBuild:      build,
		reportCache:      cache,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request counts and durations per route pattern.
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

// LedgerRejected counts a rejected ledger write.
func (m *Metrics) LedgerRejected(reason string) {
	if m == nil {
		return
	}
	m.ledgerRejections.WithLabelValues(reason).Inc()
}

// ReportBuilt observes one report aggregation.
func (m *Metrics) ReportBuilt(grouping string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.reportBuild.WithLabelValues(grouping).Observe(elapsed.Seconds())
}

// ReportCache counts a report cache lookup; result is hit, miss or error.
func (m *Metrics) ReportCache(result string) {
	if m == nil {
		return
	}
	m.reportCache.WithLabelValues(result).Inc()
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
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
