package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	salesFinalized   prometheus.Counter
	receiptsArchived prometheus.Counter
	grvsCompleted    prometheus.Counter
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tillpoint_http_requests_total",
		Help: "Number of HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tillpoint_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	sales := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tillpoint_sales_finalized_total",
		Help: "Number of finalized sales.",
	})
	receipts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tillpoint_receipts_archived_total",
		Help: "Number of receipts archived by the worker.",
	})
	grvs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tillpoint_grvs_completed_total",
		Help: "Number of completed goods received vouchers.",
	})
	registry.MustRegister(requests, duration, sales, receipts, grvs)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		salesFinalized:   sales,
		receiptsArchived: receipts,
		grvsCompleted:    grvs,
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

// Middleware records metrics for every HTTP request.
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

// SaleFinalized increments the finalized sale counter.
func (m *Metrics) SaleFinalized() {
	if m != nil {
		m.salesFinalized.Inc()
	}
}

// ReceiptArchived increments the archived receipt counter.
func (m *Metrics) ReceiptArchived() {
	if m != nil {
		m.receiptsArchived.Inc()
	}
}

// GRVCompleted increments the completed GRV counter.
func (m *Metrics) GRVCompleted() {
	if m != nil {
		m.grvsCompleted.Inc()
	}
}

// Registerer exposes the registry for custom metric registration.
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
