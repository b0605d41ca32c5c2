package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metric collectors for taskgate.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Auth metrics.
	AuthSuccessesTotal prometheus.Counter
	AuthFailuresTotal  *prometheus.CounterVec

	// Rate limiting.
	RateLimitRejectionsTotal prometheus.Counter

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskgate_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskgate_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),

		AuthSuccessesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskgate_auth_successes_total",
			Help: "Total number of successfully authenticated requests.",
		}),

		AuthFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskgate_auth_failures_total",
			Help: "Total number of rejected authentication attempts.",
		}, []string{"reason"}),

		RateLimitRejectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskgate_ratelimit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter.",
		}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taskgate_server_start_time_seconds",
			Help: "Unix timestamp of server start.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthSuccessesTotal,
		m.AuthFailuresTotal,
		m.RateLimitRejectionsTotal,
		m.ServerStartTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m.ServerStartTime.Set(float64(time.Now().Unix()))

	return m
}

// ObserveAuth records the outcome of an authentication attempt. Wired into
// auth.RequireAuth as an observer.
func (m *Metrics) ObserveAuth(ok bool, reason string) {
	if ok {
		m.AuthSuccessesTotal.Inc()
		return
	}
	m.AuthFailuresTotal.WithLabelValues(reason).Inc()
}

// Middleware observes every HTTP request: count by status and duration by
// route pattern. Uses the chi route pattern rather than the raw path so task
// ids don't explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				pattern = p
			}
		}

		m.HTTPRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(ww.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}

// PrometheusHandler serves the registry in Prometheus exposition format.
func (m *Metrics) PrometheusHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
