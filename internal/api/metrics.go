package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks Prometheus metrics for the HTTP API.
//
// All metrics use the "hlhsinfo_http_" prefix. Methods handle a nil
// receiver gracefully, so a nil *RequestMetrics acts as a no-op when
// metrics are disabled.
type RequestMetrics struct {
	// Requests counts completed requests.
	// Labels: method, path, status
	Requests *prometheus.CounterVec

	// Duration tracks request processing time.
	// Labels: method, path
	Duration *prometheus.HistogramVec
}

var (
	requestMetricsOnce     sync.Once
	requestMetricsInstance *RequestMetrics
)

// NewRequestMetrics creates and registers the HTTP metrics. Idempotent:
// repeated calls return the same instance. A nil registerer means the
// default registerer.
func NewRequestMetrics(registerer prometheus.Registerer) *RequestMetrics {
	requestMetricsOnce.Do(func() {
		if registerer == nil {
			registerer = prometheus.DefaultRegisterer
		}

		m := &RequestMetrics{
			Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "hlhsinfo_http_requests_total",
				Help: "Completed HTTP requests.",
			}, []string{"method", "path", "status"}),
			Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "hlhsinfo_http_request_duration_seconds",
				Help:    "HTTP request processing time.",
				Buckets: prometheus.DefBuckets,
			}, []string{"method", "path"}),
		}

		registerer.MustRegister(m.Requests, m.Duration)
		requestMetricsInstance = m
	})

	return requestMetricsInstance
}

// Middleware records every completed request. Paths are recorded from the
// chi route pattern so parameterized routes do not explode cardinality.
func (m *RequestMetrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		m.Requests.WithLabelValues(r.Method, path, strconv.Itoa(ww.Status())).Inc()
		m.Duration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
