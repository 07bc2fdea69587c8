package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// Routes whose traffic is scrape or probe noise and never recorded.
var unobservedRoutes = map[string]bool{
	"/metrics": true,
	"/health":  true,
	"/ready":   true,
}

var (
	// Buckets reach past the longest generation timeout: /v1/ask waits on LLM backends.
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "faq",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"method", "route", "status"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faq",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status class",
		},
		[]string{"method", "route", "status"},
	)

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "faq",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Requests currently being served, probes excluded",
		},
	)
)

var httpMetricsRegistered bool

// RegisterHTTPMetrics registers the request collectors used by Middleware. Must be called once from main.
func RegisterHTTPMetrics() {
	if httpMetricsRegistered {
		return
	}
	prometheus.MustRegister(httpRequestDuration, httpRequestsTotal, httpInFlight)
	httpMetricsRegistered = true
}

// Middleware records per-route latency, request counts and in-flight requests.
// The route label is the chi pattern, so /v1/documents/{id} stays one series.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if unobservedRoutes[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			httpInFlight.Inc()
			defer httpInFlight.Dec()

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			route := routeLabel(r)
			status := statusClass(rec.code())
			httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
		})
	}
}

// routeLabel returns the matched chi pattern, or "unmatched" for 404s and 405s
// so arbitrary client paths cannot create new series.
func routeLabel(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "unmatched"
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return "unmatched"
}

// statusClass collapses a status code into 2xx, 4xx, 5xx. 429 and 503 stay exact;
// they are the rate-limit and degraded signals worth alerting on.
func statusClass(code int) string {
	switch code {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return strconv.Itoa(code)
	}
	return strconv.Itoa(code/100) + "xx"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b) //nolint:wrapcheck // plain passthrough
}

func (w *statusRecorder) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}
