package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes of one call to a primary embedding backend.
const (
	EmbedSuccess       = "success"
	EmbedAPIError      = "api_error"
	EmbedEmptyResponse = "empty_response"
)

// Embedding metrics. Labels are provider and model of the primary backend;
// the hash fallback only shows up in EmbeddingFallbackTotal.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faq",
			Subsystem: "embedding",
			Name:      "requests_total",
			Help:      "Primary embedding calls by outcome",
		},
		[]string{"provider", "model", "status"}, // "success" / "error"
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "faq",
			Subsystem: "embedding",
			Name:      "request_duration_seconds",
			Help:      "Latency of successful primary embedding calls",
			Buckets:   []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faq",
			Subsystem: "embedding",
			Name:      "tokens_total",
			Help:      "Tokens reported by embedding backends that meter usage",
		},
		[]string{"provider", "model", "type"}, // "prompt" / "total"
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faq",
			Subsystem: "embedding",
			Name:      "errors_total",
			Help:      "Failed primary embedding calls by error type",
		},
		[]string{"provider", "model", "error_type"},
	)

	// EmbeddingFallbackTotal counts vectors produced by the hash embedder instead of the primary.
	EmbeddingFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faq",
			Subsystem: "embedding",
			Name:      "fallback_total",
			Help:      "Embeddings served by the deterministic hash fallback",
		},
		[]string{"reason"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faq",
			Subsystem: "embedding",
			Name:      "cache_total",
			Help:      "Embedding cache lookups",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

// ObserveEmbedding records one primary embedding call. Duration is only
// observed on success so timeouts do not skew the latency histogram.
func ObserveEmbedding(provider, model string, start time.Time, outcome string) {
	if outcome == EmbedSuccess {
		EmbeddingRequestsTotal.WithLabelValues(provider, model, EmbedSuccess).Inc()
		EmbeddingRequestDuration.WithLabelValues(provider, model).Observe(time.Since(start).Seconds())
		return
	}
	EmbeddingRequestsTotal.WithLabelValues(provider, model, "error").Inc()
	EmbeddingErrorsTotal.WithLabelValues(provider, model, outcome).Inc()
}

// AddEmbeddingTokens records metered usage. Backends reporting no usage are skipped.
func AddEmbeddingTokens(provider, model string, prompt, total int) {
	if total <= 0 {
		return
	}
	EmbeddingTokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(prompt))
	EmbeddingTokensTotal.WithLabelValues(provider, model, "total").Add(float64(total))
}

var embMetricsRegistered bool

// RegisterEmbeddingMetrics registers Prometheus embedding metrics. Must be called once from main.
func RegisterEmbeddingMetrics() {
	if embMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		EmbeddingTokensTotal,
		EmbeddingErrorsTotal,
		EmbeddingFallbackTotal,
		EmbeddingCacheTotal,
	)
	embMetricsRegistered = true
}
