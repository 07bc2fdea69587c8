package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval and generation Prometheus metrics.
var (
	RetrievalDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "faq",
			Name:      "retrieval_duration_seconds",
			Help:      "Time from query embedding to ranked results",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	// RetrievalTotal splits retrievals by outcome; no_results over total is the no-result rate.
	RetrievalTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faq",
			Name:      "retrieval_total",
			Help:      "Retrievals by outcome",
		},
		[]string{"outcome"}, // "results" / "no_results" / "error"
	)

	SearchSkippedChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faq",
			Name:      "search_skipped_chunks_total",
			Help:      "Candidate chunks excluded from similarity scoring",
		},
		[]string{"reason"}, // "dimension" / "model"
	)

	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faq",
			Name:      "generation_requests_total",
			Help:      "Generation backend attempts by outcome",
		},
		[]string{"backend", "status"},
	)

	GenerationBackendFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faq",
			Name:      "generation_backend_failures_total",
			Help:      "Generation backend failures by reason",
		},
		[]string{"backend", "reason"}, // "timeout" / "error" / "invalid_answer"
	)

	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "faq",
			Name:      "generation_duration_seconds",
			Help:      "Generation backend call duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"backend"},
	)

	AnswersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faq",
			Name:      "answers_total",
			Help:      "Answers returned to users by producing model kind",
		},
		[]string{"kind"}, // "llm" / "rule_based" / "no_results" / "error"
	)
)

var ragMetricsRegistered bool

// RegisterRAGMetrics registers retrieval and generation metrics. Must be called once from main.
func RegisterRAGMetrics() {
	if ragMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalDuration)
	prometheus.MustRegister(RetrievalTotal)
	prometheus.MustRegister(SearchSkippedChunksTotal)
	prometheus.MustRegister(GenerationRequestsTotal)
	prometheus.MustRegister(GenerationBackendFailuresTotal)
	prometheus.MustRegister(GenerationDuration)
	prometheus.MustRegister(AnswersTotal)
	ragMetricsRegistered = true
}
