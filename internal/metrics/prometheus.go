package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QuestionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askdesk_question_duration_seconds",
			Help:    "End-to-end question processing duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"decision"},
	)

	QuestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdesk_questions_total",
			Help: "Total number of questions processed",
		},
		[]string{"decision"},
	)

	QuestionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdesk_question_errors_total",
			Help: "Total number of questions that failed",
		},
		[]string{"kind"},
	)

	EscalationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "askdesk_escalations_total",
			Help: "Total number of tickets created by escalation",
		},
	)

	RetrievedChunks = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "askdesk_retrieved_chunks",
			Help:    "Number of chunks retrieved per question after filtering",
			Buckets: []float64{0, 1, 2, 4, 8, 16},
		},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdesk_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdesk_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdesk_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	IndexDocuments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "askdesk_index_documents",
			Help: "Documents in the active index generation",
		},
	)

	IndexChunks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "askdesk_index_chunks",
			Help: "Chunks in the active index generation",
		},
	)

	IndexRebuilds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "askdesk_index_rebuilds_total",
			Help: "Total number of completed index rebuilds",
		},
	)
)

func Init() {
	prometheus.MustRegister(QuestionDuration)
	prometheus.MustRegister(QuestionsTotal)
	prometheus.MustRegister(QuestionErrors)
	prometheus.MustRegister(EscalationsTotal)
	prometheus.MustRegister(RetrievedChunks)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(IndexDocuments)
	prometheus.MustRegister(IndexChunks)
	prometheus.MustRegister(IndexRebuilds)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
