package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rag_assistant"

var (
	// MessagesProcessed counts pipeline runs by outcome (done, errored, invalid)
	MessagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_processed_total",
		Help:      "Messages processed by the conversation pipeline.",
	}, []string{"outcome"})

	// ContextSource counts which context provenance answered a message
	ContextSource = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "context_source_total",
		Help:      "Context provenance used per message (files, search, none).",
	}, []string{"source"})

	// RetrievalServed counts searches answered by each retrieval level
	RetrievalServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retrieval_served_total",
		Help:      "Searches answered by each retrieval level.",
	}, []string{"level"})

	// RetrievalFallbacks counts failures that moved a search to the next level
	RetrievalFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retrieval_fallbacks_total",
		Help:      "Retrieval level failures that caused a fallback.",
	}, []string{"level"})

	// GenerationFailures counts model provider failures
	GenerationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generation_failures_total",
		Help:      "Model generation failures by provider.",
	}, []string{"provider"})

	// PipelineDuration observes end-to-end message latency
	PipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pipeline_duration_seconds",
		Help:      "End-to-end message processing time.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	})

	// FilesSwept counts uploaded files removed by age
	FilesSwept = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "files_swept_total",
		Help:      "Uploaded files removed by the cleanup job.",
	})

	// SessionsEvicted counts sessions dropped by expiry or capacity
	SessionsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_evicted_total",
		Help:      "Conversation sessions evicted by expiry or capacity.",
	})
)

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
