// Package metrics provides Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcome labels.
const (
	StatusSuccess   = "success"
	StatusNoResults = "no_results"
	StatusError     = "error"
)

// Document processing outcome labels.
const (
	DocStatusSuccess     = "success"
	DocStatusNotFound    = "not_found"
	DocStatusUnsupported = "unsupported"
	DocStatusError       = "error"
)

// Broker consumption outcome labels.
const (
	TaskOutcomeProcessed = "processed"
	TaskOutcomeFailed    = "failed"
	TaskOutcomeMalformed = "malformed"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_requests_total",
			Help: "Total number of RAG requests",
		},
		[]string{"status"},
	)

	RequestLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rag_request_latency_seconds",
			Help:    "End-to-end request latency in seconds",
			Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		},
	)

	VectorSearchLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rag_vector_search_seconds",
			Help:    "Query embedding plus vector search latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
	)

	LLMLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rag_llm_latency_seconds",
			Help:    "LLM call latency in seconds",
			Buckets: []float64{0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		},
	)

	DocumentsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_documents_processed_total",
			Help: "Total number of documents processed",
		},
		[]string{"status"},
	)

	TasksConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_tasks_consumed_total",
			Help: "Total number of ingestion tasks consumed from the broker",
		},
		[]string{"outcome"},
	)
)
