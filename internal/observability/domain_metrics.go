package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docmesh_queries_total",
			Help: "Total number of processed natural-language queries by category and outcome.",
		},
		[]string{"category", "status"},
	)
	queryDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docmesh_query_duration_seconds",
			Help:    "End-to-end latency of natural-language queries by category.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"category"},
	)
	modelCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docmesh_model_calls_total",
			Help: "Total number of language model calls by result.",
		},
		[]string{"status"},
	)
	modelCallDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docmesh_model_call_duration_seconds",
			Help:    "Language model call latency.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)
	operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docmesh_operations_total",
			Help: "Total number of dispatched database operations by operation and result.",
		},
		[]string{"operation", "status"},
	)
	snapshotCollections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "docmesh_snapshot_collections",
			Help: "Number of collections in the current schema snapshot.",
		},
	)
	exportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docmesh_exports_total",
			Help: "Total number of result exports by result.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		queriesTotal,
		queryDurationSeconds,
		modelCallsTotal,
		modelCallDurationSeconds,
		operationsTotal,
		snapshotCollections,
		exportsTotal,
	)
}

func ObserveQuery(category, status string, elapsed time.Duration) {
	queriesTotal.WithLabelValues(category, status).Inc()
	queryDurationSeconds.WithLabelValues(category).Observe(elapsed.Seconds())
}

func ObserveModelCall(status string, elapsed time.Duration) {
	modelCallsTotal.WithLabelValues(status).Inc()
	modelCallDurationSeconds.Observe(elapsed.Seconds())
}

func IncrementOperation(operation, status string) {
	if operation == "" {
		operation = "unknown"
	}
	operationsTotal.WithLabelValues(operation, status).Inc()
}

func SetSnapshotCollections(count int) {
	if count < 0 {
		count = 0
	}
	snapshotCollections.Set(float64(count))
}

func IncrementExport(status string) {
	exportsTotal.WithLabelValues(status).Inc()
}
