package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "research"

var (
	TasksSubmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_submitted_total",
			Help:      "Total number of research tasks submitted.",
		},
	)

	TasksCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_completed_total",
			Help:      "Total number of research tasks completed, labeled by summary outcome.",
		},
		[]string{"outcome"},
	)

	TaskDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "End-to-end latency from task submission to completion (seconds).",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 300, 600},
		},
		[]string{"outcome"},
	)

	DiscoveryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_total",
			Help:      "Total number of search provider calls, labeled by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	SourceFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetch_total",
			Help:      "Total number of page extractions, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	SynthesisTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_total",
			Help:      "Total number of summary attempts, labeled by outcome (ok, failed, disabled, empty).",
		},
		[]string{"outcome"},
	)

	SearchCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_cache_total",
			Help:      "Search cache lookups, labeled by result (hit, miss, error).",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		TasksSubmittedTotal,
		TasksCompletedTotal,
		TaskDurationSeconds,
		DiscoveryTotal,
		SourceFetchTotal,
		SynthesisTotal,
		SearchCacheTotal,
	)
}
