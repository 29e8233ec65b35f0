package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initLouvainMetrics() {
	r.LouvainRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "louvain_runs_total",
			Help: "Total number of clustering runs by outcome",
		},
		[]string{"status"},
	)

	r.LouvainRunDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "louvain_run_duration_seconds",
			Help:    "Wall time of a clustering run in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)

	r.LouvainLevelsPerRun = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "louvain_levels_per_run",
			Help:    "Number of recorded levels per successful run",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		},
	)

	r.LouvainBestModularity = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "louvain_best_modularity",
			Help: "Best modularity of the most recent successful run",
		},
	)

	r.LouvainLevelsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "louvain_levels_total",
			Help: "Total number of recorded levels",
		},
	)

	r.LouvainLevelDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "louvain_level_duration_seconds",
			Help:    "Time spent optimizing one level in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)

	r.LouvainLevelPasses = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "louvain_level_passes",
			Help:    "Local moving passes per level",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 50, 100, 1000},
		},
	)

	r.LouvainLevelMoves = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "louvain_level_moves",
			Help:    "Node moves per level",
			Buckets: prometheus.ExponentialBuckets(1, 10, 8),
		},
	)

	r.LouvainLevelReduction = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "louvain_level_reduction_ratio",
			Help:    "Communities produced per node optimized on a level",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		},
	)

	r.LouvainGraphNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "louvain_graph_nodes",
			Help: "Node count of the most recently loaded graph",
		},
	)

	r.LouvainGraphEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "louvain_graph_edges",
			Help: "Edge count of the most recently loaded graph",
		},
	)
}

func (r *Registry) initOperationMetrics() {
	r.OperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "louvain_operations_total",
			Help: "Total number of collaborator operations",
		},
		[]string{"component", "operation", "status"},
	)

	r.OperationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "louvain_operation_duration_seconds",
			Help:    "Collaborator operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"component", "operation"},
	)

	r.EventsPublishedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "louvain_events_published_total",
			Help: "Total number of published clustering events",
		},
		[]string{"topic"},
	)
}
