package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Clustering Metrics
	LouvainRunsTotal      *prometheus.CounterVec
	LouvainRunDuration    prometheus.Histogram
	LouvainLevelsPerRun   prometheus.Histogram
	LouvainBestModularity prometheus.Gauge
	LouvainLevelsTotal    prometheus.Counter
	LouvainLevelDuration  prometheus.Histogram
	LouvainLevelPasses    prometheus.Histogram
	LouvainLevelMoves     prometheus.Histogram
	LouvainLevelReduction prometheus.Histogram
	LouvainGraphNodes     prometheus.Gauge
	LouvainGraphEdges     prometheus.Gauge

	// Collaborator Metrics (snapshot, store, events)
	OperationsTotal      *prometheus.CounterVec
	OperationDuration    *prometheus.HistogramVec
	EventsPublishedTotal *prometheus.CounterVec
	AuthFailuresTotal    prometheus.Counter

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
	started  time.Time
	mu       sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		started:  time.Now(),
	}

	r.initHTTPMetrics()
	r.initLouvainMetrics()
	r.initOperationMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
