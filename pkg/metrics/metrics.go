package metrics

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordLouvainRun records the outcome of a clustering run. levels and
// bestModularity are only observed for successful runs.
func (r *Registry) RecordLouvainRun(status string, duration time.Duration, levels int, bestModularity float64) {
	r.LouvainRunsTotal.WithLabelValues(status).Inc()
	r.LouvainRunDuration.Observe(duration.Seconds())
	if status != "success" {
		return
	}
	r.LouvainLevelsPerRun.Observe(float64(levels))
	r.LouvainBestModularity.Set(bestModularity)
}

// RecordLouvainLevel records one recorded level
func (r *Registry) RecordLouvainLevel(nodes, communities, passes, moves int, duration time.Duration) {
	r.LouvainLevelsTotal.Inc()
	r.LouvainLevelDuration.Observe(duration.Seconds())
	r.LouvainLevelPasses.Observe(float64(passes))
	r.LouvainLevelMoves.Observe(float64(moves))
	if nodes > 0 {
		r.LouvainLevelReduction.Observe(float64(communities) / float64(nodes))
	}
}

// SetGraphSize records the size of the graph about to be clustered
func (r *Registry) SetGraphSize(nodes, edges int) {
	r.LouvainGraphNodes.Set(float64(nodes))
	r.LouvainGraphEdges.Set(float64(edges))
}

// RecordOperation records a snapshot, store or event operation
func (r *Registry) RecordOperation(component, operation, status string, duration time.Duration) {
	r.OperationsTotal.WithLabelValues(component, operation, status).Inc()
	r.OperationDuration.WithLabelValues(component, operation).Observe(duration.Seconds())
}

// RecordEventPublished counts one published event
func (r *Registry) RecordEventPublished(topic string) {
	r.EventsPublishedTotal.WithLabelValues(topic).Inc()
}

// UpdateSystemMetrics refreshes uptime, goroutine and memory gauges
func (r *Registry) UpdateSystemMetrics() {
	r.mu.RLock()
	started := r.started
	r.mu.RUnlock()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	r.UptimeSeconds.Set(time.Since(started).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(mem.Alloc))
	r.MemorySysBytes.Set(float64(mem.Sys))
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// WriteTextfile writes the registry to path for the node exporter textfile
// collector, which batch runs use instead of a scrape endpoint.
func (r *Registry) WriteTextfile(path string) error {
	r.UpdateSystemMetrics()
	return prometheus.WriteToTextfile(path, r.registry)
}
