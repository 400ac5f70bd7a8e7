// Package metrics exposes the service's Prometheus instrumentation through
// a single Registry struct that is built once and injected.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application.
type Registry struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Pipeline metrics
	RowsValidatedTotal *prometheus.CounterVec
	GraphBuildsTotal   *prometheus.CounterVec
	GraphBuildDuration prometheus.Histogram
	GraphNodesPerBuild prometheus.Histogram
	GraphEdgesPerBuild prometheus.Histogram

	// Cache metrics
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
	CacheSize        prometheus.Gauge

	// Workflow metrics
	WorkflowSessionsActive prometheus.Gauge
	WorkflowStepAdvances   *prometheus.CounterVec
	WorkflowExportsTotal   prometheus.Counter

	// Inference boundary metrics
	InferenceCallsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	registryOnce    sync.Once
)

// NewRegistry creates and registers all metrics against a fresh Prometheus
// registry.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}

	r.HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bowtie_http_requests_total",
		Help: "Total HTTP requests by method, path and status",
	}, []string{"method", "path", "status"})

	r.HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bowtie_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	r.HTTPRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bowtie_http_requests_in_flight",
		Help: "HTTP requests currently being served",
	})

	r.RowsValidatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bowtie_rows_validated_total",
		Help: "Rows passed through the validator by outcome",
	}, []string{"outcome"})

	r.GraphBuildsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bowtie_graph_builds_total",
		Help: "Diagram builds by cache outcome",
	}, []string{"source"})

	r.GraphBuildDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bowtie_graph_build_duration_seconds",
		Help:    "Time spent building node and edge sets",
		Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
	})

	r.GraphNodesPerBuild = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bowtie_graph_nodes_per_build",
		Help:    "Node count per built diagram",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500},
	})

	r.GraphEdgesPerBuild = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bowtie_graph_edges_per_build",
		Help:    "Edge count per built diagram",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500},
	})

	r.CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bowtie_cache_hits_total",
		Help: "Graph cache hits",
	})

	r.CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bowtie_cache_misses_total",
		Help: "Graph cache misses",
	})

	r.CacheSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bowtie_cache_entries",
		Help: "Graph cache entry count",
	})

	r.WorkflowSessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bowtie_workflow_sessions_active",
		Help: "Workflow sessions currently stored",
	})

	r.WorkflowStepAdvances = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bowtie_workflow_step_advances_total",
		Help: "Wizard step transitions by step",
	}, []string{"step"})

	r.WorkflowExportsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bowtie_workflow_exports_total",
		Help: "Tables exported from completed wizards",
	})

	r.InferenceCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bowtie_inference_calls_total",
		Help: "Inference boundary calls by engine and outcome",
	}, []string{"engine", "outcome"})

	r.registry.MustRegister(
		r.HTTPRequestsTotal, r.HTTPRequestDuration, r.HTTPRequestsInFlight,
		r.RowsValidatedTotal, r.GraphBuildsTotal, r.GraphBuildDuration,
		r.GraphNodesPerBuild, r.GraphEdgesPerBuild,
		r.CacheHitsTotal, r.CacheMissesTotal, r.CacheSize,
		r.WorkflowSessionsActive, r.WorkflowStepAdvances, r.WorkflowExportsTotal,
		r.InferenceCallsTotal,
	)

	return r
}

// Default returns the process-wide registry.
func Default() *Registry {
	registryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Prometheus exposes the underlying registry for the /metrics handler and
// for test gathering.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.registry
}

// RecordHTTPRequest records an HTTP request with its duration.
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordGraphBuild records one diagram build.
func (r *Registry) RecordGraphBuild(fromCache bool, duration time.Duration, nodes, edges int) {
	source := "built"
	if fromCache {
		source = "cache"
		r.CacheHitsTotal.Inc()
	} else {
		r.CacheMissesTotal.Inc()
	}
	r.GraphBuildsTotal.WithLabelValues(source).Inc()
	if !fromCache {
		r.GraphBuildDuration.Observe(duration.Seconds())
		r.GraphNodesPerBuild.Observe(float64(nodes))
		r.GraphEdgesPerBuild.Observe(float64(edges))
	}
}

// RecordInferenceCall records one inference boundary call.
func (r *Registry) RecordInferenceCall(engine string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "unavailable"
	}
	r.InferenceCallsTotal.WithLabelValues(engine, outcome).Inc()
}
