// Package metrics exposes Prometheus instrumentation for the pipeline and HTTP layer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values
const (
	OutcomeOK = "ok"
)

// Collector holds all Prometheus metrics for the application.
// Each collector owns its registry so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Pipeline metrics
	Resolves         *prometheus.CounterVec
	ResolveDuration  *prometheus.HistogramVec
	InteractionFetch *prometheus.CounterVec
	Alignments       *prometheus.CounterVec
	AlignmentCells   prometheus.Histogram
	GraphEdges       prometheus.Histogram
}

// NewCollector creates a collector with the given namespace
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Resolves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolve_total",
				Help:      "Record resolutions by wire format and outcome",
			},
			[]string{"format", "outcome"},
		),
		ResolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolve_duration_seconds",
				Help:      "Record resolution duration in seconds, including retries",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"format"},
		),
		InteractionFetch: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "interactions_fetch_total",
				Help:      "Interaction source fetches by outcome",
			},
			[]string{"outcome"},
		),
		Alignments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alignment_total",
				Help:      "Alignments by outcome",
			},
			[]string{"outcome"},
		),
		AlignmentCells: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "alignment_cells",
				Help:      "Score matrix cells per alignment",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 7),
			},
		),
		GraphEdges: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "graph_edges",
				Help:      "Edges per built interaction graph",
				Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
			},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Resolves,
		c.ResolveDuration,
		c.InteractionFetch,
		c.Alignments,
		c.AlignmentCells,
		c.GraphEdges,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Registry returns the collector's registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// RecordHTTPRequest records one served request
func (c *Collector) RecordHTTPRequest(method, route, status string, elapsed time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordResolve records one resolution; outcome is OutcomeOK or an error kind
func (c *Collector) RecordResolve(format, outcome string, elapsed time.Duration) {
	c.Resolves.WithLabelValues(format, outcome).Inc()
	c.ResolveDuration.WithLabelValues(format).Observe(elapsed.Seconds())
}

// RecordInteractionFetch records one interaction source call
func (c *Collector) RecordInteractionFetch(outcome string) {
	c.InteractionFetch.WithLabelValues(outcome).Inc()
}

// RecordAlignment records one alignment and, when it ran, its matrix size
func (c *Collector) RecordAlignment(outcome string, cells int64) {
	c.Alignments.WithLabelValues(outcome).Inc()
	if cells > 0 {
		c.AlignmentCells.Observe(float64(cells))
	}
}

// RecordGraph records the size of a built graph
func (c *Collector) RecordGraph(edges int) {
	c.GraphEdges.Observe(float64(edges))
}
