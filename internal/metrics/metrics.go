// Package metrics exposes Prometheus collectors for the indexing pipeline,
// retrieval, report synthesis and the HTTP surface.
//
// Collectors live on a private registry so tests can build independent
// instances. All recording methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dossier"

// Indexing outcomes.
const (
	OutcomeIndexed = "indexed"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Metrics holds every collector.
type Metrics struct {
	registry *prometheus.Registry

	documents     *prometheus.CounterVec
	chunks        prometheus.Histogram
	indexDuration *prometheus.HistogramVec
	searches      *prometheus.CounterVec
	reports       *prometheus.CounterVec
	reportSeconds *prometheus.HistogramVec
	tasks         *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New creates collectors registered on a fresh registry, together with the
// Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexing",
			Name:      "documents_total",
			Help:      "Documents processed by the indexing pipeline, by outcome.",
		}, []string{"outcome"}),
		chunks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "indexing",
			Name:      "chunks_per_document",
			Help:      "Number of chunks stored per indexed document.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		indexDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "indexing",
			Name:      "duration_seconds",
			Help:      "Wall time of one indexing run, by outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "searches_total",
			Help:      "Similarity searches, by whether any chunk cleared the threshold.",
		}, []string{"result"}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reports",
			Name:      "generated_total",
			Help:      "Reports generated, by type and generator.",
		}, []string{"type", "generator"}),
		reportSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reports",
			Name:      "duration_seconds",
			Help:      "Wall time of report synthesis, by generator.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 90, 120},
		}, []string{"generator"}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "tasks_total",
			Help:      "Queue tasks handled, by type and outcome.",
		}, []string{"type", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency, by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.documents, m.chunks, m.indexDuration, m.searches,
		m.reports, m.reportSeconds, m.tasks, m.httpRequests, m.httpDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// DocumentIndexed records one indexing run.
func (m *Metrics) DocumentIndexed(outcome string, chunks int, d time.Duration) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(outcome).Inc()
	m.indexDuration.WithLabelValues(outcome).Observe(d.Seconds())
	if outcome == OutcomeIndexed {
		m.chunks.Observe(float64(chunks))
	}
}

// Search records a similarity search.
func (m *Metrics) Search(hits int) {
	if m == nil {
		return
	}
	result := "hit"
	if hits == 0 {
		result = "empty"
	}
	m.searches.WithLabelValues(result).Inc()
}

// ReportGenerated records a finished report.
func (m *Metrics) ReportGenerated(reportType, generator string, d time.Duration) {
	if m == nil {
		return
	}
	m.reports.WithLabelValues(reportType, generator).Inc()
	m.reportSeconds.WithLabelValues(generator).Observe(d.Seconds())
}

// TaskHandled records a queue task.
func (m *Metrics) TaskHandled(taskType, outcome string) {
	if m == nil {
		return
	}
	m.tasks.WithLabelValues(taskType, outcome).Inc()
}

// HTTPRequest records a served request.
func (m *Metrics) HTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
