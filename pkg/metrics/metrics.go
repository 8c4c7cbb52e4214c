package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the service. Each collector owns
// its registry so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Pipeline metrics
	Acquisitions       *prometheus.CounterVec
	Generations        *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	Exports            *prometheus.CounterVec
	NoteOperations     *prometheus.CounterVec
	LiveSessionsActive prometheus.Gauge
}

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
		Acquisitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "acquisitions_total",
				Help:      "Transcript acquisitions by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		Generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generations_total",
				Help:      "Content generations by kind and fallback reason",
			},
			[]string{"kind", "fallback"},
		),
		GenerationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Time spent waiting on the language model",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"kind"},
		),
		Exports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exports_total",
				Help:      "Document exports by content type",
			},
			[]string{"type"},
		),
		NoteOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "note_operations_total",
				Help:      "Note store operations by kind and status",
			},
			[]string{"operation", "status"},
		),
		LiveSessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "live_sessions_active",
				Help:      "Open live transcription sessions",
			},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Acquisitions,
		c.Generations,
		c.GenerationDuration,
		c.Exports,
		c.NoteOperations,
		c.LiveSessionsActive,
	)

	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (c *Collector) RecordAcquisition(source string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.Acquisitions.WithLabelValues(source, outcome).Inc()
}

// RecordGeneration counts one generation. An empty fallback reason means the
// model output was used.
func (c *Collector) RecordGeneration(kind, fallback string, elapsed time.Duration) {
	if fallback == "" {
		fallback = "none"
	}
	c.Generations.WithLabelValues(kind, fallback).Inc()
	c.GenerationDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (c *Collector) RecordExport(contentType string) {
	c.Exports.WithLabelValues(contentType).Inc()
}

func (c *Collector) RecordNoteOperation(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.NoteOperations.WithLabelValues(operation, status).Inc()
}
