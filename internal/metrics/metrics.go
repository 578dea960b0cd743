// Package metrics exposes Prometheus metrics for export runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "arboretum"

// Run outcomes used as the outcome label.
const (
	OutcomeSuccess    = "success"
	OutcomeFailure    = "failure"
	OutcomeInProgress = "in_progress"
)

// Collector holds the export metrics and the registry they live in.
type Collector struct {
	registry *prometheus.Registry

	runsTotal      *prometheus.CounterVec
	validRecords   prometheus.Gauge
	invalidRecords prometheus.Gauge
	duration       prometheus.Histogram
	lastGeneration prometheus.Gauge
	stepFailures   *prometheus.CounterVec
}

// NewCollector registers the metrics in registry, or in a fresh registry
// when nil.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "runs_total",
			Help:      "Export runs by outcome.",
		}, []string{"outcome"}),
		validRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "valid_records",
			Help:      "Records written by the last completed run.",
		}),
		invalidRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "invalid_records",
			Help:      "Records skipped by the last completed run.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "duration_seconds",
			Help:      "Duration of export runs.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		lastGeneration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "last_generation_timestamp_seconds",
			Help:      "Unix time of the last successful generation.",
		}),
		stepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "step_failures_total",
			Help:      "Failed post-publish steps by name.",
		}, []string{"step"}),
	}

	registry.MustRegister(c.runsTotal, c.validRecords, c.invalidRecords, c.duration, c.lastGeneration, c.stepFailures)
	return c
}

// RecordRun records a finished run. Counts are only updated for runs that
// got as far as building the dataset.
func (c *Collector) RecordRun(outcome string, valid, invalid int, elapsed time.Duration) {
	c.runsTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeInProgress {
		return
	}
	c.duration.Observe(elapsed.Seconds())
	if valid >= 0 {
		c.validRecords.Set(float64(valid))
		c.invalidRecords.Set(float64(invalid))
	}
}

// SetLastGeneration records t as the last successful generation.
func (c *Collector) SetLastGeneration(t time.Time) {
	c.lastGeneration.Set(float64(t.Unix()))
}

// RecordStepFailure counts a failed post-publish step.
func (c *Collector) RecordStepFailure(step string) {
	c.stepFailures.WithLabelValues(step).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
