// Package telemetry collects run metrics and writes them in the node-exporter textfile format.
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "monoscope"

// Job statuses used as label values.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Metrics holds the collectors for one run. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	jobs        *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	retries     prometheus.Counter
	modules     *prometheus.GaugeVec
	owners      prometheus.Gauge
	runDuration prometheus.Gauge
	lastRun     prometheus.Gauge
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		jobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Analysis jobs by category and terminal status.",
		}, []string{"category", "status"}),
		jobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time of analysis jobs, including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		}, []string{"category"}),
		retries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_retries_total",
			Help:      "Analyzer attempts beyond the first.",
		}),
		modules: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "modules",
			Help:      "Discovered modules by category.",
		}, []string{"category"}),
		owners: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "owners",
			Help:      "Distinct owners seen in the run.",
		}),
		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
}

// ObserveJob records the terminal status and duration of one job.
func (m *Metrics) ObserveJob(category, status string, attempts int, d time.Duration) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(category, status).Inc()
	if status != StatusCancelled {
		m.jobDuration.WithLabelValues(category).Observe(d.Seconds())
	}
	if attempts > 1 {
		m.retries.Add(float64(attempts - 1))
	}
}

// SetModules records how many modules of a category were discovered.
func (m *Metrics) SetModules(category string, n int) {
	if m == nil {
		return
	}
	m.modules.WithLabelValues(category).Set(float64(n))
}

// SetOwners records the number of distinct owners.
func (m *Metrics) SetOwners(n int) {
	if m == nil {
		return
	}
	m.owners.Set(float64(n))
}

// ObserveRun records the run duration and completion time.
func (m *Metrics) ObserveRun(d time.Duration, finished time.Time) {
	if m == nil {
		return
	}
	m.runDuration.Set(d.Seconds())
	m.lastRun.Set(float64(finished.Unix()))
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// WriteTextfile atomically writes all metrics to path for the node-exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
