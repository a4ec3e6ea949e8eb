// Package metrics provides Prometheus metrics for index runs.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	// Namespace is the namespace for all indexer metrics.
	Namespace = "heline"

	// Subsystem is the subsystem for indexer metrics.
	Subsystem = "indexer"
)

// Repository results.
const (
	ResultIndexed = "indexed"
	ResultFailed  = "failed"
	ResultMissing = "missing"
	ResultInvalid = "invalid"
)

// Metrics holds the Prometheus metrics of the indexer. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RepositoriesTotal  *prometheus.CounterVec
	RepositoryDuration prometheus.Histogram
	FilesIndexedTotal  prometheus.Counter
	FilesSkippedTotal  *prometheus.CounterVec
	ChunksWrittenTotal *prometheus.CounterVec
	WriteFailuresTotal *prometheus.CounterVec
	LastRunTimestamp   prometheus.Gauge
}

// New creates the indexer metrics on a dedicated registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RepositoriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "repositories_total",
				Help:      "Total number of repositories processed",
			},
			[]string{"result"},
		),
		RepositoryDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "repository_duration_seconds",
				Help:      "Time spent acquiring and indexing a repository",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~17min
			},
		),
		FilesIndexedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "files_indexed_total",
				Help:      "Total number of files rendered and written",
			},
		),
		FilesSkippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "files_skipped_total",
				Help:      "Total number of files skipped",
			},
			[]string{"reason"},
		),
		ChunksWrittenTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "chunks_written_total",
				Help:      "Total number of chunks written to the backend",
			},
			[]string{"op"},
		),
		WriteFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "backend_write_failures_total",
				Help:      "Total number of failed backend writes",
			},
			[]string{"op"},
		),
		LastRunTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time of the last completed run",
			},
		),
	}
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RepositoryDone records the outcome of one repository.
func (m *Metrics) RepositoryDone(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.RepositoriesTotal.WithLabelValues(result).Inc()
	m.RepositoryDuration.Observe(d.Seconds())
}

// FileIndexed counts a file whose chunks were sent to the backend.
func (m *Metrics) FileIndexed() {
	if m == nil {
		return
	}
	m.FilesIndexedTotal.Inc()
}

// FileSkipped counts a skipped file.
func (m *Metrics) FileSkipped(reason string) {
	if m == nil {
		return
	}
	m.FilesSkippedTotal.WithLabelValues(reason).Inc()
}

// ChunkWritten counts a successful backend write.
func (m *Metrics) ChunkWritten(op string) {
	if m == nil {
		return
	}
	m.ChunksWrittenTotal.WithLabelValues(op).Inc()
}

// WriteFailed counts a failed backend write.
func (m *Metrics) WriteFailed(op string) {
	if m == nil {
		return
	}
	m.WriteFailuresTotal.WithLabelValues(op).Inc()
}

// RunFinished records the completion time of a run.
func (m *Metrics) RunFinished(t time.Time) {
	if m == nil {
		return
	}
	m.LastRunTimestamp.Set(float64(t.Unix()))
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Push sends the metrics to a Pushgateway, replacing the metrics of job.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job, runID string) error {
	if m == nil {
		return nil
	}
	pusher := push.New(gatewayURL, job).Gatherer(m.registry)
	if runID != "" {
		pusher = pusher.Grouping("run_id", runID)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
