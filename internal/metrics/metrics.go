// Package metrics provides Prometheus metrics for activitymap runs.
//
// A run is a short-lived batch job, so metrics live in their own registry and
// are pushed to a Pushgateway at the end of the run, or served by the
// preview server.
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

const namespace = "activitymap"

// Record outcomes.
const (
	OutcomeKept      = "kept"
	OutcomeSkipped   = "skipped"
	OutcomeDefaulted = "defaulted"
)

// Metrics holds the Prometheus metrics of one process.
//
// Metrics:
//   - activitymap_records_total{pipeline,source,outcome} - records seen by the normalizer
//   - activitymap_grid_cells - cells in the last heatmap grid
//   - activitymap_grid_active_days - cells with a positive value
//   - activitymap_tags_distinct - distinct tags in the last frequency table
//   - activitymap_run_duration_seconds{pipeline} - pipeline run time
//   - activitymap_runs_total{pipeline,status} - finished pipeline runs
//   - activitymap_last_success_timestamp_seconds{pipeline} - end of the last successful run
type Metrics struct {
	registry *prometheus.Registry

	RecordsTotal       *prometheus.CounterVec
	GridCells          prometheus.Gauge
	GridActiveDays     prometheus.Gauge
	TagsDistinct       prometheus.Gauge
	RunDuration        *prometheus.HistogramVec
	RunsTotal          *prometheus.CounterVec
	LastSuccessSeconds *prometheus.GaugeVec
}

// New creates metrics registered on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RecordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_total",
				Help:      "Total number of records seen by the normalizer",
			},
			[]string{"pipeline", "source", "outcome"}, // source: "notion" or "file"
		),

		GridCells: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "grid_cells",
				Help:      "Number of cells in the last heatmap grid",
			},
		),

		GridActiveDays: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "grid_active_days",
				Help:      "Number of days with activity in the last heatmap grid",
			},
		),

		TagsDistinct: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tags_distinct",
				Help:      "Number of distinct tags in the last frequency table",
			},
		),

		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of pipeline runs in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
			},
			[]string{"pipeline"},
		),

		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of finished pipeline runs",
			},
			[]string{"pipeline", "status"},
		),

		LastSuccessSeconds: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful pipeline run",
			},
			[]string{"pipeline"},
		),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRecords adds n records with outcome read from source by pipeline.
func (m *Metrics) RecordRecords(pipeline, source, outcome string, n int) {
	if n <= 0 {
		return
	}
	m.RecordsTotal.WithLabelValues(pipeline, source, outcome).Add(float64(n))
}

// RecordGrid records the size of a built grid.
func (m *Metrics) RecordGrid(cells, activeDays int) {
	m.GridCells.Set(float64(cells))
	m.GridActiveDays.Set(float64(activeDays))
}

// RecordTags records the size of a built frequency table.
func (m *Metrics) RecordTags(distinct int) {
	m.TagsDistinct.Set(float64(distinct))
}

// RecordRun records a finished run of pipeline.
func (m *Metrics) RecordRun(pipeline string, duration time.Duration, err error, finished time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.RunDuration.WithLabelValues(pipeline).Observe(duration.Seconds())
	m.RunsTotal.WithLabelValues(pipeline, status).Inc()
	if err == nil {
		m.LastSuccessSeconds.WithLabelValues(pipeline).Set(float64(finished.Unix()))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Push sends every metric to the Pushgateway at url under job, replacing
// the previous push of the same job.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
