// Package observability provides Prometheus metrics for the smoothing pass.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	registry *prometheus.Registry

	// Unit metrics
	UnitsProcessed *prometheus.CounterVec // side, outcome (stored|skipped)
	UnitsSkipped   *prometheus.CounterVec // side, reason
	FitDuration    prometheus.Histogram
	SelectedLambda prometheus.Histogram

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  prometheus.Histogram
	CurvesStored      prometheus.Counter

	// Ingestion metrics
	BidRecordsLoaded *prometheus.CounterVec

	// Health metrics
	LastSuccessfulPipeline prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "spot_curve_lab"
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		UnitsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "smoothing",
			Name:      "units_processed_total",
			Help:      "Total number of (side, date, hour) units processed by outcome",
		}, []string{"side", "outcome"}),
		UnitsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "smoothing",
			Name:      "units_skipped_total",
			Help:      "Total number of skipped units by reason",
		}, []string{"side", "reason"}),
		FitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "smoothing",
			Name:      "fit_duration_seconds",
			Help:      "Per-unit curve build duration",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		SelectedLambda: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "smoothing",
			Name:      "selected_lambda",
			Help:      "Smoothing parameter selected by GCV",
			Buckets:   prometheus.ExponentialBuckets(1e-4, 1.7782794100389228, 13),
		}),

		PipelineRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of smoothing passes by status",
		}, []string{"status"}),
		PipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Smoothing pass duration",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		CurvesStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "curves_stored_total",
			Help:      "Total number of curves written to the curve store",
		}),

		BidRecordsLoaded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "bid_records_loaded_total",
			Help:      "Total number of bid records loaded by side",
		}, []string{"side"}),

		LastSuccessfulPipeline: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful smoothing pass",
		}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordCurve records a stored unit and its fit.
func (m *Metrics) RecordCurve(side string, lambda float64, d time.Duration) {
	m.UnitsProcessed.WithLabelValues(side, "stored").Inc()
	m.SelectedLambda.Observe(lambda)
	m.FitDuration.Observe(d.Seconds())
}

// RecordSkip records a skipped unit.
func (m *Metrics) RecordSkip(side, reason string) {
	m.UnitsProcessed.WithLabelValues(side, "skipped").Inc()
	m.UnitsSkipped.WithLabelValues(side, reason).Inc()
}

// RecordPipelineRun records a finished pass.
func (m *Metrics) RecordPipelineRun(status string, d time.Duration, stored int) {
	m.PipelineRunsTotal.WithLabelValues(status).Inc()
	m.PipelineDuration.Observe(d.Seconds())
	m.CurvesStored.Add(float64(stored))
	if status == "success" {
		m.LastSuccessfulPipeline.SetToCurrentTime()
	}
}
