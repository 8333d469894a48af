package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExportsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "export_jobs_started_total",
			Help: "Total number of export jobs started",
		},
	)

	ExportsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "export_jobs_completed_total",
			Help: "Total number of export jobs completed successfully",
		},
	)

	ExportsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "export_jobs_failed_total",
			Help: "Total number of export jobs failed",
		},
		[]string{"error_code"},
	)

	ExportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "export_duration_seconds",
			Help:    "Duration of export jobs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	ExportRowsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "export_rows_written_total",
			Help: "Total number of data rows written across all exports",
		},
	)

	ExportFilesProduced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "export_files_produced_total",
			Help: "Total number of spreadsheet files produced",
		},
	)

	FieldAnomalies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "export_field_anomalies_total",
			Help: "Per-record extraction anomalies degraded to empty or partial values",
		},
		[]string{"field"},
	)

	ExportsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "export_jobs_active",
			Help: "Number of export jobs currently running",
		},
	)
)
