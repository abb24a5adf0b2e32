// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExportJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "idcards_export_jobs_total",
		Help: "Export jobs by mode and result.",
	}, []string{"mode", "result"})

	ExportPages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "idcards_export_pages_total",
		Help: "Pages written to successful exports.",
	})

	ExportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "idcards_export_duration_seconds",
		Help:    "Wall time of export jobs.",
		Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"mode"})

	QualityIssues = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "idcards_quality_issues_total",
		Help: "Validation findings by code and severity.",
	}, []string{"code", "severity"})

	PhotosProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "idcards_photos_processed_total",
		Help: "Photo normalizations by result.",
	}, []string{"result"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "idcards_http_rate_limited_total",
		Help: "Requests rejected by the rate limiter.",
	})
)
