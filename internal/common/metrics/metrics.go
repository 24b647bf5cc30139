// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	EvaluationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "underwriting_evaluations_total",
			Help: "Total number of completed qualification evaluations by status and grade",
		},
		[]string{"status", "grade"},
	)

	EvaluationScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "underwriting_evaluation_score",
			Help:    "Distribution of total qualification scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)
)
