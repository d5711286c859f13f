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

	RankingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewards_rankings_total",
			Help: "Best-card rankings computed, by overall status",
		},
		[]string{"status"},
	)

	CollaboratorFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewards_collaborator_fallbacks_total",
			Help: "Times a ranking collaborator was ignored in favour of the deterministic order",
		},
		[]string{"collaborator", "reason"},
	)

	MerchantResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewards_merchant_resolutions_total",
			Help: "Merchant lookups by resolution status",
		},
		[]string{"status"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rewards_operation_duration_seconds",
			Help:    "Duration of engine operations in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"operation"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewards_cache_requests_total",
			Help: "Read-through cache lookups by key kind and result",
		},
		[]string{"kind", "result"},
	)
)
