// internal/common/metrics/metrics.go
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recommendation outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

// Directory cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

var (
	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of jobs currently being processed",
		},
		[]string{"task_type"},
	)

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

	RecommendationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_requests_total",
			Help: "Recommendation requests by outcome",
		},
		[]string{"outcome"},
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "End-to-end duration of a recommendation",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
	)

	RecommendationCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_candidates",
			Help:    "Repairers left after the distance filter",
			Buckets: []float64{0, 1, 3, 6, 10, 25, 50, 100, 250, 500},
		},
	)

	DirectoryFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "directory_fetch_duration_seconds",
			Help:    "Duration of repairer directory reads",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	DirectoryCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_cache_lookups_total",
			Help: "Directory cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)
)

func RecordRecommendation(outcome string, duration time.Duration, candidates int) {
	RecommendationRequests.WithLabelValues(outcome).Inc()
	RecommendationDuration.Observe(duration.Seconds())
	if outcome != OutcomeError {
		RecommendationCandidates.Observe(float64(candidates))
	}
}

func RecordDirectoryFetch(source string, duration time.Duration) {
	DirectoryFetchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

func RecordCacheLookup(result string) {
	DirectoryCacheLookups.WithLabelValues(result).Inc()
}

func RecordHTTPRequest(route string, code int) {
	HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
