// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TurnsTotal counts conversation turns by mode (intent, script) and
	// outcome (the intent or next state, or "fallback").
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_turns_total",
			Help: "Total number of conversation turns handled",
		},
		[]string{"mode", "outcome"},
	)

	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voice_turn_duration_seconds",
			Help:    "Duration of a conversation turn in seconds",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2, 3, 5},
		},
		[]string{"mode"},
	)

	IntentsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nlu_intents_classified_total",
			Help: "Total number of utterances classified per intent",
		},
		[]string{"intent"},
	)

	// CollaboratorCalls counts outbound calls by collaborator (classifier,
	// dashboard, cache) and result (ok, error, timeout, hit, miss).
	CollaboratorCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collaborator_calls_total",
			Help: "Total number of calls to downstream collaborators",
		},
		[]string{"collaborator", "result"},
	)

	SamplesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nlu_training_samples_generated_total",
			Help: "Total number of synthetic training samples generated",
		},
		[]string{"intent"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "route"},
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

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)
