package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lernhub_webhook_events_total",
			Help: "Webhook deliveries by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	WebhookDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lernhub_webhook_duration_seconds",
			Help:    "Time spent verifying and reconciling a webhook delivery",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lernhub_notification_failures_total",
			Help: "Notifications that could not be handed to the job queue",
		},
		[]string{"template"},
	)

	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lernhub_jobs_processed_total",
			Help: "Background jobs by type and final status",
		},
		[]string{"job_type", "status"},
	)

	AccessChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lernhub_access_checks_total",
			Help: "Course access evaluations by grant type",
		},
		[]string{"grant"},
	)
)
