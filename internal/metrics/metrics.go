// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChatAnswers counts routed chat messages by the tier that answered.
	ChatAnswers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dobbs_chat_answers_total",
			Help: "Chat messages answered, by source (faq, generative, fallback)",
		},
		[]string{"source"},
	)

	// SchedulingIntents counts chat answers flagged for the appointment flow.
	SchedulingIntents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dobbs_chat_scheduling_intents_total",
			Help: "Chat answers that opened the appointment flow",
		},
	)

	GenerativeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dobbs_generative_duration_seconds",
			Help:    "Latency of remote model calls",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		},
		[]string{"outcome"},
	)

	GenerativeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dobbs_generative_failures_total",
			Help: "Remote model calls replaced by a fixed answer, by reason",
		},
		[]string{"reason"},
	)

	AnswerCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dobbs_answer_cache_lookups_total",
			Help: "Generated-answer cache lookups, by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	AppointmentsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dobbs_appointments_created_total",
			Help: "Appointment requests accepted",
		},
	)

	AppointmentsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dobbs_appointments_rejected_total",
			Help: "Appointment requests that failed validation",
		},
	)

	LeadExports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dobbs_lead_exports_total",
			Help: "Lead file export jobs processed, by status",
		},
		[]string{"status"},
	)

	SpeechRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dobbs_tts_requests_total",
			Help: "Text-to-speech requests, by status",
		},
		[]string{"status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dobbs_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
