package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "flashcards"

var (
	FeedbackRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feedback_recorded_total",
		Help:      "Feedback submissions by outcome (ok, invalid, error).",
	}, []string{"result"})

	StatUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "learning_stat_updates_total",
		Help:      "Heuristic stat upserts by category and outcome.",
	}, []string{"category", "result"})

	GuidanceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guidance_requests_total",
		Help:      "Generation guidance requests by mode (adaptive, baseline).",
	}, []string{"mode"})

	LearningDisabled = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "learning_safety_disabled",
		Help:      "1 when the safety governor last disabled adaptive learning.",
	})

	LearningTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "learning_tasks_total",
		Help:      "Learning tasks by queue mode and outcome.",
	}, []string{"mode", "result"})

	EventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "event_subscribers",
		Help:      "Connected learning event stream subscribers, including the alert notifier.",
	})

	AlertsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_sent_total",
		Help:      "Operator alerts by channel type and outcome (ok, error).",
	}, []string{"type", "result"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status class.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// BoolGauge converts a flag to a gauge value.
func BoolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
