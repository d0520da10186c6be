// Package metrics provides Prometheus metrics for the minutes pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// webhookRequestsTotal counts inbound webhook calls by admission state.
	// Labels:
	//   - state: verify, health, event, rejected
	webhookRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minutes_webhook_requests_total",
			Help: "Total number of webhook requests by admission state",
		},
		[]string{"state"},
	)

	// publishTotal counts publish attempts per destination.
	// Labels:
	//   - destination: notion, slack, slack_dm, drive
	//   - status: success, failed
	publishTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minutes_publish_total",
			Help: "Total number of publish attempts per destination",
		},
		[]string{"destination", "status"},
	)

	// publishDuration records publish latency per destination.
	publishDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "minutes_publish_duration_seconds",
			Help:    "Duration of publish calls in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"destination"},
	)

	// runsTotal counts pipeline runs by final status (complete, partial, failed).
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minutes_pipeline_runs_total",
			Help: "Total number of pipeline runs by final status",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(webhookRequestsTotal)
	prometheus.MustRegister(publishTotal)
	prometheus.MustRegister(publishDuration)
	prometheus.MustRegister(runsTotal)
}

// RecordWebhook records one admission decision.
func RecordWebhook(state string) {
	webhookRequestsTotal.WithLabelValues(state).Inc()
}

// RecordPublish records the outcome and duration of one publish call.
func RecordPublish(destination string, succeeded bool, durationSeconds float64) {
	status := "success"
	if !succeeded {
		status = "failed"
	}
	publishTotal.WithLabelValues(destination, status).Inc()
	publishDuration.WithLabelValues(destination).Observe(durationSeconds)
}

// RecordRun records the final status of a pipeline run.
func RecordRun(status string) {
	runsTotal.WithLabelValues(status).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
