// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// CompletionDuration tracks LLM completion duration.
	CompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_completion_duration_seconds",
			Help:    "LLM completion duration in seconds",
			Buckets: []float64{.5, 1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"provider", "model", "status"},
	)

	// CompletionTokensTotal tracks total LLM tokens processed.
	CompletionTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_completion_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"provider", "model", "direction"},
	)

	// ThreadsCreatedTotal tracks total conversation threads created.
	ThreadsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_threads_created_total",
			Help: "Total conversation threads created",
		},
		[]string{"provider"},
	)

	// ChatInteractionsTotal tracks chat interactions by provider and outcome.
	ChatInteractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_chat_interactions_total",
			Help: "Total chat interactions processed",
		},
		[]string{"provider", "status"},
	)

	// PreferenceSwitchesTotal tracks response preference toggles.
	PreferenceSwitchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_preference_switches_total",
			Help: "Total response preference switches",
		},
	)

	// EventsPublishedTotal tracks thread events published to NATS.
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_events_published_total",
			Help: "Total thread events published",
		},
		[]string{"type"},
	)

	// NATSStreamMessages tracks messages in NATS stream.
	NATSStreamMessages = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nats_stream_messages",
			Help: "Number of messages in NATS stream",
		},
		[]string{"stream"},
	)

	// NATSStreamBytes tracks bytes in NATS stream.
	NATSStreamBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nats_stream_bytes",
			Help: "Bytes in NATS stream",
		},
		[]string{"stream"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordCompletion records metrics for a single LLM completion.
func RecordCompletion(provider, model, status string, duration float64, tokensIn, tokensOut int) {
	CompletionDuration.WithLabelValues(provider, model, status).Observe(duration)
	CompletionTokensTotal.WithLabelValues(provider, model, "in").Add(float64(tokensIn))
	CompletionTokensTotal.WithLabelValues(provider, model, "out").Add(float64(tokensOut))
}

// RecordStreamInfo records the current size of a NATS stream.
func RecordStreamInfo(stream string, messages, bytes uint64) {
	NATSStreamMessages.WithLabelValues(stream).Set(float64(messages))
	NATSStreamBytes.WithLabelValues(stream).Set(float64(bytes))
}
