// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "houseagent_messages_received_total",
		Help: "Raw messages accepted into the batch queue",
	})

	MessagesSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "houseagent_messages_suppressed_total",
		Help: "Messages dropped by the noise filter",
	})

	DecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "houseagent_decode_errors_total",
		Help: "Inbound payloads that were not valid JSON",
	})

	ValidationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "houseagent_validation_failures_total",
		Help: "Messages forwarded with the validation_failed flag",
	})

	AnomaliesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "houseagent_anomalies_detected_total",
		Help: "Readings flagged by the Z-score detector",
	}, []string{"sensor_type"})

	BatchesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "houseagent_batches_published_total",
		Help: "Message bundles published to the bundle topic",
	})

	BatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "houseagent_batch_size",
		Help:    "Messages per published bundle",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
	})

	QueueSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "houseagent_queue_size",
		Help: "Messages waiting in the batch queue",
	})

	SituationsBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "houseagent_situations_built_total",
		Help: "Corroborated situations constructed from bundles",
	})

	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "houseagent_llm_requests_total",
		Help: "LLM requests by model and outcome",
	}, []string{"model", "status"})
)
