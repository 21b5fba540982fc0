// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chat_relay"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Connection metrics
	ConnectionsTotal  prometheus.Counter
	ConnectionsActive prometheus.Gauge

	// Transcript metrics
	TranscriptReplaces prometheus.Counter
	TranscriptBytes    prometheus.Gauge

	// Command metrics
	CommandsRelayed *prometheus.CounterVec
	CommandsDropped prometheus.Counter

	// Presence metrics
	ParticipantsActive prometheus.Gauge
	PresenceExpired    prometheus.Counter

	// Degraded-path metrics
	BacklogDepth    prometheus.Gauge
	BacklogEnqueued prometheus.Counter
	BacklogDrained  prometheus.Counter

	// Broadcast metrics
	BroadcastsTotal *prometheus.CounterVec
	SendsDropped    prometheus.Counter

	// Kafka mirror metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		ConnectionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Total number of WebSocket connections accepted",
		}),
		ConnectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of currently connected WebSocket sessions",
		}),

		TranscriptReplaces: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcript_replaces_total",
			Help:      "Total number of accepted transcript replacements",
		}),
		TranscriptBytes: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transcript_bytes",
			Help:      "Size in bytes of the current transcript",
		}),

		CommandsRelayed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_relayed_total",
			Help:      "Total number of commands relayed, by normalized type",
		}, []string{"type"}),
		CommandsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_dropped_total",
			Help:      "Total number of malformed commands ignored",
		}),

		ParticipantsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "participants_active",
			Help:      "Number of participants currently on the roster",
		}),
		PresenceExpired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presence_expired_total",
			Help:      "Total number of roster entries removed by the staleness sweep",
		}),

		BacklogDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backlog_depth",
			Help:      "Number of commands currently queued on the degraded path",
		}),
		BacklogEnqueued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backlog_enqueued_total",
			Help:      "Total number of commands appended to the degraded-path backlog",
		}),
		BacklogDrained: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backlog_drained_total",
			Help:      "Total number of commands handed out by destructive backlog reads",
		}),

		BroadcastsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Total number of fanout broadcasts, by event name",
		}, []string{"event"}),
		SendsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sends_dropped_total",
			Help:      "Total number of pushes dropped because a session's outbound buffer was full",
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of events mirrored to Kafka",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka mirror publish failures",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Latency of Kafka mirror publishes in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"topic", "event_type"}),
	}
}

// RecordKafkaPublish records the outcome of a Kafka mirror publish.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, duration float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
	m.KafkaPublishLatency.WithLabelValues(topic, eventType).Observe(duration)
}

// RecordConnection records a new WebSocket connection.
func (m *Metrics) RecordConnection() {
	m.ConnectionsTotal.Inc()
	m.ConnectionsActive.Inc()
}

// RecordDisconnection records a closed WebSocket connection.
func (m *Metrics) RecordDisconnection() {
	m.ConnectionsActive.Dec()
}

// RecordBroadcast records a fanout of the named event.
func (m *Metrics) RecordBroadcast(event string) {
	m.BroadcastsTotal.WithLabelValues(event).Inc()
}

// RecordTranscriptReplace records an accepted transcript replacement.
func (m *Metrics) RecordTranscriptReplace(size int) {
	m.TranscriptReplaces.Inc()
	m.TranscriptBytes.Set(float64(size))
}

// RecordCommand records a relayed command by normalized type.
func (m *Metrics) RecordCommand(cmdType string) {
	m.CommandsRelayed.WithLabelValues(cmdType).Inc()
}

// ObserveSince is a helper for latency observations.
func ObserveSince(start time.Time) float64 {
	return time.Since(start).Seconds()
}
