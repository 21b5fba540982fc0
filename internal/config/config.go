// Package config loads service configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Configuration holds all runtime settings for the relay and the agent.
type Configuration struct {
	Service       ServiceConfig
	Relay         RelayConfig
	Agent         AgentConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds service identity and listen settings.
type ServiceConfig struct {
	Principal string
	HTTPPort  string
}

// RelayConfig holds the relay-side tunables.
type RelayConfig struct {
	// PresenceTimeout is the liveness window: a participant with no
	// heartbeat for longer than this is dropped from the roster. The
	// periodic sweep runs on the same period.
	PresenceTimeout time.Duration

	// MaxBodyBytes caps HTTP request bodies. Transcripts carry full chat
	// histories, so the default is generous.
	MaxBodyBytes int64
}

// AgentConfig holds the consumer-agent tunables.
type AgentConfig struct {
	RelayURL string
	Driver   string // "log" or "mock"

	// PushInterval is how often the agent checks the local transcript
	// for changes worth pushing to the relay.
	PushInterval time.Duration

	// PollInterval is the degraded-path polling period used when the
	// WebSocket is unavailable.
	PollInterval time.Duration

	// SettleMessage and SettleDefault are post-execution waits that let
	// the driven application finish asynchronous side effects before the
	// next command runs.
	SettleMessage time.Duration
	SettleDefault time.Duration
}

// KafkaConfig holds optional event-mirror settings.
type KafkaConfig struct {
	Enabled         bool
	Brokers         []string
	TopicTranscript string
	TopicCommand    string
	Principal       string
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel    string
	LogFormat   string
	MetricsPort string
}

// Load reads configuration from the environment, falling back to defaults.
func Load() *Configuration {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-chat-relay")

	return &Configuration{
		Service: ServiceConfig{
			Principal: principal,
			HTTPPort:  envOrDefault("HTTP_PORT", "3000"),
		},
		Relay: RelayConfig{
			PresenceTimeout: envOrDefaultDuration("PRESENCE_TIMEOUT", 12*time.Second),
			MaxBodyBytes:    envOrDefaultInt64("MAX_BODY_BYTES", 50*1024*1024),
		},
		Agent: AgentConfig{
			RelayURL:      envOrDefault("RELAY_URL", "http://localhost:3000"),
			Driver:        envOrDefault("AGENT_DRIVER", "log"),
			PushInterval:  envOrDefaultDuration("PUSH_INTERVAL", 1500*time.Millisecond),
			PollInterval:  envOrDefaultDuration("POLL_INTERVAL", 2*time.Second),
			SettleMessage: envOrDefaultDuration("SETTLE_MESSAGE", 10*time.Second),
			SettleDefault: envOrDefaultDuration("SETTLE_DEFAULT", 1500*time.Millisecond),
		},
		Kafka: KafkaConfig{
			Enabled:         envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:         envOrDefaultSlice("KAFKA_BROKERS", nil),
			TopicTranscript: envOrDefault("KAFKA_TOPIC_TRANSCRIPT", "chat.transcript.updated"),
			TopicCommand:    envOrDefault("KAFKA_TOPIC_COMMAND", "chat.command.relayed"),
			Principal:       envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
			MetricsPort: envOrDefault("METRICS_PORT", "9090"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return def
	}
	return parsed
}

func envOrDefaultInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return parsed
}

func envOrDefaultSlice(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
