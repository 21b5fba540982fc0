package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear relevant env vars
	envVars := []string{
		"SERVICE_PRINCIPAL", "HTTP_PORT", "METRICS_PORT",
		"PRESENCE_TIMEOUT", "MAX_BODY_BYTES",
		"RELAY_URL", "AGENT_DRIVER", "PUSH_INTERVAL", "POLL_INTERVAL",
		"SETTLE_MESSAGE", "SETTLE_DEFAULT",
		"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_PRINCIPAL",
		"LOG_LEVEL", "LOG_FORMAT",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg := Load()

	if cfg.Service.Principal != "svc-chat-relay" {
		t.Errorf("expected default principal 'svc-chat-relay', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "3000" {
		t.Errorf("expected default port '3000', got %s", cfg.Service.HTTPPort)
	}

	if cfg.Relay.PresenceTimeout != 12*time.Second {
		t.Errorf("expected default presence timeout 12s, got %v", cfg.Relay.PresenceTimeout)
	}
	if cfg.Relay.MaxBodyBytes != 50*1024*1024 {
		t.Errorf("expected default max body bytes 50MiB, got %d", cfg.Relay.MaxBodyBytes)
	}

	if cfg.Agent.RelayURL != "http://localhost:3000" {
		t.Errorf("expected default relay URL, got %s", cfg.Agent.RelayURL)
	}
	if cfg.Agent.Driver != "log" {
		t.Errorf("expected default driver 'log', got %s", cfg.Agent.Driver)
	}
	if cfg.Agent.PushInterval != 1500*time.Millisecond {
		t.Errorf("expected default push interval 1.5s, got %v", cfg.Agent.PushInterval)
	}
	if cfg.Agent.PollInterval != 2*time.Second {
		t.Errorf("expected default poll interval 2s, got %v", cfg.Agent.PollInterval)
	}
	if cfg.Agent.SettleMessage != 10*time.Second {
		t.Errorf("expected default message settle 10s, got %v", cfg.Agent.SettleMessage)
	}
	if cfg.Agent.SettleDefault != 1500*time.Millisecond {
		t.Errorf("expected default settle 1.5s, got %v", cfg.Agent.SettleDefault)
	}

	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled by default")
	}
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
	if cfg.Observability.MetricsPort != "9090" {
		t.Errorf("expected default metrics port '9090', got %s", cfg.Observability.MetricsPort)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	os.Setenv("HTTP_PORT", "8080")
	os.Setenv("PRESENCE_TIMEOUT", "30s")
	os.Setenv("MAX_BODY_BYTES", "1048576")
	os.Setenv("AGENT_DRIVER", "mock")
	os.Setenv("SETTLE_MESSAGE", "250ms")
	os.Setenv("KAFKA_ENABLED", "true")
	os.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")

	defer func() {
		os.Unsetenv("SERVICE_PRINCIPAL")
		os.Unsetenv("HTTP_PORT")
		os.Unsetenv("PRESENCE_TIMEOUT")
		os.Unsetenv("MAX_BODY_BYTES")
		os.Unsetenv("AGENT_DRIVER")
		os.Unsetenv("SETTLE_MESSAGE")
		os.Unsetenv("KAFKA_ENABLED")
		os.Unsetenv("KAFKA_BROKERS")
	}()

	cfg := Load()

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected principal 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "8080" {
		t.Errorf("expected port '8080', got %s", cfg.Service.HTTPPort)
	}
	if cfg.Relay.PresenceTimeout != 30*time.Second {
		t.Errorf("expected presence timeout 30s, got %v", cfg.Relay.PresenceTimeout)
	}
	if cfg.Relay.MaxBodyBytes != 1048576 {
		t.Errorf("expected max body bytes 1048576, got %d", cfg.Relay.MaxBodyBytes)
	}
	if cfg.Agent.Driver != "mock" {
		t.Errorf("expected driver 'mock', got %s", cfg.Agent.Driver)
	}
	if cfg.Agent.SettleMessage != 250*time.Millisecond {
		t.Errorf("expected message settle 250ms, got %v", cfg.Agent.SettleMessage)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected Kafka enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "broker-1:9092" || cfg.Kafka.Brokers[1] != "broker-2:9092" {
		t.Errorf("expected trimmed broker list, got %v", cfg.Kafka.Brokers)
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	os.Setenv("PRESENCE_TIMEOUT", "not-a-duration")
	os.Setenv("MAX_BODY_BYTES", "invalid")
	os.Setenv("KAFKA_ENABLED", "invalid")

	defer func() {
		os.Unsetenv("PRESENCE_TIMEOUT")
		os.Unsetenv("MAX_BODY_BYTES")
		os.Unsetenv("KAFKA_ENABLED")
	}()

	cfg := Load()

	if cfg.Relay.PresenceTimeout != 12*time.Second {
		t.Errorf("expected default presence timeout on invalid input, got %v", cfg.Relay.PresenceTimeout)
	}
	if cfg.Relay.MaxBodyBytes != 50*1024*1024 {
		t.Errorf("expected default max body bytes on invalid input, got %d", cfg.Relay.MaxBodyBytes)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled on invalid input")
	}
}

func TestLoad_KafkaPrincipal_FallsBackToServicePrincipal(t *testing.T) {
	os.Setenv("SERVICE_PRINCIPAL", "my-relay")
	os.Unsetenv("KAFKA_PRINCIPAL")

	defer os.Unsetenv("SERVICE_PRINCIPAL")

	cfg := Load()

	if cfg.Kafka.Principal != "my-relay" {
		t.Errorf("expected Kafka principal to fall back to service principal, got %s", cfg.Kafka.Principal)
	}
}

func TestEnvOrDefaultBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      bool
		expected bool
	}{
		{"true string", "true", false, true},
		{"false string", "false", true, false},
		{"1", "1", false, true},
		{"0", "0", true, false},
		{"TRUE uppercase", "TRUE", false, true},
		{"invalid", "invalid", true, true},
		{"empty", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_BOOL_VAR"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}
			defer os.Unsetenv(key)

			got := envOrDefaultBool(key, tt.def)
			if got != tt.expected {
				t.Errorf("envOrDefaultBool(%s, %v) = %v, want %v", tt.envValue, tt.def, got, tt.expected)
			}
		})
	}
}
