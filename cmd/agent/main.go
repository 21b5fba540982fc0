package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"chat-relay-service/internal/agent"
	"chat-relay-service/internal/agent/exec"
	"chat-relay-service/internal/agent/mock"
	"chat-relay-service/internal/config"
	"chat-relay-service/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: logging.DefaultConfig().TimeFormat,
	})
	log := logging.WithComponent("agent")

	var driver agent.Driver
	switch cfg.Agent.Driver {
	case "mock":
		driver = mock.New()
	default:
		driver = agent.NewLogDriver()
	}

	executor := exec.New(driver, exec.Settle{
		Message: cfg.Agent.SettleMessage,
		Default: cfg.Agent.SettleDefault,
	})
	client := agent.NewClient(cfg.Agent.RelayURL, driver, executor, cfg.Agent.PushInterval, cfg.Agent.PollInterval)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		cancel()
	}()

	log.Info().
		Str("relay_url", cfg.Agent.RelayURL).
		Str("driver", cfg.Agent.Driver).
		Msg("Agent starting")

	if err := client.Run(ctx); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("Agent stopped")
		os.Exit(1)
	}
	log.Info().Msg("Agent stopped")
}
