package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-relay-service/internal/app"
	"chat-relay-service/internal/config"
	"chat-relay-service/internal/events"
	relayhttp "chat-relay-service/internal/http"
	"chat-relay-service/internal/observability"
	"chat-relay-service/internal/observability/metrics"
	"chat-relay-service/internal/relay"
	"chat-relay-service/internal/transport"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	application := app.New(cfg)
	if err := application.Start(); err != nil {
		application.Logger.Fatal().Err(err).Msg("Startup failed")
	}

	// Kafka mirror of transcript and command events. Disabled configs
	// run in log-only mode, so the relay works without a broker.
	publisher := events.New(&events.Config{
		Enabled:         cfg.Kafka.Enabled,
		Brokers:         cfg.Kafka.Brokers,
		TopicTranscript: cfg.Kafka.TopicTranscript,
		TopicCommand:    cfg.Kafka.TopicCommand,
		Principal:       cfg.Kafka.Principal,
	})
	defer publisher.Close()

	transcript := relay.NewTranscriptStore()
	presence := relay.NewPresenceTracker(cfg.Relay.PresenceTimeout)
	backlog := relay.NewCommandBacklog()

	hub := transport.NewHub(transcript, presence, publisher, metrics.DefaultMetrics)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	hub.StartSweep(sweepCtx)

	metricsServer := observability.NewServer(":" + cfg.Observability.MetricsPort)
	metricsServer.Start()

	router := relayhttp.NewRouter(hub, transcript, backlog, cfg.Relay.MaxBodyBytes, metrics.DefaultMetrics)
	server := &http.Server{
		Addr:    ":" + cfg.Service.HTTPPort,
		Handler: router,
	}

	go func() {
		application.Logger.Info().Str("addr", server.Addr).Msg("Relay listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			application.Logger.Fatal().Err(err).Msg("HTTP serve failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		application.Logger.Error().Err(err).Msg("HTTP shutdown failed")
	}
	if err := metricsServer.Shutdown(ctx); err != nil {
		application.Logger.Error().Err(err).Msg("Metrics shutdown failed")
	}

	application.Shutdown()
}
