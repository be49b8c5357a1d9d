// Worker consumes auth events from Kafka and forwards them to the OTel log pipeline.
// Set KAFKA_BROKERS, EVENTS_KAFKA_TOPIC, KAFKA_GROUP_ID and OTEL_EXPORTER_OTLP_ENDPOINT.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"identity-gateway/backend/internal/config"
	"identity-gateway/backend/internal/logging"
	"identity-gateway/backend/internal/telemetry/consumer"
	telemetryotel "identity-gateway/backend/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := logging.New(logging.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: cfg.ServiceName + "-worker",
		Environment: cfg.Env,
	}, os.Stdout)

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		logger.Error("worker: KAFKA_BROKERS is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Config{
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: cfg.ServiceName + "-worker",
		Environment: cfg.Env,
		Insecure:    cfg.OTelInsecure,
	})
	if err != nil {
		logger.Error("worker: telemetry", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	c, err := consumer.New(consumer.Config{
		Brokers: brokers,
		Topic:   cfg.EventsKafkaTopic,
		GroupID: cfg.KafkaGroupID,
	}, telemetryotel.NewEventEmitter(providers.LoggerProvider), logger)
	if err != nil {
		logger.Error("worker: consumer", slog.Any("error", err))
		os.Exit(1)
	}
	defer c.Close()

	logger.Info("worker: consuming auth events",
		slog.String("topic", cfg.EventsKafkaTopic), slog.String("group", cfg.KafkaGroupID))
	if err := c.Run(ctx); err != nil {
		logger.Error("worker: stopped", slog.Any("error", err))
		return
	}
	logger.Info("worker: stopped")
}
