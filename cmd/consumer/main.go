package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"github.com/caseydemo/workout-app/internal/config"
	"github.com/caseydemo/workout-app/internal/consumer"
	"github.com/caseydemo/workout-app/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.MustNew(cfg.LogFormat, cfg.LogLevel).With("service", "workout-consumer")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("metrics listening", "address", cfg.MetricsAddress)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.KafkaBrokers,
		GroupID:         cfg.ConsumerGroup,
		Topic:           cfg.KafkaTopic,
		MinBytes:        1e3,
		MaxBytes:        10e6,
		CommitInterval:  time.Second,
		RetentionTime:   24 * time.Hour,
		ReadLagInterval: -1,
	})
	defer reader.Close()

	handler := consumer.NewEventLogHandler(pool, logger)
	proc := consumer.NewProcessor(reader, handler, consumer.WithLogger(logger))

	logger.Info("consumer started", "topic", cfg.KafkaTopic, "group", cfg.ConsumerGroup)
	if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown error", "error", err)
	}
}
