package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/caseydemo/workout-app/internal/api"
	"github.com/caseydemo/workout-app/internal/config"
	"github.com/caseydemo/workout-app/internal/domain"
	"github.com/caseydemo/workout-app/internal/logging"
	"github.com/caseydemo/workout-app/internal/outbox"
	"github.com/caseydemo/workout-app/internal/persistence/memory"
	"github.com/caseydemo/workout-app/internal/persistence/postgres"
	"github.com/caseydemo/workout-app/internal/persistence/sqlite"
	httptransport "github.com/caseydemo/workout-app/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.MustNew(cfg.LogFormat, cfg.LogLevel).With("service", "workout-api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, pool, closeRepo, err := buildRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer closeRepo()

	var dispatcher *outbox.Dispatcher
	if pool != nil && cfg.OutboxEnabled {
		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers, logger)
		defer producer.Close()

		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher = outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize,
			outbox.WithLogger(logger.With("component", "outbox")))
		go dispatcher.Start(ctx)
	}

	handler := api.NewHandler(domain.NewService(repo), logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress),
		httptransport.Chain(mux,
			httptransport.RequestLogger(logger),
			httptransport.CORS(cfg.CORSAllowedOrigins),
		))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("listening", "address", cfg.HTTPAddress, "driver", cfg.StoreDriver, "outbox", dispatcher != nil)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}

	if dispatcher != nil {
		dispatcher.Wait()
	}
}

// buildRepository selects the store named by STORE_DRIVER. The pool is only
// returned for postgres, which is the one driver that feeds the outbox.
func buildRepository(ctx context.Context, cfg config.Config, logger *slog.Logger) (domain.Repository, *pgxpool.Pool, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		logger.Info("using postgres repository")
		return postgres.NewRepository(pool), pool, pool.Close, nil
	case config.DriverSQLite:
		repo, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("using sqlite repository", "path", cfg.SQLitePath)
		return repo, nil, func() { _ = repo.Close() }, nil
	default:
		logger.Info("using in-memory repository")
		return memory.NewRepository(), nil, func() {}, nil
	}
}
