// Command analytics runs the analysis analytics service.
//
// It consumes analysis events published by the API server, folds them into
// in-memory totals (analysis counts, positive ratio, cache hit rate, errors by
// kind, latency percentiles, most analysed videos) and serves them at
// GET /api/v1/analytics. With PostgreSQL enabled the totals are also
// snapshotted periodically.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml] [-port 8001]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/postgres"
)

const snapshotInterval = time.Minute

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	port := flag.Int("port", 8001, "HTTP port for the analytics API")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", *port, "topic", cfg.Kafka.Topics.AnalysisEvents)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	agg := analytics.NewAggregator()
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalysisEvents, analytics.HandleEvent(agg))
	defer consumer.Close()

	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("analysis event consumer stopped", "error", err)
		}
	}()

	checker := health.NewChecker()
	checker.Register("kafka", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: "consumer active"}
	})

	if cfg.Postgres.Enabled {
		if db := openSnapshots(ctx, cfg.Postgres, agg); db != nil {
			defer db.Close()
			checker.RegisterOptional("postgres", health.Ping(db.Ping))
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(agg).Stats)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", *port),
		Handler: middleware.Chain(mux,
			middleware.RequestID,
			middleware.Metrics(m),
		),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}

// openSnapshots starts periodic snapshotting of agg. Snapshots are optional:
// when PostgreSQL is unreachable it logs a warning and returns nil.
func openSnapshots(ctx context.Context, cfg config.PostgresConfig, agg *analytics.Aggregator) *postgres.Client {
	db, err := postgres.New(cfg)
	if err != nil {
		slog.Warn("postgres unavailable, analytics snapshots disabled", "host", cfg.Host, "error", err)
		return nil
	}
	snapshots := aggregator.NewStore(db)
	if err := snapshots.EnsureSchema(ctx); err != nil {
		slog.Warn("snapshot schema unavailable, analytics snapshots disabled", "error", err)
		db.Close()
		return nil
	}
	if last, err := snapshots.LatestSnapshot(ctx); err != nil {
		slog.Warn("could not read last snapshot", "error", err)
	} else if last != nil {
		slog.Info("previous snapshot found",
			"captured_at", last.CapturedAt,
			"total_analyses", last.Stats.TotalAnalyses,
		)
	}
	snapshots.StartPeriodicSave(ctx, agg, snapshotInterval)
	return db
}
