// Command server runs the comment sentiment API.
//
// It loads (or, on a cold start, trains) the sentiment pipeline, then serves
// POST /analyze: the comments of a YouTube video are fetched through the Data
// API and tallied into positive and negative counts. Redis caches tallies,
// PostgreSQL keeps an analysis history and Kafka carries analysis events to
// the analytics service; each of these is optional.
//
// Usage:
//
//	go run ./cmd/server [-config configs/development.yaml]
//
// SIGHUP reloads the model artifact from disk and clears the result cache.
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

	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/history"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/model"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/sentiment"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/trainer"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/youtube"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
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
	slog.Info("starting sentiment api", "port", cfg.Server.Port, "artifact", cfg.Model.ArtifactPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	checker := health.NewChecker()

	// Redis result cache. Optional: without it only in-process
	// deduplication of concurrent analyses applies.
	var kv analysis.KV
	if cfg.Redis.Addr != "" {
		rdb, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, result cache disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			defer rdb.Close()
			kv = rdb
			checker.RegisterOptional("redis", health.Ping(rdb.Ping))
			slog.Info("connected to redis", "addr", cfg.Redis.Addr)
		}
	}
	cache := analysis.NewResultCache(kv, cfg.Redis.CacheTTL, m)

	// PostgreSQL analysis history. Optional like Redis: when it cannot be
	// reached, analyses are served without being recorded.
	var store *history.Store
	if cfg.Postgres.Enabled {
		store = openHistory(ctx, cfg.Postgres)
		if store != nil {
			defer store.Close()
			checker.RegisterOptional("postgres", health.Ping(store.Ping))
		}
	}

	// Kafka analysis events.
	var collector *analytics.Collector
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalysisEvents)
		defer producer.Close()
		collector = analytics.NewCollector(producer, analytics.CollectorConfig{})
		collector.Start(ctx)
		defer collector.Close()
		slog.Info("publishing analysis events", "topic", cfg.Kafka.Topics.AnalysisEvents)
	}

	// Sentiment model: load the artifact, or train when it is missing.
	artifacts := model.NewStore(cfg.Model.ArtifactPath)
	tr := trainer.New(corpus.NewSource(cfg.Corpus), artifacts, trainer.ConfigFrom(cfg), m)
	classifier := sentiment.New(artifacts, tr, sentiment.Options{
		TrainOnMissing: cfg.Model.TrainOnMissing,
		TrainTimeout:   cfg.Model.TrainTimeout,
		Metrics:        m,
	})
	classifier.Start(ctx)
	if !classifier.Available() {
		slog.Warn("sentiment model unavailable, /analyze will return 503", "status", classifier.Status())
	}
	checker.Register("model", func(ctx context.Context) health.ComponentHealth {
		st := classifier.Status()
		if !st.Available {
			return health.ComponentHealth{Status: health.StatusDown, Message: st.Error}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%s pipeline, %d features", st.Origin, st.Features),
		}
	})

	fetcher, err := youtube.NewClient(ctx, youtube.Config{
		APIKey:       cfg.YouTube.APIKey,
		Endpoint:     cfg.YouTube.Endpoint,
		MaxComments:  cfg.YouTube.MaxComments,
		FetchTimeout: cfg.YouTube.FetchTimeout,
	}, m)
	if err != nil {
		slog.Error("failed to create youtube client", "error", err)
		os.Exit(1)
	}

	deps := analysis.Deps{
		Fetcher:    fetcher,
		Classifier: classifier,
		Cache:      cache,
		Metrics:    m,
	}
	if collector != nil {
		deps.Tracker = collector
	}
	if store != nil {
		deps.Recorder = store
	}
	analyzer := analysis.NewAnalyzer(deps)

	var lister analysis.HistoryLister
	if store != nil {
		lister = store
	}
	handler := analysis.NewHandler(analyzer, lister)

	mux := http.NewServeMux()
	var analyzeMW []func(http.Handler) http.Handler
	if cfg.RateLimit.Requests > 0 {
		limiter := middleware.NewLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		defer limiter.Close()
		analyzeMW = append(analyzeMW, middleware.RateLimit(limiter, m))
	}
	handler.Register(mux, analyzeMW...)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.CORS.AllowOrigins
	chain := middleware.Chain(mux,
		middleware.RequestID,
		middleware.CORS(corsCfg),
		middleware.Metrics(m),
		middleware.Timeout(cfg.Server.RequestTimeout),
	)

	go watchReload(ctx, classifier, cache)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
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

	slog.Info("sentiment api listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("sentiment api stopped")
}

// openHistory connects the history store, or returns nil with a warning when
// PostgreSQL is unreachable or the schema cannot be prepared.
func openHistory(ctx context.Context, cfg config.PostgresConfig) *history.Store {
	db, err := postgres.New(cfg)
	if err != nil {
		slog.Warn("postgres unavailable, analysis history disabled", "host", cfg.Host, "error", err)
		return nil
	}
	store := history.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		slog.Warn("history schema unavailable, analysis history disabled", "error", err)
		db.Close()
		return nil
	}
	slog.Info("connected to postgres", "database", cfg.Database)
	return store
}

// watchReload swaps in the artifact on disk on SIGHUP, e.g. after cmd/train
// wrote a new one, and drops tallies computed by the old model.
func watchReload(ctx context.Context, classifier *sentiment.Service, cache *analysis.ResultCache) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := classifier.Reload(); err != nil {
				slog.Error("model reload failed, keeping current pipeline", "error", err)
				continue
			}
			invalidateCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := cache.Invalidate(invalidateCtx); err != nil {
				slog.Warn("cache invalidation after reload failed", "error", err)
			}
			cancel()
			slog.Info("model reloaded", "status", classifier.Status())
		}
	}
}
