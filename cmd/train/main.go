// Command train fits the sentiment pipeline on the polarity corpus and writes
// the model artifact read by the API server.
//
// Usage:
//
//	go run ./cmd/train [-config configs/development.yaml] [-holdout 0.2] [-out data/sentiment_model.spm]
//
// A running server picks up the new artifact on SIGHUP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/model"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/trainer"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	holdout := flag.Float64("holdout", -1, "fraction of the corpus held out for the accuracy report (overrides config)")
	out := flag.String("out", "", "artifact path (overrides config)")
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
	if *holdout >= 1 {
		fmt.Fprintf(os.Stderr, "-holdout must be below 1, got %v\n", *holdout)
		os.Exit(2)
	}
	if *holdout >= 0 {
		cfg.Corpus.Holdout = *holdout
	}
	if *out != "" {
		cfg.Model.ArtifactPath = *out
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source := corpus.NewSource(cfg.Corpus)
	slog.Info("training sentiment pipeline",
		"source", source.Name(),
		"artifact", cfg.Model.ArtifactPath,
		"max_features", cfg.Model.MaxFeatures,
		"holdout", cfg.Corpus.Holdout,
	)

	tr := trainer.New(source, model.NewStore(cfg.Model.ArtifactPath), trainer.ConfigFrom(cfg), nil)
	_, report, err := tr.Run(ctx)
	if err != nil {
		slog.Error("training failed", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		slog.Error("failed to print report", "error", err)
		os.Exit(1)
	}
	slog.Info("artifact written", "path", cfg.Model.ArtifactPath)
}
