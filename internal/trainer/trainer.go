// Package trainer builds the sentiment pipeline from the polarity corpus and
// persists it as the model artifact.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/model"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/resilience"
)

// Saver persists a fitted pipeline.
type Saver interface {
	Save(p *model.Pipeline) error
}

// Config controls a training run.
type Config struct {
	Model model.Options
	// Holdout is the fraction of the corpus used only for the accuracy
	// report. The saved pipeline is always fitted on the full corpus.
	Holdout float64
}

// ConfigFrom maps the application config onto a training Config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Model: model.Options{
			MaxFeatures: cfg.Model.MaxFeatures,
			C:           cfg.Model.C,
			MaxIter:     cfg.Model.MaxIter,
			Tolerance:   cfg.Model.Tolerance,
		},
		Holdout: cfg.Corpus.Holdout,
	}
}

// Report summarises a training run.
type Report struct {
	Source          string        `json:"source"`
	Documents       int           `json:"documents"`
	Positive        int           `json:"positive"`
	Negative        int           `json:"negative"`
	Features        int           `json:"features"`
	Iterations      int           `json:"iterations"`
	Converged       bool          `json:"converged"`
	Duration        time.Duration `json:"duration"`
	HoldoutSize     int           `json:"holdout_size,omitempty"`
	HoldoutAccuracy float64       `json:"holdout_accuracy,omitempty"`
	HoldoutLogLoss  float64       `json:"holdout_log_loss,omitempty"`
	TopPositive     []string      `json:"top_positive,omitempty"`
	TopNegative     []string      `json:"top_negative,omitempty"`
}

// reportedTerms is how many of the strongest terms per class a Report lists.
const reportedTerms = 10

// Trainer runs the corpus → pipeline → artifact flow.
type Trainer struct {
	source  corpus.Source
	saver   Saver
	cfg     Config
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Trainer. saver may be nil to fit without persisting, and m
// may be nil when metrics are not collected.
func New(source corpus.Source, saver Saver, cfg Config, m *metrics.Metrics) *Trainer {
	return &Trainer{
		source:  source,
		saver:   saver,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "trainer"),
	}
}

// Run fits a pipeline on the whole corpus and saves it. On any failure no
// artifact is written.
func (t *Trainer) Run(ctx context.Context) (*model.Pipeline, Report, error) {
	start := time.Now()
	p, report, err := t.run(ctx)
	report.Duration = time.Since(start)
	if t.metrics != nil {
		t.metrics.TrainingDuration.Observe(report.Duration.Seconds())
		status := "success"
		if err != nil {
			status = "failure"
		}
		t.metrics.TrainingRunsTotal.WithLabelValues(status).Inc()
	}
	if err != nil {
		t.logger.Error("training failed", "source", report.Source, "error", err, "duration", report.Duration)
		return nil, report, err
	}
	t.logger.Info("training complete",
		"documents", report.Documents,
		"features", report.Features,
		"iterations", report.Iterations,
		"converged", report.Converged,
		"duration", report.Duration,
	)
	return p, report, nil
}

func (t *Trainer) run(ctx context.Context) (*model.Pipeline, Report, error) {
	report := Report{Source: t.source.Name()}
	t.logger.Info("loading corpus", "source", report.Source)
	docs, err := t.source.Documents(ctx)
	if err != nil {
		if resilience.IsTimeout(err) {
			return nil, report, fmt.Errorf("%w: loading corpus: %v", apperrors.ErrTimeout, err)
		}
		return nil, report, fmt.Errorf("loading corpus: %w", err)
	}
	texts, labels, err := corpus.Prepare(docs)
	if err != nil {
		return nil, report, err
	}
	report.Documents = len(texts)
	for _, l := range labels {
		if l == model.Positive {
			report.Positive++
		} else {
			report.Negative++
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, report, stageError("preparing corpus", err)
	}

	if t.cfg.Holdout > 0 {
		eval, err := t.evaluate(ctx, texts, labels)
		if err != nil {
			return nil, report, stageError("holdout evaluation", err)
		}
		report.HoldoutAccuracy = eval.accuracy
		report.HoldoutLogLoss = eval.logLoss
		report.HoldoutSize = eval.size
		t.logger.Info("holdout evaluation", "held_out", eval.size, "accuracy", eval.accuracy, "log_loss", eval.logLoss)
	}
	if err := ctx.Err(); err != nil {
		return nil, report, stageError("holdout evaluation", err)
	}

	t.logger.Info("fitting pipeline", "documents", len(texts), "max_features", t.cfg.Model.MaxFeatures)
	p, stats, err := model.Fit(ctx, texts, labels, t.cfg.Model)
	if err != nil {
		return nil, report, stageError("fitting pipeline", err)
	}
	report.Features = stats.Features
	report.Iterations = stats.Iterations
	report.Converged = stats.Converged
	report.TopPositive, report.TopNegative = p.TopTerms(reportedTerms)

	if t.saver != nil {
		if err := t.saver.Save(p); err != nil {
			return nil, report, fmt.Errorf("saving pipeline: %w", err)
		}
	}
	return p, report, nil
}

type evaluation struct {
	size     int
	accuracy float64
	logLoss  float64
}

func (t *Trainer) evaluate(ctx context.Context, texts []string, labels []model.Label) (evaluation, error) {
	trainX, trainY, testX, testY := corpus.Split(texts, labels, t.cfg.Holdout)
	if len(testX) == 0 {
		return evaluation{}, errors.New("holdout split is empty")
	}
	p, _, err := model.Fit(ctx, trainX, trainY, t.cfg.Model)
	if err != nil {
		return evaluation{}, err
	}
	var correct int
	var loss float64
	for i, text := range testX {
		prob, err := p.Probability(text)
		if err != nil {
			return evaluation{}, fmt.Errorf("scoring held-out document %d: %w", i, err)
		}
		if (prob > 0.5) == (testY[i] == model.Positive) {
			correct++
		}
		if testY[i] != model.Positive {
			prob = 1 - prob
		}
		loss -= math.Log(math.Max(prob, 1e-15))
	}
	n := len(testX)
	return evaluation{
		size:     n,
		accuracy: float64(correct) / float64(n),
		logLoss:  loss / float64(n),
	}, nil
}

// stageError reports a stage that ran out of time as ErrTimeout and leaves other
// failures (data integrity, cancellation) in the chain as they are.
func stageError(stage string, err error) error {
	if resilience.IsTimeout(err) {
		return fmt.Errorf("%w: %s: %v", apperrors.ErrTimeout, stage, err)
	}
	if errors.Is(err, apperrors.ErrDataIntegrity) {
		return err
	}
	return fmt.Errorf("%s: %w", stage, err)
}
