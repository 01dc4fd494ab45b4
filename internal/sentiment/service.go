// Package sentiment hosts the classifier service: it owns the fitted
// pipeline for the lifetime of the process and classifies comment batches.
package sentiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/model"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/trainer"
	apperrors "github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/metrics"
)

// Tally counts predictions per class for one batch.
type Tally struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
}

func (t Tally) Total() int {
	return t.Positive + t.Negative
}

// Loader reads the persisted pipeline.
type Loader interface {
	Load() (model.LoadResult, error)
}

// Trainer fits and persists a new pipeline.
type Trainer interface {
	Run(ctx context.Context) (*model.Pipeline, trainer.Report, error)
}

// Options controls start-up behaviour.
type Options struct {
	// TrainOnMissing lets Start fit a pipeline when no usable artifact
	// exists. Without it a missing artifact leaves the service unavailable.
	TrainOnMissing bool
	TrainTimeout   time.Duration
	Metrics        *metrics.Metrics
}

// Origin says where the active pipeline came from.
type Origin string

const (
	OriginNone     Origin = "none"
	OriginArtifact Origin = "artifact"
	OriginTrained  Origin = "trained"
)

// Status is a point-in-time view for health checks.
type Status struct {
	Available bool      `json:"available"`
	Origin    Origin    `json:"origin"`
	Features  int       `json:"features,omitempty"`
	Documents int       `json:"documents,omitempty"`
	TrainedAt time.Time `json:"trained_at,omitempty"`
	Error     string    `json:"error,omitempty"`
}

type active struct {
	pipeline *model.Pipeline
	origin   Origin
}

// Service classifies batches with a read-only pipeline. The pipeline is
// published once by Start (or replaced wholesale by Reload) and never
// mutated afterwards.
type Service struct {
	loader  Loader
	trainer Trainer
	opts    Options
	logger  *slog.Logger

	once    sync.Once
	current atomic.Pointer[active]
	initErr atomic.Pointer[string]

	predict func(p *model.Pipeline, text string) (model.Label, error)
}

// New creates a Service. trainer may be nil when cold-start training is not
// possible.
func New(loader Loader, tr Trainer, opts Options) *Service {
	return &Service{
		loader:  loader,
		trainer: tr,
		opts:    opts,
		logger:  slog.Default().With("component", "sentiment-service"),
		predict: func(p *model.Pipeline, text string) (model.Label, error) {
			return p.PredictOne(text)
		},
	}
}

// Start performs one-time initialisation. Concurrent and repeated calls wait
// for the first and then return immediately. A failed start leaves the
// service unavailable rather than returning an error to the caller.
func (s *Service) Start(ctx context.Context) {
	s.once.Do(func() {
		s.initialise(ctx)
	})
}

func (s *Service) initialise(ctx context.Context) {
	res, err := s.loader.Load()
	if err != nil {
		s.fail("loading artifact", err)
		return
	}
	switch res.Status {
	case model.Found:
		s.publish(res.Pipeline, OriginArtifact)
		return
	case model.Corrupt:
		s.logger.Warn("model artifact is corrupt, treating as missing", "error", res.Err)
	case model.Missing:
		s.logger.Info("no model artifact found")
	}

	if !s.opts.TrainOnMissing || s.trainer == nil {
		s.fail("cold start", errors.New("no usable artifact and training on start is disabled"))
		return
	}
	s.logger.Info("training model on cold start")
	trainCtx := context.WithoutCancel(ctx)
	if s.opts.TrainTimeout > 0 {
		var cancel context.CancelFunc
		trainCtx, cancel = context.WithTimeout(trainCtx, s.opts.TrainTimeout)
		defer cancel()
	}
	p, _, err := s.trainer.Run(trainCtx)
	if err != nil {
		s.fail("cold-start training", err)
		return
	}
	s.publish(p, OriginTrained)
}

func (s *Service) publish(p *model.Pipeline, origin Origin) {
	s.current.Store(&active{pipeline: p, origin: origin})
	s.initErr.Store(nil)
	if s.opts.Metrics != nil {
		s.opts.Metrics.ModelAvailable.Set(1)
	}
	s.logger.Info("model ready", "origin", origin, "features", p.NumFeatures())
}

func (s *Service) fail(stage string, err error) {
	msg := fmt.Sprintf("%s: %v", stage, err)
	s.initErr.Store(&msg)
	if s.opts.Metrics != nil {
		s.opts.Metrics.ModelAvailable.Set(0)
	}
	s.logger.Error("model unavailable", "stage", stage, "error", err)
}

// Reload re-reads the artifact and swaps it in if it is valid. The current
// pipeline keeps serving when the reload fails.
func (s *Service) Reload() error {
	res, err := s.loader.Load()
	if err != nil {
		return err
	}
	switch res.Status {
	case model.Found:
		s.publish(res.Pipeline, OriginArtifact)
		return nil
	case model.Corrupt:
		return fmt.Errorf("reloading model: %w", res.Err)
	default:
		return errors.New("reloading model: artifact missing")
	}
}

// Available reports whether a pipeline is loaded.
func (s *Service) Available() bool {
	return s.current.Load() != nil
}

// Status describes the active pipeline or the reason there is none.
func (s *Service) Status() Status {
	a := s.current.Load()
	if a == nil {
		st := Status{Origin: OriginNone}
		if msg := s.initErr.Load(); msg != nil {
			st.Error = *msg
		}
		return st
	}
	return Status{
		Available: true,
		Origin:    a.origin,
		Features:  a.pipeline.NumFeatures(),
		Documents: a.pipeline.Documents(),
		TrainedAt: a.pipeline.TrainedAt(),
	}
}

// Classify predicts every text in batch and returns the per-class counts.
// An empty batch yields a zero tally even when no model is loaded.
func (s *Service) Classify(ctx context.Context, batch []string) (Tally, error) {
	labels, err := s.Predict(ctx, batch)
	if err != nil {
		return Tally{}, err
	}
	var t Tally
	for _, l := range labels {
		if l == model.Positive {
			t.Positive++
		} else {
			t.Negative++
		}
	}
	if s.opts.Metrics != nil {
		s.opts.Metrics.PredictionsTotal.WithLabelValues(model.Positive.String()).Add(float64(t.Positive))
		s.opts.Metrics.PredictionsTotal.WithLabelValues(model.Negative.String()).Add(float64(t.Negative))
	}
	return t, nil
}

// Predict returns one label per text in input order. It fails as a whole:
// either every item is classified or an error is returned.
func (s *Service) Predict(ctx context.Context, batch []string) ([]model.Label, error) {
	start := time.Now()
	labels, err := s.predictBatch(ctx, batch)
	s.observe(len(batch), start, err)
	if err != nil {
		logger.FromContext(ctx).Warn("classification failed",
			"component", "sentiment-service",
			"batch_size", len(batch),
			"error", err,
		)
	}
	return labels, err
}

func (s *Service) predictBatch(ctx context.Context, batch []string) (labels []model.Label, err error) {
	if len(batch) == 0 {
		return []model.Label{}, nil
	}
	s.Start(ctx)
	a := s.current.Load()
	if a == nil {
		return nil, apperrors.ErrModelUnavailable
	}

	current := -1
	defer func() {
		if r := recover(); r != nil {
			labels = nil
			err = &InferenceError{Index: current, Reason: "panic during prediction", Cause: fmt.Errorf("%v", r)}
		}
	}()

	labels = make([]model.Label, len(batch))
	for i, text := range batch {
		current = i
		if i%64 == 0 {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("%w: classification interrupted: %v", apperrors.ErrTimeout, ctxErr)
			}
		}
		if !utf8.ValidString(text) {
			return nil, &InferenceError{Index: i, Reason: "text is not valid UTF-8"}
		}
		l, err := s.predict(a.pipeline, text)
		if err != nil {
			return nil, &InferenceError{Index: i, Reason: "prediction failed", Cause: err}
		}
		labels[i] = l
	}
	return labels, nil
}

func (s *Service) observe(n int, start time.Time, err error) {
	m := s.opts.Metrics
	if m == nil {
		return
	}
	outcome := "ok"
	switch {
	case err != nil:
		outcome = apperrors.Kind(err)
	case n == 0:
		outcome = "empty"
	}
	m.ClassifyRequestsTotal.WithLabelValues(outcome).Inc()
	m.ClassifyBatchSize.Observe(float64(n))
	m.ClassifyLatency.Observe(time.Since(start).Seconds())
}
