package model

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/model/linear"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/model/vectorizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/errors"
)

// Options configures pipeline fitting.
type Options struct {
	MaxFeatures int
	C           float64
	MaxIter     int
	Tolerance   float64
}

// DefaultOptions mirrors the reference training configuration.
func DefaultOptions() Options {
	return Options{
		MaxFeatures: vectorizer.DefaultMaxFeatures,
		C:           linear.DefaultC,
		MaxIter:     linear.DefaultMaxIter,
		Tolerance:   linear.DefaultTolerance,
	}
}

// Pipeline is a fitted vectorizer and classifier. It is immutable and safe
// for concurrent use.
type Pipeline struct {
	vectorizer *vectorizer.TFIDF
	classifier *linear.LogisticRegression
	trainedAt  time.Time
	documents  int
}

// FitStats describes a completed fit.
type FitStats struct {
	Documents  int
	Features   int
	Iterations int
	Converged  bool
	Objective  float64
}

// Fit trains a new pipeline. texts and labels are positionally aligned; a
// length mismatch or unknown label is a data integrity error. Cancelling ctx
// stops the classifier solver between iterations.
func Fit(ctx context.Context, texts []string, labels []Label, opts Options) (*Pipeline, FitStats, error) {
	if len(texts) != len(labels) {
		return nil, FitStats{}, fmt.Errorf("%w: %d documents but %d labels", apperrors.ErrDataIntegrity, len(texts), len(labels))
	}
	y := make([]bool, len(labels))
	for i, l := range labels {
		if !l.Valid() {
			return nil, FitStats{}, fmt.Errorf("%w: document %d has unknown label %d", apperrors.ErrDataIntegrity, i, int(l))
		}
		y[i] = l == Positive
	}

	vec := vectorizer.New(vectorizer.Options{MaxFeatures: opts.MaxFeatures})
	x, err := vec.Fit(texts)
	if err != nil {
		return nil, FitStats{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, FitStats{}, err
	}
	clf, res, err := linear.Fit(ctx, x, y, vec.NumFeatures(), linear.Options{
		C:         opts.C,
		MaxIter:   opts.MaxIter,
		Tolerance: opts.Tolerance,
	})
	if err != nil {
		return nil, FitStats{}, fmt.Errorf("fitting classifier: %w", err)
	}
	if !res.Converged {
		slog.Default().With("component", "pipeline").Warn("classifier did not converge",
			"iterations", res.Iterations,
			"objective", res.Objective,
		)
	}
	p := &Pipeline{
		vectorizer: vec,
		classifier: clf,
		trainedAt:  time.Now().UTC(),
		documents:  len(texts),
	}
	return p, FitStats{
		Documents:  len(texts),
		Features:   vec.NumFeatures(),
		Iterations: res.Iterations,
		Converged:  res.Converged,
		Objective:  res.Objective,
	}, nil
}

// PredictOne classifies a single document.
func (p *Pipeline) PredictOne(text string) (Label, error) {
	x, err := p.vectorizer.Transform(text)
	if err != nil {
		return Negative, err
	}
	if p.classifier.Predict(x) {
		return Positive, nil
	}
	return Negative, nil
}

// Predict classifies texts, returning labels in input order.
func (p *Pipeline) Predict(texts []string) ([]Label, error) {
	labels := make([]Label, len(texts))
	for i, text := range texts {
		l, err := p.PredictOne(text)
		if err != nil {
			return nil, fmt.Errorf("predicting item %d: %w", i, err)
		}
		labels[i] = l
	}
	return labels, nil
}

// Probability returns P(positive) for text.
func (p *Pipeline) Probability(text string) (float64, error) {
	x, err := p.vectorizer.Transform(text)
	if err != nil {
		return 0, err
	}
	return p.classifier.Probability(x), nil
}

func (p *Pipeline) NumFeatures() int {
	return p.vectorizer.NumFeatures()
}

func (p *Pipeline) TrainedAt() time.Time {
	return p.trainedAt
}

// Documents is the size of the training corpus.
func (p *Pipeline) Documents() int {
	return p.documents
}

// TopTerms returns up to k vocabulary terms carrying the largest positive
// weights and up to k carrying the largest negative weights, strongest first.
func (p *Pipeline) TopTerms(k int) (positive, negative []string) {
	weights := p.classifier.State().Weights
	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return weights[order[a]] > weights[order[b]]
	})
	k = min(k, len(order))
	for _, i := range order[:k] {
		if weights[i] > 0 {
			positive = append(positive, p.vectorizer.Term(i))
		}
	}
	for j := len(order) - 1; j >= len(order)-k; j-- {
		if i := order[j]; weights[i] < 0 {
			negative = append(negative, p.vectorizer.Term(i))
		}
	}
	return positive, negative
}

type pipelineState struct {
	Vectorizer vectorizer.State `json:"vectorizer"`
	Classifier linear.State     `json:"classifier"`
	TrainedAt  time.Time        `json:"trained_at"`
	Documents  int              `json:"documents"`
}

// MarshalBinary encodes the fitted pipeline.
func (p *Pipeline) MarshalBinary() ([]byte, error) {
	return json.Marshal(pipelineState{
		Vectorizer: p.vectorizer.State(),
		Classifier: p.classifier.State(),
		TrainedAt:  p.trainedAt,
		Documents:  p.documents,
	})
}

// UnmarshalPipeline decodes a pipeline produced by MarshalBinary.
func UnmarshalPipeline(data []byte) (*Pipeline, error) {
	var s pipelineState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding pipeline: %w", err)
	}
	vec, err := vectorizer.FromState(s.Vectorizer)
	if err != nil {
		return nil, err
	}
	clf, err := linear.FromState(s.Classifier)
	if err != nil {
		return nil, err
	}
	if clf.NumFeatures() != vec.NumFeatures() {
		return nil, fmt.Errorf("decoding pipeline: classifier has %d weights for %d features",
			clf.NumFeatures(), vec.NumFeatures())
	}
	return &Pipeline{
		vectorizer: vec,
		classifier: clf,
		trainedAt:  s.TrainedAt,
		documents:  s.Documents,
	}, nil
}
