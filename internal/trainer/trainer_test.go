package trainer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/model"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/model/modeltest"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/metrics"
)

type staticSource struct {
	docs []corpus.Document
	err  error
}

func (s *staticSource) Name() string { return "static" }

func (s *staticSource) Documents(ctx context.Context) ([]corpus.Document, error) {
	return s.docs, s.err
}

func syntheticDocs(n int) []corpus.Document {
	texts, labels := modeltest.Corpus(n)
	docs := make([]corpus.Document, len(texts))
	for i, text := range texts {
		cat := corpus.CategoryNegative
		if labels[i] == model.Positive {
			cat = corpus.CategoryPositive
		}
		docs[i] = corpus.Document{ID: fmt.Sprintf("%s/%04d.txt", cat, i), Text: text, Categories: []string{cat}}
	}
	return docs
}

type failingSaver struct{}

func (failingSaver) Save(*model.Pipeline) error { return errors.New("disk full") }

func TestRunFitsAndSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentiment_model.spm")
	store := model.NewStore(path)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	tr := New(&staticSource{docs: syntheticDocs(25)}, store, Config{Model: model.DefaultOptions()}, m)

	p, report, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50, report.Documents)
	assert.Equal(t, 25, report.Positive)
	assert.Equal(t, 25, report.Negative)
	assert.Greater(t, report.Features, 0)
	assert.True(t, report.Converged)
	assert.Zero(t, report.HoldoutSize)
	assert.NotEmpty(t, report.TopPositive)
	assert.NotEmpty(t, report.TopNegative)
	assert.LessOrEqual(t, len(report.TopPositive), reportedTerms)

	res, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, model.Found, res.Status)

	batch := []string{"This movie was fantastic and brilliant", "terrible waste of time, awful"}
	want, err := p.Predict(batch)
	require.NoError(t, err)
	got, err := res.Pipeline.Predict(batch)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, []model.Label{model.Positive, model.Negative}, got)
}

func TestRunReportsHoldoutAccuracy(t *testing.T) {
	tr := New(&staticSource{docs: syntheticDocs(30)}, nil, Config{Model: model.DefaultOptions(), Holdout: 0.2}, nil)
	p, report, err := tr.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 12, report.HoldoutSize)
	assert.GreaterOrEqual(t, report.HoldoutAccuracy, 0.9)
	assert.Greater(t, report.HoldoutLogLoss, 0.0)
	assert.Less(t, report.HoldoutLogLoss, math.Ln2, "better than an uninformed classifier")
	// the saved pipeline is still fitted on every document
	assert.Equal(t, 60, p.Documents())
}

func TestRunRejectsUnknownCategory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentiment_model.spm")
	docs := syntheticDocs(5)
	docs[2].Categories = []string{"positive"}
	tr := New(&staticSource{docs: docs}, model.NewStore(path), Config{Model: model.DefaultOptions()}, nil)

	_, _, err := tr.Run(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrDataIntegrity)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no artifact after a failed run")
}

func TestRunPropagatesSourceError(t *testing.T) {
	tr := New(&staticSource{err: errors.New("network down")}, nil, Config{}, nil)
	_, _, err := tr.Run(context.Background())
	assert.ErrorContains(t, err, "network down")
}

func TestRunPropagatesSaveError(t *testing.T) {
	tr := New(&staticSource{docs: syntheticDocs(5)}, failingSaver{}, Config{Model: model.DefaultOptions()}, nil)
	_, _, err := tr.Run(context.Background())
	assert.ErrorContains(t, err, "disk full")
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr := New(&staticSource{docs: syntheticDocs(5)}, nil, Config{Model: model.DefaultOptions()}, nil)
	_, _, err := tr.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunReportsDeadlineAsTimeout(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	tr := New(&staticSource{docs: syntheticDocs(5)}, nil, Config{Model: model.DefaultOptions()}, nil)
	_, _, err := tr.Run(ctx)
	assert.ErrorIs(t, err, apperrors.ErrTimeout)
}

func TestConfigFrom(t *testing.T) {
	cfg := &config.Config{
		Model:  config.ModelConfig{MaxFeatures: 500, C: 0.5, MaxIter: 30, Tolerance: 1e-3},
		Corpus: config.CorpusConfig{Holdout: 0.2},
	}
	got := ConfigFrom(cfg)
	assert.Equal(t, model.Options{MaxFeatures: 500, C: 0.5, MaxIter: 30, Tolerance: 1e-3}, got.Model)
	assert.Equal(t, 0.2, got.Holdout)
}
