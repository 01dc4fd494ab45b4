package model_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/model"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/model/modeltest"
	apperrors "github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/errors"
)

func TestFitAndPredict(t *testing.T) {
	texts, labels := modeltest.Corpus(40)
	p, stats, err := model.Fit(context.Background(), texts, labels, model.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, len(texts), stats.Documents)
	assert.True(t, stats.Converged)
	assert.LessOrEqual(t, stats.Features, 2000)

	got, err := p.Predict([]string{
		"This movie was fantastic and brilliant",
		"terrible waste of time, awful",
	})
	require.NoError(t, err)
	assert.Equal(t, []model.Label{model.Positive, model.Negative}, got)
}

func TestPredictPreservesOrderAndLength(t *testing.T) {
	p, err := modeltest.Pipeline(20)
	require.NoError(t, err)

	batch := []string{"awful", "superb", "", "boring dull plot", "loved it"}
	got, err := p.Predict(batch)
	require.NoError(t, err)
	require.Len(t, got, len(batch))
	assert.Equal(t, model.Negative, got[0])
	assert.Equal(t, model.Positive, got[1])
	assert.Equal(t, model.Negative, got[3])
	assert.Equal(t, model.Positive, got[4])
}

func TestPredictIsDeterministic(t *testing.T) {
	p, err := modeltest.Pipeline(20)
	require.NoError(t, err)

	batch := []string{"great film", "worst story", "plot actors", "nothing known here"}
	first, err := p.Predict(batch)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := p.Predict(batch)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestFitRejectsLengthMismatch(t *testing.T) {
	texts, labels := modeltest.Corpus(5)
	_, _, err := model.Fit(context.Background(), texts, labels[:len(labels)-1], model.DefaultOptions())
	assert.ErrorIs(t, err, apperrors.ErrDataIntegrity)
}

func TestFitRejectsUnknownLabel(t *testing.T) {
	texts, labels := modeltest.Corpus(5)
	labels[3] = model.Label(7)
	_, _, err := model.Fit(context.Background(), texts, labels, model.DefaultOptions())
	assert.ErrorIs(t, err, apperrors.ErrDataIntegrity)
}

func TestFitStopsOnCancelledContext(t *testing.T) {
	texts, labels := modeltest.Corpus(20)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p, _, err := model.Fit(ctx, texts, labels, model.DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, p)
}

func TestMarshalRoundTripPreservesPredictions(t *testing.T) {
	p, err := modeltest.Pipeline(30)
	require.NoError(t, err)

	data, err := p.MarshalBinary()
	require.NoError(t, err)
	restored, err := model.UnmarshalPipeline(data)
	require.NoError(t, err)

	texts, _ := modeltest.Corpus(30)
	texts = append(texts, "brilliant but dull", "masterpiece", "")
	for _, text := range texts {
		want, err := p.Probability(text)
		require.NoError(t, err)
		got, err := restored.Probability(text)
		require.NoError(t, err)
		assert.Equal(t, want, got, text)
	}
	assert.Equal(t, p.NumFeatures(), restored.NumFeatures())
	assert.True(t, p.TrainedAt().Equal(restored.TrainedAt()))
	assert.Equal(t, p.Documents(), restored.Documents())
}

func TestTopTermsFollowPolarity(t *testing.T) {
	p, err := modeltest.Pipeline(30)
	require.NoError(t, err)

	positive, negative := p.TopTerms(5)
	require.Len(t, positive, 5)
	require.Len(t, negative, 5)
	for _, term := range positive {
		assert.True(t, containsAny(term, modeltest.PositiveWords), term)
	}
	for _, term := range negative {
		assert.True(t, containsAny(term, modeltest.NegativeWords), term)
	}

	all, _ := p.TopTerms(p.NumFeatures() + 10)
	assert.LessOrEqual(t, len(all), p.NumFeatures())
}

func containsAny(term string, words []string) bool {
	for _, w := range words {
		if strings.Contains(term, w) {
			return true
		}
	}
	return false
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	_, err := model.UnmarshalPipeline([]byte("not json"))
	assert.Error(t, err)

	_, err = model.UnmarshalPipeline([]byte(`{"vectorizer":{"terms":["a","b"],"idf":[1,1]},"classifier":{"weights":[1]}}`))
	assert.Error(t, err)
}

func TestLabelString(t *testing.T) {
	assert.Equal(t, "positive", model.Positive.String())
	assert.Equal(t, "negative", model.Negative.String())
	assert.Equal(t, "Label(3)", model.Label(3).String())
	assert.False(t, model.Label(-1).Valid())
}
