// Package modeltest provides a small deterministic polarity corpus for tests
// that need a fitted pipeline without downloading the real training data.
package modeltest

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/model"
)

var (
	PositiveWords = []string{"fantastic", "brilliant", "wonderful", "great", "superb", "loved", "masterpiece"}
	NegativeWords = []string{"terrible", "awful", "waste", "boring", "horrible", "worst", "dull"}
	fillerWords   = []string{"movie", "film", "plot", "actors", "story"}
)

// Corpus returns n positive and n negative reviews, interleaved pos/neg.
func Corpus(n int) ([]string, []model.Label) {
	texts := make([]string, 0, 2*n)
	labels := make([]model.Label, 0, 2*n)
	for i := 0; i < n; i++ {
		texts = append(texts, review(PositiveWords, i))
		labels = append(labels, model.Positive)
		texts = append(texts, review(NegativeWords, i))
		labels = append(labels, model.Negative)
	}
	return texts, labels
}

func review(words []string, i int) string {
	a := words[i%len(words)]
	b := words[(i+3)%len(words)]
	f := fillerWords[i%len(fillerWords)]
	g := fillerWords[(i+2)%len(fillerWords)]
	return fmt.Sprintf("The %s was %s and the %s felt %s. Really %s!", f, a, g, b, a)
}

// Pipeline fits a pipeline on Corpus(n) with default options.
func Pipeline(n int) (*model.Pipeline, error) {
	texts, labels := Corpus(n)
	p, _, err := model.Fit(context.Background(), texts, labels, model.DefaultOptions())
	return p, err
}
