// Package vectorizer turns raw documents into L2-normalised TF-IDF feature
// vectors over a vocabulary of unigrams and bigrams learned once at fit time.
package vectorizer

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/model/tokenizer"
)

// ErrNotFitted is returned when Transform is called before Fit.
var ErrNotFitted = errors.New("vectorizer is not fitted")

// DefaultMaxFeatures caps the vocabulary size when Options leaves it unset.
const DefaultMaxFeatures = 2000

// Options configures vocabulary learning.
type Options struct {
	// MaxFeatures keeps only the most frequent terms across the corpus.
	// Zero or negative means unlimited.
	MaxFeatures int
}

// TFIDF is a fitted (or yet-to-be-fitted) term-frequency / inverse
// document-frequency vectorizer. After Fit it is read-only and safe for
// concurrent Transform calls.
type TFIDF struct {
	opts       Options
	vocabulary map[string]int
	terms      []string
	idf        []float64
}

// State is the serialisable form of a fitted TFIDF. Terms are listed in
// index order.
type State struct {
	MaxFeatures int       `json:"max_features"`
	Terms       []string  `json:"terms"`
	IDF         []float64 `json:"idf"`
}

// New returns an unfitted vectorizer.
func New(opts Options) *TFIDF {
	return &TFIDF{opts: opts}
}

// Fit learns the vocabulary and IDF weights from docs and returns the
// vectorised documents in input order.
func (v *TFIDF) Fit(docs []string) ([]Vector, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("fitting vectorizer: empty corpus")
	}
	docCounts := make([]map[string]int, len(docs))
	termFreq := make(map[string]int)
	docFreq := make(map[string]int)
	for i, doc := range docs {
		counts := countTerms(doc)
		docCounts[i] = counts
		for term, c := range counts {
			termFreq[term] += c
			docFreq[term]++
		}
	}
	if len(termFreq) == 0 {
		return nil, fmt.Errorf("fitting vectorizer: corpus produced an empty vocabulary")
	}

	terms := make([]string, 0, len(termFreq))
	for term := range termFreq {
		terms = append(terms, term)
	}
	if v.opts.MaxFeatures > 0 && len(terms) > v.opts.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if termFreq[terms[i]] != termFreq[terms[j]] {
				return termFreq[terms[i]] > termFreq[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:v.opts.MaxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	idf := make([]float64, len(terms))
	for i, term := range terms {
		idf[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}
	v.setVocabulary(terms, idf)

	vectors := make([]Vector, len(docs))
	for i, counts := range docCounts {
		vectors[i] = v.weigh(counts)
	}
	return vectors, nil
}

// Transform vectorises a single document against the frozen vocabulary.
// Terms outside the vocabulary are ignored.
func (v *TFIDF) Transform(doc string) (Vector, error) {
	if v.vocabulary == nil {
		return Vector{}, ErrNotFitted
	}
	return v.weigh(countTerms(doc)), nil
}

// NumFeatures returns the vocabulary size.
func (v *TFIDF) NumFeatures() int {
	return len(v.terms)
}

// Term returns the vocabulary term at index i.
func (v *TFIDF) Term(i int) string {
	return v.terms[i]
}

// State exports the fitted vocabulary and IDF weights.
func (v *TFIDF) State() State {
	terms := make([]string, len(v.terms))
	copy(terms, v.terms)
	idf := make([]float64, len(v.idf))
	copy(idf, v.idf)
	return State{MaxFeatures: v.opts.MaxFeatures, Terms: terms, IDF: idf}
}

// FromState rebuilds a fitted vectorizer from an exported State.
func FromState(s State) (*TFIDF, error) {
	if len(s.Terms) != len(s.IDF) {
		return nil, fmt.Errorf("vectorizer state: %d terms but %d idf weights", len(s.Terms), len(s.IDF))
	}
	if len(s.Terms) == 0 {
		return nil, fmt.Errorf("vectorizer state: empty vocabulary")
	}
	for i := 1; i < len(s.Terms); i++ {
		if s.Terms[i-1] >= s.Terms[i] {
			return nil, fmt.Errorf("vectorizer state: terms not strictly sorted at index %d", i)
		}
	}
	v := New(Options{MaxFeatures: s.MaxFeatures})
	terms := make([]string, len(s.Terms))
	copy(terms, s.Terms)
	idf := make([]float64, len(s.IDF))
	copy(idf, s.IDF)
	v.setVocabulary(terms, idf)
	return v, nil
}

func (v *TFIDF) setVocabulary(terms []string, idf []float64) {
	v.terms = terms
	v.idf = idf
	v.vocabulary = make(map[string]int, len(terms))
	for i, term := range terms {
		v.vocabulary[term] = i
	}
}

// weigh maps raw term counts to an L2-normalised TF-IDF vector.
func (v *TFIDF) weigh(counts map[string]int) Vector {
	indices := make([]int, 0, len(counts))
	for term := range counts {
		if idx, ok := v.vocabulary[term]; ok {
			indices = append(indices, idx)
		}
	}
	sort.Ints(indices)
	values := make([]float64, len(indices))
	var norm float64
	for k, idx := range indices {
		w := float64(counts[v.terms[idx]]) * v.idf[idx]
		values[k] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for k := range values {
			values[k] /= norm
		}
	}
	return Vector{Indices: indices, Values: values}
}

func countTerms(doc string) map[string]int {
	terms := tokenizer.Analyze(doc)
	counts := make(map[string]int, len(terms))
	for _, term := range terms {
		counts[term]++
	}
	return counts
}
