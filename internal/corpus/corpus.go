// Package corpus enumerates the labelled polarity reviews used to train the
// sentiment pipeline and turns them into aligned text/label slices.
package corpus

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/model"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/errors"
)

const (
	CategoryPositive = "pos"
	CategoryNegative = "neg"
)

// Document is one review. ID is "<category>/<file>" and Categories lists the
// labels the source assigned to it.
type Document struct {
	ID         string
	Text       string
	Categories []string
}

// Source yields the full corpus in a stable order.
type Source interface {
	Name() string
	Documents(ctx context.Context) ([]Document, error)
}

// NewSource picks the corpus location from cfg: a local directory when Dir
// is set, otherwise the downloadable archive.
func NewSource(cfg config.CorpusConfig) Source {
	if cfg.Dir != "" {
		return NewDirSource(cfg.Dir)
	}
	return NewArchiveSource(ArchiveConfig{
		URL:      cfg.URL,
		CacheDir: cfg.CacheDir,
		Timeout:  cfg.DownloadTimeout,
	})
}

// LabelForCategory maps a corpus category to a sentiment label. Only the
// exact spellings "pos" and "neg" are accepted.
func LabelForCategory(category string) (model.Label, error) {
	switch category {
	case CategoryPositive:
		return model.Positive, nil
	case CategoryNegative:
		return model.Negative, nil
	default:
		return 0, fmt.Errorf("%w: unknown category %q", apperrors.ErrDataIntegrity, category)
	}
}

// Prepare derives texts and labels from one enumeration of docs so the two
// slices stay positionally aligned.
func Prepare(docs []Document) ([]string, []model.Label, error) {
	if len(docs) == 0 {
		return nil, nil, fmt.Errorf("%w: corpus is empty", apperrors.ErrDataIntegrity)
	}
	texts := make([]string, 0, len(docs))
	labels := make([]model.Label, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Categories) != 1 {
			return nil, nil, fmt.Errorf("%w: document %s has %d categories, want exactly 1",
				apperrors.ErrDataIntegrity, doc.ID, len(doc.Categories))
		}
		label, err := LabelForCategory(doc.Categories[0])
		if err != nil {
			return nil, nil, fmt.Errorf("document %s: %w", doc.ID, err)
		}
		texts = append(texts, doc.Text)
		labels = append(labels, label)
	}
	if len(texts) != len(labels) {
		return nil, nil, fmt.Errorf("%w: %d documents but %d labels", apperrors.ErrDataIntegrity, len(texts), len(labels))
	}
	return texts, labels, nil
}

// Split partitions texts/labels deterministically, holding out every k-th
// document where k = round(1/fraction). A non-positive fraction holds out
// nothing.
func Split(texts []string, labels []model.Label, fraction float64) (trainX []string, trainY []model.Label, testX []string, testY []model.Label) {
	if fraction <= 0 {
		return texts, labels, nil, nil
	}
	k := int(1/fraction + 0.5)
	if k < 2 {
		k = 2
	}
	for i := range texts {
		if (i+1)%k == 0 {
			testX = append(testX, texts[i])
			testY = append(testY, labels[i])
			continue
		}
		trainX = append(trainX, texts[i])
		trainY = append(trainY, labels[i])
	}
	return trainX, trainY, testX, testY
}
