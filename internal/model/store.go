package model

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/model/artifact"
)

// LoadStatus is the outcome of looking for a persisted pipeline.
type LoadStatus int

const (
	Found LoadStatus = iota
	Missing
	Corrupt
)

func (s LoadStatus) String() string {
	switch s {
	case Found:
		return "found"
	case Missing:
		return "missing"
	case Corrupt:
		return "corrupt"
	default:
		return "unknown"
	}
}

// LoadResult is returned by Store.Load. Pipeline is set only when Status is
// Found; Err explains a Corrupt status.
type LoadResult struct {
	Status   LoadStatus
	Pipeline *Pipeline
	Err      error
}

// Store persists a single pipeline artifact on disk.
type Store struct {
	path   string
	logger *slog.Logger
}

func NewStore(path string) *Store {
	return &Store{
		path:   path,
		logger: slog.Default().With("component", "model-store"),
	}
}

func (s *Store) Path() string {
	return s.path
}

// Load reads the artifact. Absence and corruption are reported through the
// result status; the returned error is reserved for I/O failures that are
// neither, such as permission errors.
func (s *Store) Load() (LoadResult, error) {
	header, payload, err := artifact.Read(s.path)
	switch {
	case errors.Is(err, artifact.ErrNotFound):
		return LoadResult{Status: Missing}, nil
	case errors.Is(err, artifact.ErrCorrupt):
		return LoadResult{Status: Corrupt, Err: err}, nil
	case err != nil:
		return LoadResult{}, err
	}
	p, err := UnmarshalPipeline(payload)
	if err != nil {
		return LoadResult{Status: Corrupt, Err: fmt.Errorf("%w: %v", artifact.ErrCorrupt, err)}, nil
	}
	s.logger.Info("model loaded",
		"path", s.path,
		"features", p.NumFeatures(),
		"written_at", header.Created(),
	)
	return LoadResult{Status: Found, Pipeline: p}, nil
}

// Save atomically replaces the artifact with p.
func (s *Store) Save(p *Pipeline) error {
	payload, err := p.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encoding pipeline: %w", err)
	}
	header, err := artifact.Write(s.path, payload)
	if err != nil {
		return err
	}
	s.logger.Info("model saved",
		"path", s.path,
		"bytes", header.PayloadLen,
		"features", p.NumFeatures(),
	)
	return nil
}
