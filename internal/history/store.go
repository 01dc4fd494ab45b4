// Package history keeps a PostgreSQL log of completed video analyses.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/postgres"
)

const (
	DefaultLimit = 20
	MaxLimit     = 200
)

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
    id          BIGSERIAL PRIMARY KEY,
    video_id    TEXT        NOT NULL,
    positive    INTEGER     NOT NULL,
    negative    INTEGER     NOT NULL,
    total       INTEGER     NOT NULL,
    request_id  TEXT        NOT NULL DEFAULT '',
    analyzed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS analyses_analyzed_at_idx ON analyses (analyzed_at DESC);
CREATE INDEX IF NOT EXISTS analyses_video_id_idx ON analyses (video_id);`

// Record is one stored analysis.
type Record struct {
	ID         int64     `json:"id"`
	VideoID    string    `json:"video_id"`
	Positive   int       `json:"positive"`
	Negative   int       `json:"negative"`
	Total      int       `json:"total"`
	RequestID  string    `json:"request_id,omitempty"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "history-store"),
	}
}

// EnsureSchema creates the analyses table and its indexes.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("creating analyses table: %w", err)
		}
		return nil
	})
}

// Record inserts r and returns its id.
func (s *Store) Record(ctx context.Context, r Record) (int64, error) {
	if r.AnalyzedAt.IsZero() {
		r.AnalyzedAt = time.Now().UTC()
	}
	var id int64
	err := s.db.DB.QueryRowContext(ctx,
		`INSERT INTO analyses (video_id, positive, negative, total, request_id, analyzed_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		r.VideoID, r.Positive, r.Negative, r.Total, r.RequestID, r.AnalyzedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting analysis for %s: %w", r.VideoID, err)
	}
	return id, nil
}

// Recent returns the newest analyses first. limit is clamped to
// [1, MaxLimit].
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	limit = ClampLimit(limit)
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, video_id, positive, negative, total, request_id, analyzed_at
		 FROM analyses ORDER BY analyzed_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.VideoID, &r.Positive, &r.Negative, &r.Total, &r.RequestID, &r.AnalyzedAt); err != nil {
			return nil, fmt.Errorf("scanning analysis row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// ClampLimit maps a requested page size onto [1, MaxLimit], using
// DefaultLimit for non-positive values.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
