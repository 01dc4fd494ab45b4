package history

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/postgres"
)

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, DefaultLimit, ClampLimit(-4))
	assert.Equal(t, 7, ClampLimit(7))
	assert.Equal(t, MaxLimit, ClampLimit(MaxLimit+1))
}

func TestRecordAndRecent(t *testing.T) {
	if os.Getenv("CS_TEST_POSTGRES") == "" {
		t.Skip("CS_TEST_POSTGRES not set")
	}
	cfg, err := config.Load("")
	require.NoError(t, err)
	db, err := postgres.New(cfg.Postgres)
	require.NoError(t, err)

	ctx := context.Background()
	s := NewStore(db)
	defer s.Close()
	require.NoError(t, s.EnsureSchema(ctx))

	now := time.Now().UTC().Truncate(time.Microsecond)
	id, err := s.Record(ctx, Record{VideoID: "dQw4w9WgXcQ", Positive: 4, Negative: 1, Total: 5, RequestID: "req-1", AnalyzedAt: now})
	require.NoError(t, err)
	assert.Positive(t, id)

	recent, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, id, recent[0].ID)
	assert.Equal(t, 5, recent[0].Total)
	assert.True(t, now.Equal(recent[0].AnalyzedAt))
}
