package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/config"
)

func TestNewFailsWhenServerUnreachable(t *testing.T) {
	_, err := New(config.PostgresConfig{
		Host:     "127.0.0.1",
		Port:     1,
		Database: "sentiment",
		User:     "sentiment",
		SSLMode:  "disable",
	})
	assert.ErrorContains(t, err, "pinging postgres")
}

func TestInTx(t *testing.T) {
	if os.Getenv("CS_TEST_POSTGRES") == "" {
		t.Skip("CS_TEST_POSTGRES not set")
	}
	cfg, err := config.Load("")
	require.NoError(t, err)
	c, err := New(cfg.Postgres)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))
	_, err = c.DB.ExecContext(ctx, `CREATE TEMP TABLE tx_probe (n INTEGER)`)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = c.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO tx_probe VALUES (1)`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, c.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO tx_probe VALUES (2)`)
		return err
	}))

	var count int
	require.NoError(t, c.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM tx_probe`).Scan(&count))
	assert.Equal(t, 1, count)
}
