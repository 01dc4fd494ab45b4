package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/config"
)

func TestIsNilError(t *testing.T) {
	assert.True(t, IsNilError(ErrNil))
	assert.False(t, IsNilError(nil))
	assert.False(t, IsNilError(context.Canceled))
}

func TestClientRoundTrip(t *testing.T) {
	addr := os.Getenv("CS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CS_TEST_REDIS_ADDR not set")
	}
	c, err := NewClient(config.RedisConfig{Addr: addr, PoolSize: 2})
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "cs-test:a", "1", time.Minute))
	require.NoError(t, c.Set(ctx, "cs-test:b", "2", time.Minute))
	v, err := c.Get(ctx, "cs-test:a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	n, err := c.FlushByPattern(ctx, "cs-test:*")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	_, err = c.Get(ctx, "cs-test:a")
	assert.True(t, IsNilError(err))
}
