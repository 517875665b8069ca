package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/overseas_trade_engine/internal/domain"
)

// Needs a running server: REDIS_TEST_ADDR=localhost:6379 go test ./...
func TestRedisTokenStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()

	store, err := NewRedisTokenStore(ctx, RedisConfig{Addr: addr, Key: "overseas_trade_engine:test_token"})
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.DeleteToken(ctx))

	tok, err := store.LoadToken(ctx)
	require.NoError(t, err)
	assert.Nil(t, tok)

	issued := time.Date(2026, 3, 16, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveToken(ctx, domain.CachedToken{Token: "abc", IssuedAt: issued}))

	tok, err = store.LoadToken(ctx)
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, "abc", tok.Token)
	assert.True(t, tok.IssuedAt.Equal(issued))

	require.NoError(t, store.DeleteToken(ctx))
}
