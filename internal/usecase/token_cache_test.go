package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/overseas_trade_engine/internal/domain"
	"go.uber.org/zap"
)

var issueTime = time.Date(2026, 3, 16, 8, 0, 0, 0, time.UTC)

func newTestTokenCache(store domain.TokenStore, auth domain.Authenticator, now *time.Time) *TokenCache {
	c := NewTokenCache(store, auth, domain.DefaultTokenTTL, zap.NewNop())
	c.timeNow = func() time.Time { return *now }
	return c
}

func TestTokenCache_ReusesTokenWithinTTL(t *testing.T) {
	store := &fakeTokenStore{}
	auth := &fakeAuth{tokens: []string{"tok-1", "tok-2"}}
	now := issueTime
	c := newTestTokenCache(store, auth, &now)

	first, err := c.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", first)

	now = issueTime.Add(23*time.Hour + 59*time.Minute)
	second, err := c.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", second)
	assert.Equal(t, 1, auth.calls)
}

func TestTokenCache_ExpiresAtExactlyTTL(t *testing.T) {
	store := &fakeTokenStore{token: &domain.CachedToken{Token: "old", IssuedAt: issueTime}}
	auth := &fakeAuth{tokens: []string{"fresh"}}
	now := issueTime.Add(24 * time.Hour)
	c := newTestTokenCache(store, auth, &now)

	tok, err := c.GetToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "fresh", tok)
	assert.Equal(t, 1, auth.calls)
	assert.Equal(t, 1, store.deletes)
	require.Len(t, store.saved, 1)
	assert.Equal(t, now, store.saved[0].IssuedAt)

	again, err := c.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", again)
	assert.Equal(t, 1, auth.calls)
}

func TestTokenCache_CorruptCacheIsAMiss(t *testing.T) {
	store := &fakeTokenStore{loadErr: errors.New("invalid character")}
	auth := &fakeAuth{tokens: []string{"fresh"}}
	now := issueTime
	c := newTestTokenCache(store, auth, &now)

	tok, err := c.GetToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "fresh", tok)
	assert.Equal(t, 1, store.deletes)
}

func TestTokenCache_IssueFailure(t *testing.T) {
	store := &fakeTokenStore{}
	auth := &fakeAuth{err: errBoom}
	now := issueTime
	c := newTestTokenCache(store, auth, &now)

	_, err := c.GetToken(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTokenUnavailable)
	assert.Empty(t, store.saved)
}

func TestTokenCache_PersistFailureStillReturnsToken(t *testing.T) {
	store := &fakeTokenStore{saveErr: errBoom}
	auth := &fakeAuth{tokens: []string{"fresh"}}
	now := issueTime
	c := newTestTokenCache(store, auth, &now)

	tok, err := c.GetToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "fresh", tok)
}
