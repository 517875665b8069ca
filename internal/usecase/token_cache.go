package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vitos/overseas_trade_engine/internal/domain"
	"go.uber.org/zap"
)

// TokenCache hands out a usable access token, reusing the persisted one until
// it expires. Only one token is kept: a new issue replaces the stored one.
type TokenCache struct {
	store   domain.TokenStore
	auth    domain.Authenticator
	ttl     time.Duration
	logger  *zap.Logger
	timeNow func() time.Time
	mu      sync.Mutex
}

func NewTokenCache(store domain.TokenStore, auth domain.Authenticator, ttl time.Duration, logger *zap.Logger) *TokenCache {
	if ttl <= 0 {
		ttl = domain.DefaultTokenTTL
	}
	return &TokenCache{
		store:   store,
		auth:    auth,
		ttl:     ttl,
		logger:  logger,
		timeNow: time.Now,
	}
}

// GetToken returns the cached token while it is younger than the TTL.
// Unreadable or expired cache entries count as a miss.
func (c *TokenCache) GetToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.timeNow()

	cached, err := c.store.LoadToken(ctx)
	switch {
	case err != nil:
		c.logger.Warn("Token cache unreadable, issuing a new token", zap.Error(err))
	case cached == nil:
		c.logger.Debug("No cached token")
	case cached.Usable(now, c.ttl):
		c.logger.Info("Using cached access token")
		return cached.Token, nil
	default:
		c.logger.Info("Cached access token expired", zap.Time("issued_at", cached.IssuedAt))
	}

	if err != nil || cached != nil {
		if err := c.store.DeleteToken(ctx); err != nil {
			c.logger.Error("Failed to delete cached token", zap.Error(err))
		}
	}

	token, err := c.auth.RequestNewToken(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTokenUnavailable, err)
	}
	if token == "" {
		return "", domain.ErrTokenUnavailable
	}

	if err := c.store.SaveToken(ctx, domain.CachedToken{Token: token, IssuedAt: now}); err != nil {
		c.logger.Error("Failed to persist access token", zap.Error(err))
	}
	c.logger.Info("Issued new access token")
	return token, nil
}
