package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/vitos/overseas_trade_engine/internal/domain"
)

const defaultTokenKey = "overseas_trade_engine:access_token"

// RedisTokenStore keeps the cached access token under a single key.
type RedisTokenStore struct {
	rdb *redis.Client
	key string
}

// RedisConfig holds connection parameters for the token store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// NewRedisTokenStore connects and pings the server.
func NewRedisTokenStore(ctx context.Context, cfg RedisConfig) (*RedisTokenStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return NewRedisTokenStoreFromClient(rdb, cfg.Key), nil
}

func NewRedisTokenStoreFromClient(rdb *redis.Client, key string) *RedisTokenStore {
	if key == "" {
		key = defaultTokenKey
	}
	return &RedisTokenStore{rdb: rdb, key: key}
}

func (s *RedisTokenStore) LoadToken(ctx context.Context) (*domain.CachedToken, error) {
	raw, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get token: %w", err)
	}

	var t domain.CachedToken
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("redis: decode token: %w", err)
	}
	return &t, nil
}

// SaveToken stores the token without a server-side expiry; usability is
// decided by the cache's TTL check.
func (s *RedisTokenStore) SaveToken(ctx context.Context, token domain.CachedToken) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis: set token: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) DeleteToken(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis: delete token: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Close() error {
	return s.rdb.Close()
}
