package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Skotchmaster/projects_api/internal/logging"
	"github.com/Skotchmaster/projects_api/internal/models"
)

const keyPrefix = "revoked_jti:"

// Store is the authoritative revocation registry.
type Store interface {
	Revoke(ctx context.Context, entry models.RevokedToken) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RedisRevocations writes revocations through to Redis and answers lookups
// from Redis first. Only positive results are cached, so the store stays the
// source of truth.
type RedisRevocations struct {
	client *redis.Client
	store  Store
	now    func() time.Time
}

func NewRedisRevocations(client *redis.Client, store Store, now func() time.Time) *RedisRevocations {
	if now == nil {
		now = time.Now
	}
	return &RedisRevocations{client: client, store: store, now: now}
}

// Dial accepts either host:port or a redis:// URL.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		opts = parsed
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 500 * time.Millisecond
	opts.WriteTimeout = 500 * time.Millisecond

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (c *RedisRevocations) Revoke(ctx context.Context, entry models.RevokedToken) error {
	if err := c.store.Revoke(ctx, entry); err != nil {
		return err
	}

	ttl := entry.ExpiresAt.Sub(c.now())
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, keyPrefix+entry.JTI, "1", ttl).Err(); err != nil {
		logging.FromContext(ctx).Warn("revocation_cache_write_failed", "error", err)
	}
	return nil
}

func (c *RedisRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := c.client.Get(ctx, keyPrefix+jti).Err()
	switch {
	case err == nil:
		return true, nil
	case err != redis.Nil:
		logging.FromContext(ctx).Warn("revocation_cache_read_failed", "error", err)
	}
	return c.store.IsRevoked(ctx, jti)
}
