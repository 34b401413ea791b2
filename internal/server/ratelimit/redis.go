package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophidentity/internal/server/config"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "gophidentity:login:"

// RedisLimiter is a fixed-window LoginLimiter over Redis counters.
type RedisLimiter struct {
	client      redis.UniversalClient
	maxAttempts int64
	window      time.Duration
}

func NewRedisLimiter(client redis.UniversalClient, maxAttempts int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, maxAttempts: int64(maxAttempts), window: window}
}

// FromConfig returns a RedisLimiter when cfg.RedisAddr is set and Nop
// otherwise. The returned close function releases the Redis client.
func FromConfig(cfg *config.Config) (LoginLimiter, func() error) {
	if cfg.RedisAddr == "" {
		return Nop{}, func() error { return nil }
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return NewRedisLimiter(client, cfg.LoginMaxAttempts, cfg.LoginWindow), client.Close
}

func loginKey(key string) string {
	return keyPrefix + key
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := loginKey(key)

	// The window starts at the first attempt. EXPIRE NX on every hit
	// leaves a running window alone and restores a lost TTL.
	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, l.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return incr.Val() <= l.maxAttempts, nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, loginKey(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
