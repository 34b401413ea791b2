package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/gophidentity/internal/server/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T, max int, window time.Duration) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return NewRedisLimiter(rdb, max, window), mr
}

func TestRedisLimiter_AllowsUpToMax(t *testing.T) {
	l, _ := newLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
	}
	ok, err := l.Allow(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	// Other keys have their own budget.
	ok, err = l.Allow(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiter_WindowExpires(t *testing.T) {
	l, mr := newLimiter(t, 1, time.Minute)
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "alice@example.com")
	assert.True(t, ok)
	assert.Equal(t, time.Minute, mr.TTL(loginKey("alice@example.com")))

	ok, _ = l.Allow(ctx, "alice@example.com")
	assert.False(t, ok)

	mr.FastForward(time.Minute + time.Second)

	ok, err := l.Allow(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiter_WindowNotExtendedByLaterHits(t *testing.T) {
	l, mr := newLimiter(t, 5, time.Minute)
	ctx := context.Background()

	_, _ = l.Allow(ctx, "alice@example.com")
	mr.FastForward(40 * time.Second)
	_, err := l.Allow(ctx, "alice@example.com")
	require.NoError(t, err)

	assert.Equal(t, 20*time.Second, mr.TTL(loginKey("alice@example.com")))
}

func TestRedisLimiter_RestoresMissingTTL(t *testing.T) {
	l, mr := newLimiter(t, 2, time.Minute)
	ctx := context.Background()

	// A counter left behind without an expiry, already over budget.
	require.NoError(t, mr.Set(loginKey("alice@example.com"), "7"))
	require.Zero(t, mr.TTL(loginKey("alice@example.com")))

	ok, err := l.Allow(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, mr.TTL(loginKey("alice@example.com")))

	mr.FastForward(time.Minute + time.Second)

	ok, err = l.Allow(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, ok, "the stale counter expires with the restored window")
}

func TestRedisLimiter_Reset(t *testing.T) {
	l, mr := newLimiter(t, 1, time.Minute)
	ctx := context.Background()

	_, _ = l.Allow(ctx, "alice@example.com")
	ok, _ := l.Allow(ctx, "alice@example.com")
	require.False(t, ok)

	require.NoError(t, l.Reset(ctx, "alice@example.com"))
	assert.False(t, mr.Exists(loginKey("alice@example.com")))

	ok, err := l.Allow(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiter_Unavailable(t *testing.T) {
	l, mr := newLimiter(t, 1, time.Minute)
	mr.Close()

	_, err := l.Allow(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, l.Reset(context.Background(), "alice@example.com"), ErrUnavailable)
}

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{}
	l, closeFn := FromConfig(cfg)
	assert.IsType(t, Nop{}, l)
	require.NoError(t, closeFn())

	mr := miniredis.RunT(t)
	cfg.RedisAddr = mr.Addr()
	cfg.LoginMaxAttempts = 2
	cfg.LoginWindow = time.Minute
	l, closeFn = FromConfig(cfg)
	defer closeFn()
	require.IsType(t, &RedisLimiter{}, l)

	ok, err := l.Allow(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNop(t *testing.T) {
	var l LoginLimiter = Nop{}
	for i := 0; i < 100; i++ {
		ok, err := l.Allow(context.Background(), "k")
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.NoError(t, l.Reset(context.Background(), "k"))
}
