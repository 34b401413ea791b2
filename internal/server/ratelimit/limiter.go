// Package ratelimit throttles login attempts. The service keys attempts on
// the normalized email together with the client address, so a stranger
// spending the budget for an email does not lock its owner out elsewhere.
//
// The Redis limiter keeps a fixed-window counter per key: the first
// attempt in a window sets the expiry, every attempt increments, and an
// attempt beyond the maximum is refused until the key expires. Callers are
// expected to fail open when Allow returns an error.
package ratelimit

import (
	"context"
	"errors"
)

// ErrUnavailable wraps transport failures from the backing store.
var ErrUnavailable = errors.New("rate limiter unavailable")

// LoginLimiter counts login attempts.
type LoginLimiter interface {
	// Allow records one attempt for key and reports whether it is within
	// the budget.
	Allow(ctx context.Context, key string) (bool, error)
	// Reset clears the counter after a successful login.
	Reset(ctx context.Context, key string) error
}

// Nop allows every attempt. It is used when no Redis address is configured.
type Nop struct{}

func (Nop) Allow(context.Context, string) (bool, error) { return true, nil }

func (Nop) Reset(context.Context, string) error { return nil }
