// Package password hashes and verifies account secrets with bcrypt.
//
// bcrypt is deliberately slow, so every hash or compare runs under a
// weighted semaphore sized to the configured number of workers. Callers that
// give up (context cancelled) release their place in the queue.
package password

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophidentity/internal/common"
	"github.com/dmitrijs2005/gophidentity/internal/shared"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

const (
	MinLength = 6
	// MaxLength is the bcrypt input limit; longer secrets would be truncated.
	MaxLength = 72
)

// Hasher is the contract the account service depends on.
type Hasher interface {
	Hash(ctx context.Context, secret string) (string, error)
	Verify(ctx context.Context, secret, hash string) (bool, error)
	// VerifyAbsent spends the same work as Verify for a caller whose account
	// does not exist and always reports a mismatch.
	VerifyAbsent(ctx context.Context, secret string)
}

// Bcrypt is a Hasher backed by golang.org/x/crypto/bcrypt.
type Bcrypt struct {
	cost  int
	sem   *semaphore.Weighted
	dummy []byte
}

// NewBcrypt builds a hasher with the given work factor and concurrency.
func NewBcrypt(cost, workers int) (*Bcrypt, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if workers <= 0 {
		return nil, errors.New("hash workers must be positive")
	}

	filler, err := shared.MakeRandHexString(16)
	if err != nil {
		return nil, err
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(filler), cost)
	if err != nil {
		return nil, err
	}

	return &Bcrypt{cost: cost, sem: semaphore.NewWeighted(int64(workers)), dummy: dummy}, nil
}

// Validate checks length limits before any hashing work is spent.
func Validate(secret string) error {
	if len(secret) < MinLength {
		return common.Validation("password", fmt.Sprintf("password must be at least %d characters", MinLength))
	}
	if len(secret) > MaxLength {
		return common.Validation("password", fmt.Sprintf("password must be at most %d bytes", MaxLength))
	}
	return nil
}

// Hash returns a salted bcrypt hash. Two calls with the same secret give
// different results.
func (b *Bcrypt) Hash(ctx context.Context, secret string) (string, error) {
	if err := Validate(secret); err != nil {
		return "", err
	}
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer b.sem.Release(1)

	h, err := bcrypt.GenerateFromPassword([]byte(secret), b.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(h), nil
}

// Verify reports whether secret matches hash. A mismatch is (false, nil);
// a malformed hash is an error. A secret over MaxLength never matches, since
// bcrypt would only compare its first MaxLength bytes.
func (b *Bcrypt) Verify(ctx context.Context, secret, hash string) (bool, error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer b.sem.Release(1)

	if len(secret) > MaxLength {
		_ = bcrypt.CompareHashAndPassword(b.dummy, []byte(secret[:MaxLength]))
		return false, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("bcrypt: %w", err)
	}
}

func (b *Bcrypt) VerifyAbsent(ctx context.Context, secret string) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer b.sem.Release(1)

	_ = bcrypt.CompareHashAndPassword(b.dummy, []byte(secret))
}
