// Package password provides one-way password hashing for account credentials.
package password

import (
	"context"
	"errors"
	"runtime"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultCost is the bcrypt work factor used for new hashes.
	DefaultCost = 10
	// MaxPasswordBytes is the longest input bcrypt reads; later bytes are ignored.
	MaxPasswordBytes = 72
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = errors.New("password cannot be empty")

// BcryptHasher hashes and verifies passwords with bcrypt.
// Each operation holds one slot of a weighted semaphore, so at most
// maxConcurrent hashes run at once and callers beyond that wait in turn.
type BcryptHasher struct {
	cost int
	sem  *semaphore.Weighted
}

// NewBcryptHasher creates a BcryptHasher.
// A cost outside bcrypt's range falls back to DefaultCost; maxConcurrent <= 0
// uses GOMAXPROCS.
func NewBcryptHasher(cost, maxConcurrent int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	if maxConcurrent <= 0 {
		maxConcurrent = runtime.GOMAXPROCS(0)
	}
	return &BcryptHasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Hash returns the salted bcrypt hash of plain.
func (h *BcryptHasher) Hash(ctx context.Context, plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", oops.Code("PASSWORD_HASH_CANCELED").Wrap(err)
	}
	defer h.sem.Release(1)

	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", oops.Code("PASSWORD_HASH_FAILED").Wrap(err)
	}
	return string(hashed), nil
}

// Verify reports whether plain matches hash.
// It returns (false, nil) on mismatch and an error if hash is malformed.
// Inputs longer than MaxPasswordBytes never match, since bcrypt would only
// compare their prefix.
func (h *BcryptHasher) Verify(ctx context.Context, hash, plain string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, oops.Code("PASSWORD_VERIFY_CANCELED").Wrap(err)
	}
	defer h.sem.Release(1)

	// The comparison still runs for over-long input so it costs the same.
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	switch {
	case len(plain) > MaxPasswordBytes && (err == nil || errors.Is(err, bcrypt.ErrMismatchedHashAndPassword)):
		return false, nil
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, oops.Code("PASSWORD_INVALID_HASH").Wrap(err)
	}
}

// Cost returns the work factor embedded in hash.
func Cost(hash string) (int, error) {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return 0, oops.Code("PASSWORD_INVALID_HASH").Wrap(err)
	}
	return cost, nil
}
