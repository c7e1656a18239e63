// Package security holds the credential primitives: password hashing,
// single-use tokens, lockout transitions and signed session tokens.
package security

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultCost is the bcrypt work factor used for new password hashes.
const DefaultCost = 12

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

var (
	ErrEmptyPassword   = errors.New("password must not be empty")
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, hash string) bool
	// VerifyDummy burns the same CPU as a real Verify against a hash that
	// never matches. Used when the account does not exist.
	VerifyDummy(ctx context.Context, password string)
}

// BcryptHasher runs bcrypt on a bounded number of concurrent workers so
// that a burst of logins cannot take every CPU away from other requests.
type BcryptHasher struct {
	cost  int
	sem   *semaphore.Weighted
	dummy func() []byte
}

// NewBcryptHasher returns a hasher with the given cost and worker limit.
// Out-of-range values fall back to DefaultCost and runtime.NumCPU().
func NewBcryptHasher(cost, workers int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	h := &BcryptHasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(workers)),
	}
	h.dummy = sync.OnceValue(func() []byte {
		out, err := bcrypt.GenerateFromPassword([]byte("marketplace-dummy-password"), h.cost)
		if err != nil {
			return nil
		}
		return out
	})
	return h
}

// Cost reports the configured work factor.
func (h *BcryptHasher) Cost() int {
	return h.cost
}

func (h *BcryptHasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	release := h.acquire(ctx)
	defer release()

	out, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Verify never fails loudly: a malformed hash simply does not match.
// Inputs over MaxPasswordBytes never match, since bcrypt only reads the
// first 72 bytes; the comparison still runs so the timing is unchanged.
func (h *BcryptHasher) Verify(ctx context.Context, password, hash string) bool {
	if password == "" || hash == "" {
		return false
	}

	release := h.acquire(ctx)
	defer release()

	matched := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	return matched && len(password) <= MaxPasswordBytes
}

func (h *BcryptHasher) VerifyDummy(ctx context.Context, password string) {
	dummy := h.dummy()
	if dummy == nil {
		return
	}

	release := h.acquire(ctx)
	defer release()

	_ = bcrypt.CompareHashAndPassword(dummy, []byte(password))
}

// acquire blocks until a worker slot is free. The wait is detached from
// request cancellation so a started credential check always completes.
func (h *BcryptHasher) acquire(ctx context.Context) func() {
	_ = h.sem.Acquire(context.WithoutCancel(ctx), 1)
	return func() { h.sem.Release(1) }
}
