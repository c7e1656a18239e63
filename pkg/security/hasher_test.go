package security

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	ctx := context.Background()
	h := NewBcryptHasher(bcrypt.MinCost, 2)

	hash, err := h.Hash(ctx, "secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)

	assert.True(t, h.Verify(ctx, "secret1", hash))
	assert.False(t, h.Verify(ctx, "secret2", hash))
}

func TestBcryptHasher_SaltsEveryHash(t *testing.T) {
	ctx := context.Background()
	h := NewBcryptHasher(bcrypt.MinCost, 2)

	first, err := h.Hash(ctx, "same-password")
	require.NoError(t, err)
	second, err := h.Hash(ctx, "same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, h.Verify(ctx, "same-password", first))
	assert.True(t, h.Verify(ctx, "same-password", second))
}

func TestBcryptHasher_DefaultCostIsTwelve(t *testing.T) {
	h := NewBcryptHasher(0, 0)
	assert.Equal(t, DefaultCost, h.Cost())

	hash, err := h.Hash(context.Background(), "secret1")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, 12, cost)
	assert.True(t, strings.HasPrefix(hash, "$2a$12$"))
}

func TestBcryptHasher_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	h := NewBcryptHasher(bcrypt.MinCost, 1)

	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{name: "empty", password: "", wantErr: ErrEmptyPassword},
		{name: "over 72 bytes", password: strings.Repeat("a", 73), wantErr: ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Hash(ctx, tt.password)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBcryptHasher_VerifyRejectsOverlongPassword(t *testing.T) {
	ctx := context.Background()
	h := NewBcryptHasher(bcrypt.MinCost, 1)

	stored := strings.Repeat("a", MaxPasswordBytes)
	hash, err := h.Hash(ctx, stored)
	require.NoError(t, err)

	assert.True(t, h.Verify(ctx, stored, hash))
	assert.False(t, h.Verify(ctx, strings.Repeat("a", 100), hash))
	assert.False(t, h.Verify(ctx, stored+"b", hash))
}

func TestBcryptHasher_VerifyMalformedHash(t *testing.T) {
	ctx := context.Background()
	h := NewBcryptHasher(bcrypt.MinCost, 1)

	assert.False(t, h.Verify(ctx, "secret1", "not-a-bcrypt-hash"))
	assert.False(t, h.Verify(ctx, "secret1", ""))
	assert.False(t, h.Verify(ctx, "", "$2a$04$abc"))
}

func TestBcryptHasher_VerifyDummyDoesNotPanic(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost, 1)
	assert.NotPanics(t, func() {
		h.VerifyDummy(context.Background(), "whatever")
	})
}

func TestBcryptHasher_BoundedWorkersStillCompleteAll(t *testing.T) {
	ctx := context.Background()
	h := NewBcryptHasher(bcrypt.MinCost, 1)

	hash, err := h.Hash(ctx, "secret1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]bool, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = h.Verify(ctx, "secret1", hash)
		}(i)
	}
	wg.Wait()

	for i, ok := range results {
		assert.True(t, ok, "verify %d", i)
	}
}

func TestBcryptHasher_CancelledContextStillVerifies(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost, 1)
	hash, err := h.Hash(context.Background(), "secret1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.True(t, h.Verify(ctx, "secret1", hash))
}
