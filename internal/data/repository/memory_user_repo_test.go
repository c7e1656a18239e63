package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"marketplace-api/internal/data/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMemoryUser(t *testing.T, repo UserRepository, email string) *entity.User {
	t.Helper()
	u := &entity.User{Name: "Sari", Email: email, PasswordHash: "hash"}
	u.ID = uuid.New()
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestMemoryUserRepository_EmailIsCaseInsensitive(t *testing.T) {
	repo := NewMemoryUserRepository()
	seedMemoryUser(t, repo, "Sari@Example.com")

	dup := &entity.User{Email: "sari@example.COM"}
	dup.ID = uuid.New()
	assert.ErrorIs(t, repo.Create(context.Background(), dup), ErrDuplicateEmail)

	found, err := repo.FindByEmail(context.Background(), "SARI@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Sari@Example.com", found.Email)
}

func TestMemoryUserRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryUserRepository()
	u := seedMemoryUser(t, repo, "copy@example.com")

	found, err := repo.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	found.Name = "Changed"

	again, err := repo.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sari", again.Name)
}

func TestMemoryUserRepository_ConcurrentFailuresLockOnce(t *testing.T) {
	repo := NewMemoryUserRepository()
	u := seedMemoryUser(t, repo, "lock@example.com")

	var applied, locked atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state, ok, err := repo.RecordLoginFailure(context.Background(), u.ID, testNow, testPolicy)
			assert.NoError(t, err)
			if ok {
				applied.Add(1)
				if state.LockUntil != nil {
					locked.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(testPolicy.Threshold), applied.Load())
	assert.Equal(t, int32(1), locked.Load())

	ok, err := repo.RecordLoginSuccess(context.Background(), u.ID, testNow)
	require.NoError(t, err)
	assert.False(t, ok, "success must not clear an active lock")

	ok, err = repo.RecordLoginSuccess(context.Background(), u.ID, testNow.Add(testPolicy.Duration))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryUserRepository_ResetTokenIsSingleUse(t *testing.T) {
	repo := NewMemoryUserRepository()
	u := seedMemoryUser(t, repo, "reset@example.com")
	ctx := context.Background()
	require.NoError(t, repo.SetPasswordResetToken(ctx, u.ID, "digest", testNow.Add(10*time.Minute), testNow))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.ConsumePasswordReset(ctx, u.ID, "digest", "new-hash", testNow)
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	found, err := repo.FindByResetDigest(ctx, "digest", testNow)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestMemoryUserRepository_ExpiredVerificationIsRejected(t *testing.T) {
	repo := NewMemoryUserRepository()
	u := seedMemoryUser(t, repo, "verify@example.com")
	ctx := context.Background()
	require.NoError(t, repo.SetEmailVerificationToken(ctx, u.ID, "vdigest", testNow.Add(time.Hour), testNow))

	ok, err := repo.ConsumeEmailVerification(ctx, "vdigest", testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, ok, "expiry instant is already expired")

	ok, err = repo.ConsumeEmailVerification(ctx, "vdigest", testNow.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	found, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, found.IsEmailVerified)
	assert.Nil(t, found.EmailVerificationDigest)
}

func TestMemoryUserRepository_UnknownUser(t *testing.T) {
	repo := NewMemoryUserRepository()
	id := uuid.New()

	_, applied, err := repo.RecordLoginFailure(context.Background(), id, testNow, testPolicy)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Error(t, repo.UpdatePassword(context.Background(), id, "h", testNow))
}
