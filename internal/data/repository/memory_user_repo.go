package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marketplace-api/internal/data/entity"
	"marketplace-api/pkg/security"
	"marketplace-api/pkg/utils"

	"github.com/google/uuid"
)

// memoryUserRepository keeps users in process memory. The mutex makes
// every method one atomic step, matching the conditional updates of the
// Postgres store. Records are copied in and out so callers never share state.
type memoryUserRepository struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*entity.User
	byEmail map[string]uuid.UUID
}

func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{
		users:   make(map[uuid.UUID]*entity.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func cloneUser(u *entity.User) *entity.User {
	c := *u
	return &c
}

func ptr[T any](v T) *T {
	return &v
}

func (m *memoryUserRepository) Create(_ context.Context, user *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := utils.NormalizeEmail(user.Email)
	if _, exists := m.byEmail[key]; exists {
		return fmt.Errorf("create user %s: %w", user.Email, ErrDuplicateEmail)
	}

	m.users[user.ID] = cloneUser(user)
	m.byEmail[key] = user.ID
	return nil
}

func (m *memoryUserRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, nil
	}
	return cloneUser(u), nil
}

func (m *memoryUserRepository) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byEmail[utils.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	u := m.users[id]
	if u.DeletedAt != nil {
		return nil, nil
	}
	return cloneUser(u), nil
}

func (m *memoryUserRepository) FindByResetDigest(_ context.Context, digest string, now time.Time) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.DeletedAt == nil && validToken(u.PasswordResetDigest, u.PasswordResetExpiresAt, digest, now) {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (m *memoryUserRepository) FindByVerificationDigest(_ context.Context, digest string, now time.Time) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.DeletedAt == nil && validToken(u.EmailVerificationDigest, u.EmailVerificationExpiresAt, digest, now) {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func validToken(stored *string, expiresAt *time.Time, digest string, now time.Time) bool {
	return stored != nil && expiresAt != nil && *stored == digest && expiresAt.After(now)
}

func (m *memoryUserRepository) RecordLoginFailure(_ context.Context, id uuid.UUID, now time.Time, policy security.LockoutPolicy) (security.LockState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil {
		return security.LockState{}, false, nil
	}

	next, applied := policy.Failure(u.LockState(), now)
	if !applied {
		return security.LockState{}, false, nil
	}

	u.LoginAttempts = next.Attempts
	u.LockUntil = next.LockUntil
	u.UpdatedAt = now
	return next, true, nil
}

func (m *memoryUserRepository) RecordLoginSuccess(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil {
		return false, nil
	}

	if _, applied := security.DefaultLockoutPolicy().Success(u.LockState(), now); !applied {
		return false, nil
	}

	u.LoginAttempts = 0
	u.LockUntil = nil
	u.LastLogin = ptr(now)
	u.UpdatedAt = now
	return true, nil
}

func (m *memoryUserRepository) SetPasswordResetToken(_ context.Context, id uuid.UUID, digest string, expiresAt, now time.Time) error {
	return m.mutate(id, func(u *entity.User) {
		u.PasswordResetDigest = ptr(digest)
		u.PasswordResetExpiresAt = ptr(expiresAt)
		u.UpdatedAt = now
	})
}

func (m *memoryUserRepository) SetEmailVerificationToken(_ context.Context, id uuid.UUID, digest string, expiresAt, now time.Time) error {
	return m.mutate(id, func(u *entity.User) {
		u.EmailVerificationDigest = ptr(digest)
		u.EmailVerificationExpiresAt = ptr(expiresAt)
		u.UpdatedAt = now
	})
}

func (m *memoryUserRepository) ConsumePasswordReset(_ context.Context, id uuid.UUID, digest, passwordHash string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil || !validToken(u.PasswordResetDigest, u.PasswordResetExpiresAt, digest, now) {
		return false, nil
	}

	u.PasswordHash = passwordHash
	u.PasswordChangedAt = now
	u.PasswordResetDigest = nil
	u.PasswordResetExpiresAt = nil
	u.LoginAttempts = 0
	u.LockUntil = nil
	u.UpdatedAt = now
	return true, nil
}

func (m *memoryUserRepository) ConsumeEmailVerification(_ context.Context, digest string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.DeletedAt != nil || !validToken(u.EmailVerificationDigest, u.EmailVerificationExpiresAt, digest, now) {
			continue
		}
		u.IsEmailVerified = true
		u.EmailVerificationDigest = nil
		u.EmailVerificationExpiresAt = nil
		u.UpdatedAt = now
		return true, nil
	}
	return false, nil
}

func (m *memoryUserRepository) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string, now time.Time) error {
	return m.mutate(id, func(u *entity.User) {
		u.PasswordHash = passwordHash
		u.PasswordChangedAt = now
		u.UpdatedAt = now
	})
}

func (m *memoryUserRepository) UpdateProfile(_ context.Context, user *entity.User) error {
	return m.mutate(user.ID, func(u *entity.User) {
		u.Name = user.Name
		u.Avatar = user.Avatar
		u.Phone = user.Phone
		u.DateOfBirth = user.DateOfBirth
		u.Address = user.Address
		u.Preferences = user.Preferences
		u.UpdatedAt = user.UpdatedAt
	})
}

func (m *memoryUserRepository) ClearExpiredTokens(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var cleared int64
	for _, u := range m.users {
		touched := false
		if u.PasswordResetExpiresAt != nil && !u.PasswordResetExpiresAt.After(now) {
			u.PasswordResetDigest = nil
			u.PasswordResetExpiresAt = nil
			touched = true
		}
		if u.EmailVerificationExpiresAt != nil && !u.EmailVerificationExpiresAt.After(now) {
			u.EmailVerificationDigest = nil
			u.EmailVerificationExpiresAt = nil
			touched = true
		}
		if touched {
			cleared++
		}
	}
	return cleared, nil
}

func (m *memoryUserRepository) mutate(id uuid.UUID, fn func(u *entity.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil {
		return fmt.Errorf("user %s not found or already deleted", id.String())
	}
	fn(u)
	return nil
}
