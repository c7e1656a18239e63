package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace-api/internal/data/entity"
	"marketplace-api/pkg/database"
	"marketplace-api/pkg/security"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// ErrDuplicateEmail is returned by Create when the address is already taken.
var ErrDuplicateEmail = errors.New("email already registered")

// UserRepository is the record store behind the credential service.
// Every lockout and token transition is a single conditional update so
// concurrent requests for one account cannot lose writes.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByResetDigest(ctx context.Context, digest string, now time.Time) (*entity.User, error)
	FindByVerificationDigest(ctx context.Context, digest string, now time.Time) (*entity.User, error)

	// RecordLoginFailure applies one failed attempt. applied is false when
	// the account is locked (or gone) and nothing was written.
	RecordLoginFailure(ctx context.Context, id uuid.UUID, now time.Time, policy security.LockoutPolicy) (state security.LockState, applied bool, err error)
	// RecordLoginSuccess resets the counters and stamps last_login.
	RecordLoginSuccess(ctx context.Context, id uuid.UUID, now time.Time) (applied bool, err error)

	SetPasswordResetToken(ctx context.Context, id uuid.UUID, digest string, expiresAt, now time.Time) error
	SetEmailVerificationToken(ctx context.Context, id uuid.UUID, digest string, expiresAt, now time.Time) error
	// ConsumePasswordReset swaps the hash and clears the token only while
	// the digest still matches and has not expired.
	ConsumePasswordReset(ctx context.Context, id uuid.UUID, digest, passwordHash string, now time.Time) (bool, error)
	ConsumeEmailVerification(ctx context.Context, digest string, now time.Time) (bool, error)

	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, now time.Time) error
	UpdateProfile(ctx context.Context, user *entity.User) error
	ClearExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

const userColumns = `
	id, name, email, password, role, is_active, is_email_verified,
	avatar, phone, date_of_birth, address, preferences,
	email_verification_digest, email_verification_expires_at,
	password_reset_digest, password_reset_expires_at,
	password_changed_at, login_attempts, lock_until, last_login,
	google_id, facebook_id, agreed_to_terms, agreed_to_terms_at,
	created_at, updated_at, deleted_at`

type userRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewUserRepository(db database.PgxIface, log *zap.Logger) UserRepository {
	return &userRepository{
		db:  db,
		log: log.With(zap.String("repository", "user")),
	}
}

func scanUser(row pgx.Row) (*entity.User, error) {
	var user entity.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.IsActive,
		&user.IsEmailVerified,
		&user.Avatar,
		&user.Phone,
		&user.DateOfBirth,
		&user.Address,
		&user.Preferences,
		&user.EmailVerificationDigest,
		&user.EmailVerificationExpiresAt,
		&user.PasswordResetDigest,
		&user.PasswordResetExpiresAt,
		&user.PasswordChangedAt,
		&user.LoginAttempts,
		&user.LockUntil,
		&user.LastLogin,
		&user.GoogleID,
		&user.FacebookID,
		&user.AgreedToTerms,
		&user.AgreedToTermsAt,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new user record into the database
func (ur *userRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (id, name, email, password, role, is_active, is_email_verified,
		                   avatar, phone, date_of_birth, address, preferences,
		                   email_verification_digest, email_verification_expires_at,
		                   password_changed_at, agreed_to_terms, agreed_to_terms_at,
		                   created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := ur.db.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.IsActive,
		user.IsEmailVerified,
		user.Avatar,
		user.Phone,
		user.DateOfBirth,
		user.Address,
		user.Preferences,
		user.EmailVerificationDigest,
		user.EmailVerificationExpiresAt,
		user.PasswordChangedAt,
		user.AgreedToTerms,
		user.AgreedToTermsAt,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			ur.log.Warn("Duplicate email on create", zap.String("email", user.Email))
			return fmt.Errorf("create user %s: %w", user.Email, ErrDuplicateEmail)
		}
		ur.log.Error("Failed to create user",
			zap.Error(err),
			zap.String("email", user.Email),
		)
		return fmt.Errorf("create user %s: %w", user.Email, err)
	}

	return nil
}

func (ur *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`

	user, err := scanUser(ur.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		ur.log.Error("Failed to find user by ID",
			zap.Error(err),
			zap.String("user_id", id.String()),
		)
		return nil, fmt.Errorf("find user by ID %s: %w", id.String(), err)
	}

	return user, nil
}

func (ur *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1) AND deleted_at IS NULL`

	user, err := scanUser(ur.db.QueryRow(ctx, query, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		ur.log.Error("Failed to find user by email",
			zap.Error(err),
			zap.String("email", email),
		)
		return nil, fmt.Errorf("find user by email %s: %w", email, err)
	}

	return user, nil
}

func (ur *userRepository) FindByResetDigest(ctx context.Context, digest string, now time.Time) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE password_reset_digest = $1 AND password_reset_expires_at > $2 AND deleted_at IS NULL`

	user, err := scanUser(ur.db.QueryRow(ctx, query, digest, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		ur.log.Error("Failed to find user by reset digest", zap.Error(err))
		return nil, fmt.Errorf("find user by reset digest: %w", err)
	}

	return user, nil
}

func (ur *userRepository) FindByVerificationDigest(ctx context.Context, digest string, now time.Time) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE email_verification_digest = $1 AND email_verification_expires_at > $2 AND deleted_at IS NULL`

	user, err := scanUser(ur.db.QueryRow(ctx, query, digest, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		ur.log.Error("Failed to find user by verification digest", zap.Error(err))
		return nil, fmt.Errorf("find user by verification digest: %w", err)
	}

	return user, nil
}

func (ur *userRepository) RecordLoginFailure(ctx context.Context, id uuid.UUID, now time.Time, policy security.LockoutPolicy) (security.LockState, bool, error) {
	// An expired lock counts as a clean slate before the attempt is added.
	query := `
		UPDATE users SET
			login_attempts = CASE
				WHEN lock_until IS NOT NULL AND lock_until <= $2 THEN 1
				ELSE login_attempts + 1
			END,
			lock_until = CASE
				WHEN (CASE WHEN lock_until IS NOT NULL AND lock_until <= $2 THEN 1 ELSE login_attempts + 1 END) >= $3 THEN $4::timestamptz
				ELSE NULL
			END,
			updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL AND (lock_until IS NULL OR lock_until <= $2)
		RETURNING login_attempts, lock_until
	`

	var state security.LockState
	err := ur.db.QueryRow(ctx, query, id, now, policy.Threshold, now.Add(policy.Duration)).
		Scan(&state.Attempts, &state.LockUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return security.LockState{}, false, nil
	}
	if err != nil {
		ur.log.Error("Failed to record login failure",
			zap.Error(err),
			zap.String("user_id", id.String()),
		)
		return security.LockState{}, false, fmt.Errorf("record login failure %s: %w", id.String(), err)
	}

	return state, true, nil
}

func (ur *userRepository) RecordLoginSuccess(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	query := `
		UPDATE users
		SET login_attempts = 0, lock_until = NULL, last_login = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL AND (lock_until IS NULL OR lock_until <= $2)
	`

	result, err := ur.db.Exec(ctx, query, id, now)
	if err != nil {
		ur.log.Error("Failed to record login success",
			zap.Error(err),
			zap.String("user_id", id.String()),
		)
		return false, fmt.Errorf("record login success %s: %w", id.String(), err)
	}

	return result.RowsAffected() > 0, nil
}

func (ur *userRepository) SetPasswordResetToken(ctx context.Context, id uuid.UUID, digest string, expiresAt, now time.Time) error {
	query := `
		UPDATE users
		SET password_reset_digest = $2, password_reset_expires_at = $3, updated_at = $4
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := ur.db.Exec(ctx, query, id, digest, expiresAt, now)
	if err != nil {
		ur.log.Error("Failed to store password reset token",
			zap.Error(err),
			zap.String("user_id", id.String()),
		)
		return fmt.Errorf("set password reset token %s: %w", id.String(), err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found or already deleted", id.String())
	}

	return nil
}

func (ur *userRepository) SetEmailVerificationToken(ctx context.Context, id uuid.UUID, digest string, expiresAt, now time.Time) error {
	query := `
		UPDATE users
		SET email_verification_digest = $2, email_verification_expires_at = $3, updated_at = $4
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := ur.db.Exec(ctx, query, id, digest, expiresAt, now)
	if err != nil {
		ur.log.Error("Failed to store email verification token",
			zap.Error(err),
			zap.String("user_id", id.String()),
		)
		return fmt.Errorf("set email verification token %s: %w", id.String(), err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found or already deleted", id.String())
	}

	return nil
}

func (ur *userRepository) ConsumePasswordReset(ctx context.Context, id uuid.UUID, digest, passwordHash string, now time.Time) (bool, error) {
	query := `
		UPDATE users
		SET password = $3, password_changed_at = $4,
		    password_reset_digest = NULL, password_reset_expires_at = NULL,
		    login_attempts = 0, lock_until = NULL, updated_at = $4
		WHERE id = $1 AND password_reset_digest = $2 AND password_reset_expires_at > $4
		  AND deleted_at IS NULL
	`

	result, err := ur.db.Exec(ctx, query, id, digest, passwordHash, now)
	if err != nil {
		ur.log.Error("Failed to consume password reset token",
			zap.Error(err),
			zap.String("user_id", id.String()),
		)
		return false, fmt.Errorf("consume password reset %s: %w", id.String(), err)
	}

	return result.RowsAffected() > 0, nil
}

func (ur *userRepository) ConsumeEmailVerification(ctx context.Context, digest string, now time.Time) (bool, error) {
	query := `
		UPDATE users
		SET is_email_verified = TRUE,
		    email_verification_digest = NULL, email_verification_expires_at = NULL,
		    updated_at = $2
		WHERE email_verification_digest = $1 AND email_verification_expires_at > $2
		  AND deleted_at IS NULL
	`

	result, err := ur.db.Exec(ctx, query, digest, now)
	if err != nil {
		ur.log.Error("Failed to consume email verification token", zap.Error(err))
		return false, fmt.Errorf("consume email verification: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

func (ur *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, now time.Time) error {
	query := `
		UPDATE users
		SET password = $2, password_changed_at = $3, updated_at = $3
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := ur.db.Exec(ctx, query, id, passwordHash, now)
	if err != nil {
		ur.log.Error("Failed to update password",
			zap.Error(err),
			zap.String("user_id", id.String()),
		)
		return fmt.Errorf("update password %s: %w", id.String(), err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found or already deleted", id.String())
	}

	return nil
}

func (ur *userRepository) UpdateProfile(ctx context.Context, user *entity.User) error {
	query := `
		UPDATE users
		SET name = $2, avatar = $3, phone = $4, date_of_birth = $5,
		    address = $6, preferences = $7, updated_at = $8
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := ur.db.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Avatar,
		user.Phone,
		user.DateOfBirth,
		user.Address,
		user.Preferences,
		user.UpdatedAt,
	)
	if err != nil {
		ur.log.Error("Failed to update profile",
			zap.Error(err),
			zap.String("user_id", user.ID.String()),
		)
		return fmt.Errorf("update profile %s: %w", user.ID.String(), err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found or already deleted", user.ID.String())
	}

	return nil
}

func (ur *userRepository) ClearExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE users SET
			password_reset_digest = CASE WHEN password_reset_expires_at <= $1 THEN NULL ELSE password_reset_digest END,
			password_reset_expires_at = CASE WHEN password_reset_expires_at <= $1 THEN NULL ELSE password_reset_expires_at END,
			email_verification_digest = CASE WHEN email_verification_expires_at <= $1 THEN NULL ELSE email_verification_digest END,
			email_verification_expires_at = CASE WHEN email_verification_expires_at <= $1 THEN NULL ELSE email_verification_expires_at END
		WHERE password_reset_expires_at <= $1 OR email_verification_expires_at <= $1
	`

	result, err := ur.db.Exec(ctx, query, now)
	if err != nil {
		ur.log.Error("Failed to clear expired tokens", zap.Error(err))
		return 0, fmt.Errorf("clear expired tokens: %w", err)
	}

	return result.RowsAffected(), nil
}
