package entity

import (
	"time"

	"marketplace-api/pkg/security"
)

type UserRole string

const (
	RoleUser      UserRole = "user"
	RoleAdmin     UserRole = "admin"
	RoleModerator UserRole = "moderator"
)

type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	ZipCode string `json:"zip_code,omitempty"`
	Country string `json:"country,omitempty"`
}

type NotificationPreferences struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
}

type Preferences struct {
	Language      string                  `json:"language"`
	Currency      string                  `json:"currency"`
	Notifications NotificationPreferences `json:"notifications"`
}

// DefaultPreferences is applied to every new account.
func DefaultPreferences() Preferences {
	return Preferences{
		Language:      "en",
		Currency:      "EUR",
		Notifications: NotificationPreferences{Email: true, Push: true},
	}
}

type User struct {
	Base
	Name            string      `db:"name"`
	Email           string      `db:"email"`
	PasswordHash    string      `db:"password"`
	Role            UserRole    `db:"role"`
	IsActive        bool        `db:"is_active"`
	IsEmailVerified bool        `db:"is_email_verified"`
	Avatar          *string     `db:"avatar"`
	Phone           *string     `db:"phone"`
	DateOfBirth     *time.Time  `db:"date_of_birth"`
	Address         Address     `db:"address"`
	Preferences     Preferences `db:"preferences"`

	// Digest and expiry are always set or cleared together.
	EmailVerificationDigest    *string    `db:"email_verification_digest"`
	EmailVerificationExpiresAt *time.Time `db:"email_verification_expires_at"`
	PasswordResetDigest        *string    `db:"password_reset_digest"`
	PasswordResetExpiresAt     *time.Time `db:"password_reset_expires_at"`

	PasswordChangedAt time.Time  `db:"password_changed_at"`
	LoginAttempts     int        `db:"login_attempts"`
	LockUntil         *time.Time `db:"lock_until"`
	LastLogin         *time.Time `db:"last_login"`

	// Reserved for social login; nothing populates them yet.
	GoogleID   *string `db:"google_id"`
	FacebookID *string `db:"facebook_id"`

	AgreedToTerms   bool       `db:"agreed_to_terms"`
	AgreedToTermsAt *time.Time `db:"agreed_to_terms_at"`
}

func (u *User) LockState() security.LockState {
	return security.LockState{Attempts: u.LoginAttempts, LockUntil: u.LockUntil}
}

func (u *User) IsLocked(now time.Time) bool {
	return u.LockState().IsLocked(now)
}
