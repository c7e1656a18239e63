package response

import (
	"time"

	"marketplace-api/internal/data/entity"
)

type AuthResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// TokenResponse is returned when only the session changes, e.g. after a password change.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func AuthToResponse(user *entity.User, token string, expiresAt time.Time) *AuthResponse {
	return &AuthResponse{
		User:      UserToResponse(user),
		Token:     token,
		ExpiresAt: expiresAt,
	}
}
