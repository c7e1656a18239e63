package response

import (
	"time"

	"marketplace-api/internal/data/entity"
)

// UserResponse never carries hashes, token digests or lockout counters.
type UserResponse struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Email           string             `json:"email"`
	Role            entity.UserRole    `json:"role"`
	IsActive        bool               `json:"is_active"`
	IsEmailVerified bool               `json:"is_email_verified"`
	Avatar          *string            `json:"avatar,omitempty"`
	Phone           *string            `json:"phone,omitempty"`
	DateOfBirth     *string            `json:"date_of_birth,omitempty"`
	Address         entity.Address     `json:"address"`
	Preferences     entity.Preferences `json:"preferences"`
	LastLogin       *time.Time         `json:"last_login,omitempty"`
	AgreedToTerms   bool               `json:"agreed_to_terms"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func UserToResponse(user *entity.User) UserResponse {
	resp := UserResponse{
		ID:              user.ID.String(),
		Name:            user.Name,
		Email:           user.Email,
		Role:            user.Role,
		IsActive:        user.IsActive,
		IsEmailVerified: user.IsEmailVerified,
		Avatar:          user.Avatar,
		Phone:           user.Phone,
		Address:         user.Address,
		Preferences:     user.Preferences,
		LastLogin:       user.LastLogin,
		AgreedToTerms:   user.AgreedToTerms,
		CreatedAt:       user.CreatedAt,
		UpdatedAt:       user.UpdatedAt,
	}
	if user.DateOfBirth != nil {
		dob := user.DateOfBirth.Format(time.DateOnly)
		resp.DateOfBirth = &dob
	}
	return resp
}
