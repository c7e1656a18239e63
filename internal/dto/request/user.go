package request

import "marketplace-api/internal/data/entity"

// UpdateProfileRequest only touches the fields that are present.
type UpdateProfileRequest struct {
	Name        *string             `json:"name,omitempty" validate:"omitempty,min=1,max=50"`
	Phone       *string             `json:"phone,omitempty" validate:"omitempty,phone"`
	Avatar      *string             `json:"avatar,omitempty" validate:"omitempty,url"`
	DateOfBirth *string             `json:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Address     *entity.Address     `json:"address,omitempty"`
	Preferences *PreferencesRequest `json:"preferences,omitempty"`
}

type PreferencesRequest struct {
	Language      string                          `json:"language,omitempty" validate:"omitempty,min=2,max=5"`
	Currency      string                          `json:"currency,omitempty" validate:"omitempty,len=3"`
	Notifications *entity.NotificationPreferences `json:"notifications,omitempty"`
}
