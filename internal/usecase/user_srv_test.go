package usecase

import (
	"context"
	"testing"
	"time"

	"marketplace-api/internal/data/entity"
	"marketplace-api/internal/dto/request"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }

func TestUserService_Profile(t *testing.T) {
	f := newAuthFixture(t)
	id := f.register(t, "u@x.com", "secret1")
	svc := NewUserService(f.users, zap.NewNop(), f.clock.Now)

	profile, err := svc.GetProfile(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "u@x.com", profile.Email)
	assert.Equal(t, "en", profile.Preferences.Language)

	f.clock.Advance(time.Hour)
	updated, err := svc.UpdateProfile(context.Background(), id, &request.UpdateProfileRequest{
		Name:        strPtr("  Ana Maria "),
		Phone:       strPtr("+49 (30) 123-4567"),
		DateOfBirth: strPtr("1990-04-12"),
		Address:     &entity.Address{City: "Berlin", Country: "DE"},
		Preferences: &request.PreferencesRequest{Currency: "usd"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", updated.Name)
	require.NotNil(t, updated.DateOfBirth)
	assert.Equal(t, "1990-04-12", *updated.DateOfBirth)
	assert.Equal(t, "USD", updated.Preferences.Currency)
	assert.Equal(t, "en", updated.Preferences.Language, "untouched preferences survive")
	assert.True(t, updated.Preferences.Notifications.Email)
	assert.Equal(t, start.Add(time.Hour), updated.UpdatedAt)

	// Credentials are never touched by a profile update.
	u := f.user(t, id)
	assert.Equal(t, "Berlin", u.Address.City)
	require.NoError(t, f.login("u@x.com", "secret1"))
}

func TestUserService_UpdateProfileValidation(t *testing.T) {
	f := newAuthFixture(t)
	id := f.register(t, "u@x.com", "secret1")
	svc := NewUserService(f.users, zap.NewNop(), f.clock.Now)

	tests := []struct {
		name  string
		req   request.UpdateProfileRequest
		field string
	}{
		{"bad phone", request.UpdateProfileRequest{Phone: strPtr("12ab")}, "Phone"},
		{"bad date", request.UpdateProfileRequest{DateOfBirth: strPtr("12/04/1990")}, "DateOfBirth"},
		{"future birthday", request.UpdateProfileRequest{DateOfBirth: strPtr("2999-01-01")}, "DateOfBirth"},
		{"blank name", request.UpdateProfileRequest{Name: strPtr("   ")}, "Name"},
		{"long name", request.UpdateProfileRequest{Name: strPtr(string(make([]byte, 51)))}, "Name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateProfile(context.Background(), id, &tt.req)
			require.ErrorIs(t, err, ErrValidation)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestUserService_UnknownUser(t *testing.T) {
	f := newAuthFixture(t)
	svc := NewUserService(f.users, zap.NewNop(), nil)

	_, err := svc.GetProfile(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
