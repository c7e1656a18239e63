package utils

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestUserContext(t *testing.T) {
	id := uuid.New()

	got, ok := GetUserIDFromContext(SetUserContext(context.Background(), id))
	assert.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = GetUserIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = GetUserIDFromContext(context.WithValue(context.Background(), UserIDKey, "not-a-uuid"))
	assert.False(t, ok)
}

func TestCalculateTotalPages(t *testing.T) {
	assert.Equal(t, 0, CalculateTotalPages(0, 12))
	assert.Equal(t, 1, CalculateTotalPages(12, 12))
	assert.Equal(t, 2, CalculateTotalPages(13, 12))
	assert.Equal(t, 0, CalculateTotalPages(5, 0))
}
