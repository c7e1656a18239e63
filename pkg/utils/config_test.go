package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", config.App.Port)
	assert.Equal(t, "postgres", config.App.StoreDriver)
	assert.Equal(t, 12, config.Auth.BcryptCost)
	assert.Equal(t, 5, config.Auth.LockoutThreshold)
	assert.Equal(t, 2*time.Hour, config.Auth.LockoutDuration)
	assert.Equal(t, 10*time.Minute, config.Auth.ResetTokenTTL)
	assert.Equal(t, 24*time.Hour, config.Auth.VerifyTokenTTL)
	assert.Equal(t, 7*24*time.Hour, config.JWT.TTL())
	assert.Equal(t, []string{"http://localhost:3000"}, config.CORS.AllowedOrigins)
	assert.False(t, config.S3.Enabled())
	assert.False(t, config.App.TrustProxy)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("AUTH_LOCKOUT_DURATION", "30m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("TRUST_PROXY", "true")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", config.App.Port)
	assert.Equal(t, 30*time.Minute, config.Auth.LockoutDuration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, config.CORS.AllowedOrigins)
	assert.Equal(t, "memory", config.App.StoreDriver)
	assert.True(t, config.App.TrustProxy)
}

func TestConfig_Validate(t *testing.T) {
	t.Chdir(t.TempDir())
	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Error(t, config.Validate(), "missing secret")

	config.JWT.Secret = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, config.Validate())

	config.App.StoreDriver = "mongo"
	assert.Error(t, config.Validate())
}

func TestDatabaseConfig_URL(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", Name: "shop", User: "app", Password: "p@ss", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss@db:5432/shop?sslmode=disable", c.URL())
}
