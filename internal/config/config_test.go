package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	base := Config{
		Port:               "8380",
		JWTSecret:          "0123456789abcdef0123456789abcdef",
		MediaBucket:        "lumen-media",
		MediaUploadRetries: 3,
		Env:                "development",
	}

	t.Run("valid development config", func(t *testing.T) {
		cfg := base
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing port", func(t *testing.T) {
		cfg := base
		cfg.Port = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing jwt secret", func(t *testing.T) {
		cfg := base
		cfg.JWTSecret = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing media bucket", func(t *testing.T) {
		cfg := base
		cfg.MediaBucket = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero upload retries", func(t *testing.T) {
		cfg := base
		cfg.MediaUploadRetries = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("default secret rejected in production", func(t *testing.T) {
		cfg := base
		cfg.Env = "production"
		cfg.JWTSecret = "your-secret-key-change-in-production"
		cfg.DBPassword = "s0me-strong-password"
		assert.Error(t, cfg.Validate())
	})

	t.Run("short secret rejected in production", func(t *testing.T) {
		cfg := base
		cfg.Env = "production"
		cfg.JWTSecret = "short"
		cfg.DBPassword = "s0me-strong-password"
		assert.Error(t, cfg.Validate())
	})

	t.Run("weak db password rejected in production", func(t *testing.T) {
		cfg := base
		cfg.Env = "production"
		cfg.DBPassword = "password"
		assert.Error(t, cfg.Validate())
	})

	t.Run("strong production config accepted", func(t *testing.T) {
		cfg := base
		cfg.Env = "production"
		cfg.DBPassword = "s0me-strong-password"
		assert.NoError(t, cfg.Validate())
	})
}

func TestIsProduction(t *testing.T) {
	assert.True(t, (&Config{Env: "production"}).IsProduction())
	assert.True(t, (&Config{Env: "prod"}).IsProduction())
	assert.False(t, (&Config{Env: "development"}).IsProduction())
	assert.False(t, (&Config{Env: "test"}).IsProduction())
}
