package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("API_TOKEN", "")
	t.Setenv("ENV", "")
	t.Setenv("API_TIMEOUT_SECONDS", "")

	cfg := Load()
	assert.Equal(t, "http://localhost:8080/api/v1", cfg.APIBaseURL)
	assert.Empty(t, cfg.APIToken)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.com/api/v1")
	t.Setenv("API_TOKEN", "token-123")
	t.Setenv("ENV", "production")
	t.Setenv("API_TIMEOUT_SECONDS", "30")

	cfg := Load()
	assert.Equal(t, "https://api.example.com/api/v1", cfg.APIBaseURL)
	assert.Equal(t, "token-123", cfg.APIToken)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}

func TestLoad_InvalidTimeoutFallsBack(t *testing.T) {
	t.Setenv("API_TIMEOUT_SECONDS", "not-a-number")
	assert.Equal(t, 10*time.Second, Load().RequestTimeout)

	t.Setenv("API_TIMEOUT_SECONDS", "-5")
	assert.Equal(t, 10*time.Second, Load().RequestTimeout)
}
