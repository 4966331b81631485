package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the client engine settings.
type Config struct {
	APIBaseURL     string
	APIToken       string
	Env            string
	RequestTimeout time.Duration
}

// Load reads configuration from a .env file (if present) and the
// environment, falling back to defaults.
func Load() *Config {
	// .env is optional; deployments may set the environment directly
	_ = godotenv.Load()

	return &Config{
		APIBaseURL:     getEnv("API_BASE_URL", "http://localhost:8080/api/v1"),
		APIToken:       getEnv("API_TOKEN", ""),
		Env:            getEnv("ENV", "development"),
		RequestTimeout: getDurationEnv("API_TIMEOUT_SECONDS", 10*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
