// Package config provides environment-driven runtime configuration.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds shared runtime configuration for the server and the watch CLI.
type Config struct {
	Port        int
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// StreamTimeout is how long the SSE stream waits for a terminal event
	// before emitting a soft timeout.
	StreamTimeout time.Duration

	// PollInterval and PollMaxAttempts bound the upload-status reconciler.
	PollInterval    time.Duration
	PollMaxAttempts int

	// APIBaseURL is where the watch CLI finds the server.
	APIBaseURL string
}

// Load reads configuration from environment variables with defaults suited
// to local development.
func Load() Config {
	return Config{
		Port:            getEnvInt("PORT", 8080),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		StreamTimeout:   getEnvDuration("STREAM_TIMEOUT", 90*time.Second),
		PollInterval:    getEnvDuration("POLL_INTERVAL", time.Second),
		PollMaxAttempts: getEnvInt("POLL_MAX_ATTEMPTS", 120),
		APIBaseURL:      getEnv("API_BASE_URL", "http://localhost:8080"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
