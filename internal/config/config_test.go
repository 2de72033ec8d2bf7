package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func required() map[string]string {
	return map[string]string{
		"DATABASE_URL":   "sqlite://data/books.db",
		"SESSION_SECRET": "0123456789abcdef0123",
		"GOODREADS_KEY":  "key",
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(env(required()))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "sqlite://data/books.db", cfg.DatabaseURL)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5*time.Second, cfg.ReviewsTimeout)
	assert.Equal(t, 10, cfg.LoginRatePerMin)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "http://localhost:8080/auth/github/callback", cfg.GitHubCallbackURL)
	assert.False(t, cfg.GitHubEnabled())
	assert.False(t, cfg.SecureCookies)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoad_Overrides(t *testing.T) {
	m := required()
	m["PORT"] = "9000"
	m["SESSION_TTL"] = "2h"
	m["REVIEWS_TIMEOUT"] = "750ms"
	m["REVIEWS_API_URL"] = "http://reviews.local/counts"
	m["REDIS_URL"] = "redis://localhost:6379/0"
	m["LOG_LEVEL"] = "debug"
	m["LOGIN_RATE_PER_MIN"] = "3"
	m["SECURE_COOKIES"] = "true"
	m["GITHUB_CLIENT_ID"] = "id"
	m["GITHUB_CLIENT_SECRET"] = "secret"

	cfg, err := Load(env(m))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 750*time.Millisecond, cfg.ReviewsTimeout)
	assert.Equal(t, "http://reviews.local/counts", cfg.ReviewsAPIURL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 3, cfg.LoginRatePerMin)
	assert.True(t, cfg.SecureCookies)
	assert.True(t, cfg.GitHubEnabled())
	assert.Equal(t, "http://localhost:9000/auth/github/callback", cfg.GitHubCallbackURL)
}

func TestLoad_MissingRequiredAreAllReported(t *testing.T) {
	_, err := Load(env(map[string]string{"SESSION_SECRET": "   "}))
	require.Error(t, err)

	for _, key := range []string{"DATABASE_URL", "SESSION_SECRET", "GOODREADS_KEY"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"PORT":               "eighty",
		"SESSION_TTL":        "-1h",
		"REVIEWS_TIMEOUT":    "soon",
		"LOG_LEVEL":          "loud",
		"LOGIN_RATE_PER_MIN": "0",
		"SECURE_COOKIES":     "maybe",
		"SESSION_SECRET":     "short",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			m := required()
			m[key] = value

			_, err := Load(env(m))
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}
