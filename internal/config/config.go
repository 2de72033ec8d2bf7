// Package config reads the server's settings from the environment.
//
// Three values are required: DATABASE_URL, SESSION_SECRET and GOODREADS_KEY.
// Load reports every missing or malformed value at once so a bad deployment
// fails on the first start rather than one variable at a time.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        int
	DatabaseURL string

	SessionSecret string
	SessionTTL    time.Duration
	SecureCookies bool
	RedisURL      string

	ReviewsAPIKey  string
	ReviewsAPIURL  string
	ReviewsTimeout time.Duration

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	LogLevel        slog.Level
	LoginRatePerMin int
}

// GitHubEnabled reports whether GitHub sign-in is configured.
func (c Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// Load builds a Config from getenv, normally os.Getenv.
func Load(getenv func(string) string) (Config, error) {
	var errs []error

	required := func(key string) string {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			errs = append(errs, fmt.Errorf("%s is not set", key))
		}
		return v
	}
	optional := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}
	duration := func(key string, def time.Duration) time.Duration {
		raw := optional(key, "")
		if raw == "" {
			return def
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("%s: %q is not a positive duration", key, raw))
			return def
		}
		return d
	}
	positiveInt := func(key string, def int) int {
		raw := optional(key, "")
		if raw == "" {
			return def
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("%s: %q is not a positive integer", key, raw))
			return def
		}
		return n
	}

	cfg := Config{
		DatabaseURL:   required("DATABASE_URL"),
		SessionSecret: required("SESSION_SECRET"),
		ReviewsAPIKey: required("GOODREADS_KEY"),

		Port:            positiveInt("PORT", 8080),
		SessionTTL:      duration("SESSION_TTL", 24*time.Hour),
		RedisURL:        optional("REDIS_URL", ""),
		ReviewsAPIURL:   optional("REVIEWS_API_URL", ""),
		ReviewsTimeout:  duration("REVIEWS_TIMEOUT", 5*time.Second),
		LoginRatePerMin: positiveInt("LOGIN_RATE_PER_MIN", 10),

		GitHubClientID:     optional("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: optional("GITHUB_CLIENT_SECRET", ""),
	}

	if cfg.SessionSecret != "" && len(cfg.SessionSecret) < 16 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 16 characters"))
	}

	if raw := optional("SECURE_COOKIES", "false"); raw != "" {
		secure, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("SECURE_COOKIES: %q is not a boolean", raw))
		}
		cfg.SecureCookies = secure
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(optional("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	cfg.GitHubCallbackURL = optional("GITHUB_CALLBACK_URL",
		fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port))

	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
