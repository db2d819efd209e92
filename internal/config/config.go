// Package config holds the explicit runtime settings of the gateway. The
// struct is built once in main from the environment and handed into
// constructors; nothing in the core reads ambient state.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const envPrefix = "AUTHGATE_"

// Settings carries every tunable the process needs.
type Settings struct {
	ListenAddr  string
	DatabaseURL string
	RedisURL    string

	TokenSecret     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	AdminEmail    string
	AdminPassword string

	LicenseCheckInterval time.Duration
}

// 8h access tokens, 7d refresh tokens, half-hour license re-checks.
const (
	DefaultListenAddr           = ":8080"
	DefaultAccessTokenTTL       = 8 * time.Hour
	DefaultRefreshTokenTTL      = 7 * 24 * time.Hour
	DefaultLicenseCheckInterval = 30 * time.Minute
)

// Load builds Settings from AUTHGATE_* environment variables. The token
// secret has no default: refusing to start beats signing with a known key.
func Load() (Settings, error) {
	s := Settings{
		ListenAddr:           envOr("LISTEN_ADDR", DefaultListenAddr),
		DatabaseURL:          os.Getenv(envPrefix + "PG_DSN"),
		RedisURL:             envOr("REDIS_URL", "redis://localhost:6379/0"),
		TokenSecret:          os.Getenv(envPrefix + "TOKEN_SECRET"),
		AccessTokenTTL:       DefaultAccessTokenTTL,
		RefreshTokenTTL:      DefaultRefreshTokenTTL,
		AdminEmail:           envOr("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword:        os.Getenv(envPrefix + "ADMIN_PASSWORD"),
		LicenseCheckInterval: DefaultLicenseCheckInterval,
	}

	if s.TokenSecret == "" {
		return Settings{}, errors.New("config: AUTHGATE_TOKEN_SECRET is required")
	}

	var err error
	if s.AccessTokenTTL, err = durationEnv("ACCESS_TOKEN_TTL", s.AccessTokenTTL); err != nil {
		return Settings{}, err
	}
	if s.RefreshTokenTTL, err = durationEnv("REFRESH_TOKEN_TTL", s.RefreshTokenTTL); err != nil {
		return Settings{}, err
	}
	if s.LicenseCheckInterval, err = durationEnv("LICENSE_CHECK_INTERVAL", s.LicenseCheckInterval); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return def
}

// durationEnv accepts Go duration syntax ("8h") or bare minutes ("480").
func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(envPrefix + key)
	if raw == "" {
		return def, nil
	}
	if minutes, err := strconv.Atoi(raw); err == nil {
		if minutes <= 0 {
			return 0, fmt.Errorf("config: %s%s must be positive", envPrefix, key)
		}
		return time.Duration(minutes) * time.Minute, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s%s: %w", envPrefix, key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s%s must be positive", envPrefix, key)
	}
	return d, nil
}
