package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries all deployment settings, read from the environment with
// an optional .env file for development.
type Config struct {
	ListenAddr  string
	DatabaseDSN string
	Env         string

	CookieDomain  string
	JWTKeyPath    string
	JWTPubKeyPath string

	PasswordCost       int
	LoginAttemptLimit  int
	LoginAttemptWindow time.Duration

	// RedirectStrategy is "rendered" (POST+CSP compatible auto-navigation
	// page) or "direct" (plain HTTP redirect).
	RedirectStrategy string
}

// Production reports whether the deployment should use hardened cookies.
func (c Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load reads configuration from the environment. A missing .env file is
// not an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:         envOr("GEWISWEB_ADDR", ":8080"),
		DatabaseDSN:        os.Getenv("GEWISWEB_PG_DSN"),
		Env:                envOr("GEWISWEB_ENV", "development"),
		CookieDomain:       os.Getenv("GEWISWEB_COOKIE_DOMAIN"),
		JWTKeyPath:         envOr("GEWISWEB_JWT_KEY_PATH", "data/keys/jwt-key"),
		JWTPubKeyPath:      envOr("GEWISWEB_JWT_PUB_KEY_PATH", "data/keys/jwt-key.pub"),
		RedirectStrategy:   envOr("GEWISWEB_REDIRECT_STRATEGY", "rendered"),
		LoginAttemptWindow: 10 * time.Minute,
	}

	var err error
	if cfg.PasswordCost, err = envInt("GEWISWEB_BCRYPT_COST", 0); err != nil {
		return Config{}, err
	}
	if cfg.LoginAttemptLimit, err = envInt("GEWISWEB_LOGIN_ATTEMPT_LIMIT", 5); err != nil {
		return Config{}, err
	}
	if raw := os.Getenv("GEWISWEB_LOGIN_ATTEMPT_WINDOW"); raw != "" {
		window, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse GEWISWEB_LOGIN_ATTEMPT_WINDOW: %w", err)
		}
		cfg.LoginAttemptWindow = window
	}

	switch cfg.RedirectStrategy {
	case "rendered", "direct":
	default:
		return Config{}, fmt.Errorf("unknown redirect strategy %q", cfg.RedirectStrategy)
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}
