// Package config loads application settings from environment variables with
// development-friendly defaults.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully resolved application configuration, constructed once
// at startup and passed down by value.
type Config struct {
	ListenAddr  string
	DatabaseURL string
	RedisURL    string

	JWTSecret        string
	JWTIssuer        string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	RefreshStrategy  string // "nuclear" or "family"
	CookieMode       bool
	CookieDomain     string
	CookieSecure     bool
	CookieSameSite   string
	CORSOrigins      []string
	CSPMode          string
	LogLevel         string
	SeedDemoData     bool
	PasswordMemoryKB uint32
	PasswordTime     uint32

	AuthRateLimitTimes      int
	AuthRateLimitSeconds    int
	RefreshRateLimitTimes   int
	RefreshRateLimitSeconds int
}

// Load reads the environment. JWT_SECRET is the only required setting.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("LISTEN_ADDR", ":8000")
	v.SetDefault("DATABASE_URL", "file:revline.db")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("JWT_EXPIRE_MINUTES", 60)
	v.SetDefault("REFRESH_TOKEN_EXPIRE_DAYS", 7)
	v.SetDefault("AUTH_REFRESH_STRATEGY", "nuclear")
	v.SetDefault("AUTH_COOKIE_MODE", true)
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("COOKIE_SAMESITE", "lax")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")
	v.SetDefault("CSP_MODE", "strict")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SEED_DEMO_DATA", true)
	v.SetDefault("PASSWORD_MEMORY_KB", 64*1024)
	v.SetDefault("PASSWORD_TIME", 2)
	v.SetDefault("AUTH_RATE_LIMIT_TIMES", 5)
	v.SetDefault("AUTH_RATE_LIMIT_SECONDS", 60)
	v.SetDefault("REFRESH_USER_RATE_LIMIT_TIMES", 10)
	v.SetDefault("REFRESH_RATE_LIMIT_SECONDS", 60)

	secret := v.GetString("JWT_SECRET")
	if strings.TrimSpace(secret) == "" {
		return Config{}, errors.New("config: JWT_SECRET is required")
	}

	cfg := Config{
		ListenAddr:  v.GetString("LISTEN_ADDR"),
		DatabaseURL: v.GetString("DATABASE_URL"),
		RedisURL:    v.GetString("REDIS_URL"),

		JWTSecret:        secret,
		JWTIssuer:        v.GetString("JWT_ISSUER"),
		AccessTokenTTL:   time.Duration(v.GetInt("JWT_EXPIRE_MINUTES")) * time.Minute,
		RefreshTokenTTL:  time.Duration(v.GetInt("REFRESH_TOKEN_EXPIRE_DAYS")) * 24 * time.Hour,
		RefreshStrategy:  v.GetString("AUTH_REFRESH_STRATEGY"),
		CookieMode:       v.GetBool("AUTH_COOKIE_MODE"),
		CookieDomain:     v.GetString("COOKIE_DOMAIN"),
		CookieSecure:     v.GetBool("COOKIE_SECURE"),
		CookieSameSite:   v.GetString("COOKIE_SAMESITE"),
		CORSOrigins:      splitOrigins(v.GetString("CORS_ORIGINS")),
		CSPMode:          v.GetString("CSP_MODE"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		SeedDemoData:     v.GetBool("SEED_DEMO_DATA"),
		PasswordMemoryKB: v.GetUint32("PASSWORD_MEMORY_KB"),
		PasswordTime:     v.GetUint32("PASSWORD_TIME"),

		AuthRateLimitTimes:      v.GetInt("AUTH_RATE_LIMIT_TIMES"),
		AuthRateLimitSeconds:    v.GetInt("AUTH_RATE_LIMIT_SECONDS"),
		RefreshRateLimitTimes:   v.GetInt("REFRESH_USER_RATE_LIMIT_TIMES"),
		RefreshRateLimitSeconds: v.GetInt("REFRESH_RATE_LIMIT_SECONDS"),
	}

	return cfg, nil
}

// splitOrigins parses the comma-separated origin list, falling back to
// localhost only when the result would be empty.
func splitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		return []string{"http://localhost:5173"}
	}
	return origins
}
