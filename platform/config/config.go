// Package config loads environment-based configuration for all binaries.
// Consumers depend on the narrow interfaces below instead of the full Config.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DatabaseConfig exposes database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig exposes JWT verification settings.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// AuthServiceConfig exposes token issuance settings.
type AuthServiceConfig interface {
	JWTConfig
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
}

// HTTPConfig exposes HTTP server settings.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig exposes background scheduler settings.
type SchedulerConfig interface {
	GetRedisURL() string
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetStalledAfter() time.Duration
	GetStalledScanInterval() time.Duration
}

// BroadcastConfig exposes cross-instance notification transport settings.
type BroadcastConfig interface {
	GetRedisURL() string
	GetBroadcastChannel() string
}

// Config holds all application configuration.
type Config struct {
	Env                 string
	HTTPAddr            string
	DatabaseURL         string
	JWTAccessSecret     string
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
	CORSAllowAll        bool
	CORSOrigins         []string
	CORSAllowCreds      bool
	RedisURL            string
	AsynqQueueName      string
	AsynqConcurrency    int
	BroadcastChannel    string
	StalledAfter        time.Duration
	StalledScanInterval time.Duration
}

// Load reads configuration from the environment, with .env support for
// local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                 getEnv("APP_ENV", "development"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		JWTAccessSecret:     getEnv("JWT_ACCESS_SECRET", ""),
		AccessTokenTTL:      mustDuration(getEnv("JWT_ACCESS_TTL", "15m")),
		RefreshTokenTTL:     mustDuration(getEnv("JWT_REFRESH_TTL", "720h")),
		CORSAllowAll:        corsAllowAll,
		CORSOrigins:         corsOrigins,
		CORSAllowCreds:      strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:            getEnv("REDIS_URL", ""),
		AsynqQueueName:      getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:    mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		BroadcastChannel:    getEnv("BROADCAST_CHANNEL", "orders.transitions"),
		StalledAfter:        mustDuration(getEnv("STALLED_AFTER", "48h")),
		StalledScanInterval: mustDuration(getEnv("STALLED_SCAN_INTERVAL", "1h")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

// Database accessors
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWT accessors
func (c *Config) GetJWTAccessSecret() string        { return c.JWTAccessSecret }
func (c *Config) GetAccessTokenTTL() time.Duration  { return c.AccessTokenTTL }
func (c *Config) GetRefreshTokenTTL() time.Duration { return c.RefreshTokenTTL }

// HTTP accessors
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// Scheduler accessors
func (c *Config) GetRedisURL() string                   { return c.RedisURL }
func (c *Config) GetAsynqQueueName() string             { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int              { return c.AsynqConcurrency }
func (c *Config) GetStalledAfter() time.Duration        { return c.StalledAfter }
func (c *Config) GetStalledScanInterval() time.Duration { return c.StalledScanInterval }

// Broadcast accessors
func (c *Config) GetBroadcastChannel() string { return c.BroadcastChannel }

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func containsWildcard(values []string) bool {
	for _, v := range values {
		if v == "*" {
			return true
		}
	}
	return false
}
