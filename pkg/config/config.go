// Package config loads application configuration from CHAMBERS_*
// environment variables with sensible defaults for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Audit    AuditConfig
	LogLevel string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

// RedisConfig holds Redis configuration for the session store
type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

// AuthConfig holds credential resolution and session settings
type AuthConfig struct {
	// SessionTTL is the sliding expiry for server-managed sessions.
	SessionTTL time.Duration

	// ResolveTimeout bounds identity, tenant and token lookups during
	// authorization; a timed-out dependency fails the request rather
	// than hanging.
	ResolveTimeout time.Duration

	// TokenCacheSize and TokenCacheTTL size the in-process bearer token
	// cache.
	TokenCacheSize int
	TokenCacheTTL  time.Duration

	// SignInPath and UnauthorizedPath are where page-route denials
	// redirect to.
	SignInPath       string
	UnauthorizedPath string
}

// AuditConfig holds audit trail settings
type AuditConfig struct {
	Enabled       bool
	RetentionDays int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("CHAMBERS_HOST", "0.0.0.0"),
			Port:            getEnv("CHAMBERS_PORT", "8080"),
			ReadTimeout:     getEnvDuration("CHAMBERS_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("CHAMBERS_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("CHAMBERS_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("CHAMBERS_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("CHAMBERS_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			URL:          getEnv("CHAMBERS_POSTGRES_URL", "postgres://localhost:5432/chambers?sslmode=disable"),
			MaxOpenConns: getEnvInt("CHAMBERS_POSTGRES_MAX_CONNS", 25),
			MaxIdleConns: getEnvInt("CHAMBERS_POSTGRES_IDLE_CONNS", 5),
			ConnLifetime: getEnvDuration("CHAMBERS_POSTGRES_CONN_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:      getEnv("CHAMBERS_REDIS_URL", "localhost:6379"),
			Password: getEnv("CHAMBERS_REDIS_PASSWORD", ""),
			DB:       getEnvInt("CHAMBERS_REDIS_DB", 0),
			PoolSize: getEnvInt("CHAMBERS_REDIS_POOL_SIZE", 10),
		},
		Auth: AuthConfig{
			SessionTTL:       getEnvDuration("CHAMBERS_SESSION_TTL", 24*time.Hour),
			ResolveTimeout:   getEnvDuration("CHAMBERS_AUTH_RESOLVE_TIMEOUT", 3*time.Second),
			TokenCacheSize:   getEnvInt("CHAMBERS_TOKEN_CACHE_SIZE", 4096),
			TokenCacheTTL:    getEnvDuration("CHAMBERS_TOKEN_CACHE_TTL", 30*time.Second),
			SignInPath:       getEnv("CHAMBERS_SIGNIN_PATH", "/signin"),
			UnauthorizedPath: getEnv("CHAMBERS_UNAUTHORIZED_PATH", "/unauthorized"),
		},
		Audit: AuditConfig{
			Enabled:       getEnvBool("CHAMBERS_AUDIT_ENABLED", true),
			RetentionDays: getEnvInt("CHAMBERS_AUDIT_RETENTION_DAYS", 90),
		},
		LogLevel: getEnv("CHAMBERS_LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("redis URL is required")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if c.Auth.ResolveTimeout <= 0 {
		return fmt.Errorf("auth resolve timeout must be positive")
	}
	if c.Audit.Enabled && c.Audit.RetentionDays <= 0 {
		return fmt.Errorf("audit retention must be positive when auditing is enabled")
	}
	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
