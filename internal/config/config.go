// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Rate limiter backends.
const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv      string `env:"APP_ENV" envDefault:"development"`
	AppPort     int    `env:"APP_PORT" envDefault:"8080"`
	AppBaseURL  string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting (token bucket per client IP)
	RateLimitEnabled    bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitBackend    string        `env:"RATE_LIMIT_BACKEND" envDefault:"memory"`
	RateLimitMaxTokens  int           `env:"RATE_LIMIT_MAX_TOKENS" envDefault:"100"`
	RateLimitRefillRate float64       `env:"RATE_LIMIT_REFILL_RATE" envDefault:"10"`
	RateLimitIdleTTL    time.Duration `env:"RATE_LIMIT_IDLE_TTL" envDefault:"10m"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// Sessions
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	SessionCacheTTL  time.Duration `env:"SESSION_CACHE_TTL" envDefault:"5m"`
	PasswordResetTTL time.Duration `env:"PASSWORD_RESET_TTL" envDefault:"1h"`

	// OAuth providers
	GoogleClientID       string        `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string        `env:"GOOGLE_CLIENT_SECRET"`
	LinkedInClientID     string        `env:"LINKEDIN_CLIENT_ID"`
	LinkedInClientSecret string        `env:"LINKEDIN_CLIENT_SECRET"`
	OAuthStateTTL        time.Duration `env:"OAUTH_STATE_TTL" envDefault:"10m"`

	// Background work
	ActivityWorkerEnabled bool          `env:"ACTIVITY_WORKER_ENABLED" envDefault:"true"`
	StrengthSweepInterval time.Duration `env:"STRENGTH_SWEEP_INTERVAL" envDefault:"1h"`

	// Metrics
	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// ProviderEnabled reports whether OAuth client credentials are set for a provider.
// Google Calendar and Gmail share the Google client.
func (c *Config) ProviderEnabled(provider string) bool {
	switch provider {
	case "google_calendar", "gmail":
		return c.GoogleClientID != "" && c.GoogleClientSecret != ""
	case "linkedin":
		return c.LinkedInClientID != "" && c.LinkedInClientSecret != ""
	default:
		return false
	}
}

// Validate checks cross-field constraints that env tags cannot express.
func (c *Config) Validate() error {
	switch c.RateLimitBackend {
	case RateLimitBackendMemory, RateLimitBackendRedis:
	default:
		return fmt.Errorf("invalid RATE_LIMIT_BACKEND %q", c.RateLimitBackend)
	}
	if c.RateLimitMaxTokens <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX_TOKENS must be positive")
	}
	if c.RateLimitRefillRate <= 0 {
		return fmt.Errorf("RATE_LIMIT_REFILL_RATE must be positive")
	}
	return nil
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
