// Package config provides centralized configuration loaded from environment
// variables. Shared by cmd/api and cmd/watchctl.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Notification transports.
const (
	TransportLog  = "log"
	TransportAMQP = "amqp"
)

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Auth
	JWTSecret string

	// Stations
	StationsFile string

	// Availability provider
	ProviderBaseURL           string
	ProviderAPIKey            string
	ProviderTimeout           time.Duration
	ProviderRequestsPerMinute int

	// Scheduler
	SchedulerIdleInterval   time.Duration
	SchedulerActiveInterval time.Duration
	SchedulerCadenceCheck   time.Duration
	SchedulerTimezone       string

	// Notifications
	NotifyTransport    string
	AMQPURL            string
	AMQPQueue          string
	FCMCredentialsFile string

	// Observability
	MetricsEnabled bool

	// Cache
	CacheEnabled bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", "")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}

	cfg := &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		JWTSecret: envOr("JWT_SECRET", ""),

		StationsFile: envOr("STATIONS_FILE", ""),

		ProviderBaseURL:           envOr("PROVIDER_BASE_URL", "http://localhost:9090"),
		ProviderAPIKey:            envOr("PROVIDER_API_KEY", ""),
		ProviderTimeout:           envDuration("PROVIDER_TIMEOUT", 15*time.Second),
		ProviderRequestsPerMinute: envInt("PROVIDER_REQUESTS_PER_MINUTE", 60),

		SchedulerIdleInterval:   envDuration("SCHEDULER_IDLE_INTERVAL", 24*time.Hour),
		SchedulerActiveInterval: envDuration("SCHEDULER_ACTIVE_INTERVAL", 10*time.Second),
		SchedulerCadenceCheck:   envDuration("SCHEDULER_CADENCE_CHECK", time.Minute),
		SchedulerTimezone:       envOr("SCHEDULER_TIMEZONE", "Asia/Seoul"),

		NotifyTransport:    strings.ToLower(envOr("NOTIFY_TRANSPORT", TransportLog)),
		AMQPURL:            envOr("AMQP_URL", envOr("RABBITMQ_URL", "")),
		AMQPQueue:          envOr("AMQP_QUEUE", "watch.notifications"),
		FCMCredentialsFile: envOr("FCM_CREDENTIALS_FILE", ""),

		MetricsEnabled: envBool("METRICS_ENABLED", true),

		CacheEnabled: envBool("CACHE_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	switch c.NotifyTransport {
	case TransportLog, TransportAMQP:
	default:
		return fmt.Errorf("NOTIFY_TRANSPORT must be %q or %q, got %q", TransportLog, TransportAMQP, c.NotifyTransport)
	}
	if c.SchedulerActiveInterval > c.SchedulerIdleInterval {
		return fmt.Errorf("SCHEDULER_ACTIVE_INTERVAL (%s) exceeds SCHEDULER_IDLE_INTERVAL (%s)",
			c.SchedulerActiveInterval, c.SchedulerIdleInterval)
	}
	if _, err := time.LoadLocation(c.SchedulerTimezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE: %w", err)
	}
	return nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Location returns the scheduler time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.SchedulerTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

// envDuration accepts Go duration strings ("90s", "24h") or plain seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
