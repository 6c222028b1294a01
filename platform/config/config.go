// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
	GetDBMaxConns() int32
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetAPIPrefix() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
	GetRateLimitRPS() float64
	GetRateLimitBurst() int
}

// SchedulerConfig provides settings for the asynq reminder scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// LockConfig provides settings for per-lead distributed locks.
type LockConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetLeadLockTTL() time.Duration
}

// BrokerConfig provides settings for the AMQP event relay.
type BrokerConfig interface {
	GetAMQPURL() string
	GetAMQPExchange() string
	IsBrokerEnabled() bool
}

// LeadsConfig provides settings for lead and agent services.
type LeadsConfig interface {
	GetPhoneDefaultRegion() string
	GetTxMaxAttempts() int
}

// =============================================================================
// Main Config Struct (implements all interfaces above)
// =============================================================================

// Config holds every setting read from the environment.
type Config struct {
	Env              string
	HTTPAddr         string
	APIPrefix        string
	DatabaseURL      string
	DBMaxConns       int32
	CORSOrigins      []string
	CORSAllowAll     bool
	CORSAllowCreds   bool
	RateLimitRPS     float64
	RateLimitBurst   int
	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int
	LeadLockTTL      time.Duration
	AMQPURL          string
	AMQPExchange     string
	PhoneRegion      string
	TxMaxAttempts    int
}

// Compile-time checks
var (
	_ DatabaseConfig  = (*Config)(nil)
	_ HTTPConfig      = (*Config)(nil)
	_ SchedulerConfig = (*Config)(nil)
	_ LockConfig      = (*Config)(nil)
	_ BrokerConfig    = (*Config)(nil)
	_ LeadsConfig     = (*Config)(nil)
)

// DatabaseConfig
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }
func (c *Config) GetDBMaxConns() int32   { return c.DBMaxConns }

// HTTPConfig
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetAPIPrefix() string     { return c.APIPrefix }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }
func (c *Config) GetRateLimitRPS() float64 { return c.RateLimitRPS }
func (c *Config) GetRateLimitBurst() int   { return c.RateLimitBurst }

// SchedulerConfig / LockConfig
func (c *Config) GetRedisURL() string           { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool     { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string     { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int      { return c.AsynqConcurrency }
func (c *Config) GetLeadLockTTL() time.Duration { return c.LeadLockTTL }

// BrokerConfig
func (c *Config) GetAMQPURL() string      { return c.AMQPURL }
func (c *Config) GetAMQPExchange() string { return c.AMQPExchange }
func (c *Config) IsBrokerEnabled() bool   { return c.AMQPURL != "" }

// LeadsConfig
func (c *Config) GetPhoneDefaultRegion() string { return c.PhoneRegion }
func (c *Config) GetTxMaxAttempts() int         { return c.TxMaxAttempts }

// IsDevelopment reports whether APP_ENV is development.
func (c *Config) IsDevelopment() bool { return strings.EqualFold(c.Env, "development") }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:              getEnv("APP_ENV", "development"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		APIPrefix:        normalizePrefix(getEnv("API_PREFIX", "/api")),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		DBMaxConns:       int32(mustInt(getEnv("DB_MAX_CONNS", "25"))),
		CORSOrigins:      splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		CORSAllowAll:     strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true"),
		CORSAllowCreds:   strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RateLimitRPS:     mustFloat(getEnv("RATE_LIMIT_RPS", "20")),
		RateLimitBurst:   mustInt(getEnv("RATE_LIMIT_BURST", "40")),
		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		LeadLockTTL:      mustDuration(getEnv("LEAD_LOCK_TTL", "5s")),
		AMQPURL:          getEnv("AMQP_URL", ""),
		AMQPExchange:     getEnv("AMQP_EXCHANGE", "crm.events"),
		PhoneRegion:      strings.ToUpper(getEnv("PHONE_DEFAULT_REGION", "US")),
		TxMaxAttempts:    mustInt(getEnv("LEADS_TX_MAX_ATTEMPTS", "3")),
	}

	if containsWildcard(cfg.CORSOrigins) {
		cfg.CORSAllowAll = true
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.DBMaxConns < 1 {
		return nil, fmt.Errorf("DB_MAX_CONNS must be at least 1")
	}
	if cfg.TxMaxAttempts < 1 {
		return nil, fmt.Errorf("LEADS_TX_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.LeadLockTTL <= 0 {
		return nil, fmt.Errorf("LEAD_LOCK_TTL must be a positive duration")
	}

	return cfg, nil
}

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
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func normalizePrefix(value string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(value), "/")
	if trimmed == "" {
		return ""
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return trimmed
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
