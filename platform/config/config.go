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
}

// ServiceAuthConfig provides service-token validation settings for middleware.
type ServiceAuthConfig interface {
	GetServiceTokenSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
	GetRateLimitRPS() float64
	GetRateLimitBurst() int
}

// SchedulerConfig provides settings for the asynq task queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// EngineConfig provides settings for the conversation/lead-state engine.
type EngineConfig interface {
	GetDefaultRegion() string
	GetTxAttempts() int
}

// ResponderConfig provides settings for the automated-response pipeline.
type ResponderConfig interface {
	IsAutoResponseEnabled() bool
	GetResponseDelay() time.Duration
	GetResponseMaxAttempts() int
}

// OutboundConfig provides settings for the outbound delivery sink.
type OutboundConfig interface {
	GetOutboundSinkURL() string
	GetOutboundSinkKey() string
}

// NotifyConfig provides settings for lead-change webhook notifications.
type NotifyConfig interface {
	GetNotifyWebhookURL() string
	IsNotifyEnabled() bool
}

// ExportConfig provides settings for signed export downloads.
type ExportConfig interface {
	ServiceAuthConfig
	GetExportTokenTTL() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                 string
	HTTPAddr            string
	DatabaseURL         string
	ServiceTokenSecret  string
	CORSAllowAll        bool
	CORSOrigins         []string
	CORSAllowCreds      bool
	RateLimitRPS        float64
	RateLimitBurst      int
	RedisURL            string
	RedisTLSInsecure    bool
	AsynqQueueName      string
	AsynqConcurrency    int
	DefaultRegion       string
	TxAttempts          int
	AutoResponseEnabled bool
	AutoResponseText    string
	ResponseDelay       time.Duration
	ResponseMaxAttempts int
	OutboundSinkURL     string
	OutboundSinkKey     string
	NotifyWebhookURL    string
	ExportTokenTTL      time.Duration
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// ServiceAuthConfig implementation
func (c *Config) GetServiceTokenSecret() string { return c.ServiceTokenSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }
func (c *Config) GetRateLimitRPS() float64 { return c.RateLimitRPS }
func (c *Config) GetRateLimitBurst() int   { return c.RateLimitBurst }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// EngineConfig implementation
func (c *Config) GetDefaultRegion() string { return c.DefaultRegion }
func (c *Config) GetTxAttempts() int       { return c.TxAttempts }

// ResponderConfig implementation
func (c *Config) IsAutoResponseEnabled() bool     { return c.AutoResponseEnabled }
func (c *Config) GetResponseDelay() time.Duration { return c.ResponseDelay }
func (c *Config) GetResponseMaxAttempts() int     { return c.ResponseMaxAttempts }

// OutboundConfig implementation
func (c *Config) GetOutboundSinkURL() string { return c.OutboundSinkURL }
func (c *Config) GetOutboundSinkKey() string { return c.OutboundSinkKey }

// NotifyConfig implementation
func (c *Config) GetNotifyWebhookURL() string { return c.NotifyWebhookURL }
func (c *Config) IsNotifyEnabled() bool       { return c.NotifyWebhookURL != "" }

// ExportConfig implementation
func (c *Config) GetExportTokenTTL() time.Duration { return c.ExportTokenTTL }

// Load reads configuration from environment variables.
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
		ServiceTokenSecret:  getEnv("SERVICE_TOKEN_SECRET", ""),
		CORSAllowAll:        corsAllowAll,
		CORSOrigins:         corsOrigins,
		CORSAllowCreds:      strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RateLimitRPS:        mustFloat(getEnv("RATE_LIMIT_RPS", "50")),
		RateLimitBurst:      mustInt(getEnv("RATE_LIMIT_BURST", "100")),
		RedisURL:            getEnv("REDIS_URL", ""),
		RedisTLSInsecure:    strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:      getEnv("ASYNQ_QUEUE_NAME", "default"),
		AsynqConcurrency:    mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		DefaultRegion:       getEnv("ENGINE_DEFAULT_REGION", "US"),
		TxAttempts:          mustInt(getEnv("ENGINE_TX_ATTEMPTS", "3")),
		AutoResponseEnabled: strings.EqualFold(getEnv("AUTO_RESPONSE_ENABLED", "false"), "true"),
		AutoResponseText:    getEnv("AUTO_RESPONSE_TEXT", ""),
		ResponseDelay:       mustDuration(getEnv("AUTO_RESPONSE_DELAY", "5s")),
		ResponseMaxAttempts: mustInt(getEnv("AUTO_RESPONSE_MAX_ATTEMPTS", "5")),
		OutboundSinkURL:     getEnv("OUTBOUND_SINK_URL", ""),
		OutboundSinkKey:     getEnv("OUTBOUND_SINK_KEY", ""),
		NotifyWebhookURL:    getEnv("NOTIFY_WEBHOOK_URL", ""),
		ExportTokenTTL:      mustDuration(getEnv("EXPORT_TOKEN_TTL", "15m")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.ServiceTokenSecret == "" {
		return nil, fmt.Errorf("SERVICE_TOKEN_SECRET is required")
	}
	if cfg.AutoResponseEnabled && cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required when AUTO_RESPONSE_ENABLED is true")
	}
	if cfg.TxAttempts < 1 {
		return nil, fmt.Errorf("ENGINE_TX_ATTEMPTS must be at least 1")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
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
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return result
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
