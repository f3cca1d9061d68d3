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

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq-backed scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// SuppressionConfig provides settings for the do-not-contact suppression set.
type SuppressionConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// ClassifierConfig provides settings for the reply-intent classifier.
type ClassifierConfig interface {
	GetGeminiAPIKey() string
	GetClassifierModel() string
	GetClassifierTimeout() time.Duration
	IsClassifierEnabled() bool
}

// ProviderConfig provides settings for the social-network connection provider.
type ProviderConfig interface {
	GetProviderBaseURL() string
	GetProviderAPIKey() string
	GetProviderTimeout() time.Duration
	IsProviderEnabled() bool
}

// ReaperConfig provides settings for the stale connection-request reaper.
type ReaperConfig interface {
	GetReaperWithdrawalsPerSeat() int
	GetReaperCallsPerSecond() float64
}

// SweepConfig provides cadences for the periodic sweep dispatchers.
type SweepConfig interface {
	GetHealthRefreshInterval() time.Duration
	GetReaperSweepInterval() time.Duration
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetBrevoAPIKey() string
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// WebhookConfig provides settings for inbound provider callbacks.
type WebhookConfig interface {
	GetWebhookToken() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                string
	HTTPAddr           string
	DatabaseURL        string
	RedisURL           string
	RedisTLSInsecure   bool
	AsynqQueueName     string
	AsynqConcurrency   int
	JWTAccessSecret    string
	WebhookToken       string
	CORSAllowAll       bool
	CORSOrigins        []string
	CORSAllowCreds     bool
	GeminiAPIKey       string
	ClassifierModel    string
	ClassifierTimeout  time.Duration
	ProviderBaseURL    string
	ProviderAPIKey     string
	ProviderTimeout    time.Duration
	ReaperPerSeatCap   int
	ReaperCallsPerSec  float64
	EmailEnabled       bool
	BrevoAPIKey        string
	SMTPHost           string
	SMTPPort           int
	SMTPUsername       string
	SMTPPassword       string
	EmailFromName      string
	EmailFromAddress   string
	HealthRefreshEvery time.Duration
	ReaperSweepEvery   time.Duration
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// ClassifierConfig implementation
func (c *Config) GetGeminiAPIKey() string             { return c.GeminiAPIKey }
func (c *Config) GetClassifierModel() string          { return c.ClassifierModel }
func (c *Config) GetClassifierTimeout() time.Duration { return c.ClassifierTimeout }
func (c *Config) IsClassifierEnabled() bool           { return c.GeminiAPIKey != "" }

// ProviderConfig implementation
func (c *Config) GetProviderBaseURL() string        { return c.ProviderBaseURL }
func (c *Config) GetProviderAPIKey() string         { return c.ProviderAPIKey }
func (c *Config) GetProviderTimeout() time.Duration { return c.ProviderTimeout }
func (c *Config) IsProviderEnabled() bool           { return c.ProviderBaseURL != "" }

// ReaperConfig implementation
func (c *Config) GetReaperWithdrawalsPerSeat() int { return c.ReaperPerSeatCap }
func (c *Config) GetReaperCallsPerSecond() float64 { return c.ReaperCallsPerSec }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetBrevoAPIKey() string      { return c.BrevoAPIKey }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// SweepConfig implementation
func (c *Config) GetHealthRefreshInterval() time.Duration { return c.HealthRefreshEvery }
func (c *Config) GetReaperSweepInterval() time.Duration   { return c.ReaperSweepEvery }

// WebhookConfig implementation
func (c *Config) GetWebhookToken() string { return c.WebhookToken }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	brevoAPIKey := getEnv("BREVO_API_KEY", "")
	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:                getEnv("APP_ENV", "development"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisTLSInsecure:   strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:     getEnv("ASYNQ_QUEUE", "outreach"),
		AsynqConcurrency:   mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		JWTAccessSecret:    getEnv("JWT_ACCESS_SECRET", ""),
		WebhookToken:       getEnv("WEBHOOK_TOKEN", ""),
		CORSAllowAll:       corsAllowAll,
		CORSOrigins:        corsOrigins,
		CORSAllowCreds:     strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		ClassifierModel:    getEnv("CLASSIFIER_MODEL", "gemini-2.5-flash"),
		ClassifierTimeout:  mustDuration(getEnv("CLASSIFIER_TIMEOUT", "20s")),
		ProviderBaseURL:    getEnv("CONNECT_PROVIDER_URL", ""),
		ProviderAPIKey:     getEnv("CONNECT_PROVIDER_API_KEY", ""),
		ProviderTimeout:    mustDuration(getEnv("CONNECT_PROVIDER_TIMEOUT", "15s")),
		ReaperPerSeatCap:   mustInt(getEnv("REAPER_WITHDRAWALS_PER_SEAT", "25")),
		ReaperCallsPerSec:  mustFloat(getEnv("REAPER_CALLS_PER_SECOND", "2")),
		EmailEnabled:       emailEnabled && (brevoAPIKey != "" || smtpHost != ""),
		BrevoAPIKey:        brevoAPIKey,
		SMTPHost:           smtpHost,
		SMTPPort:           mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:       getEnv("SMTP_USERNAME", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		EmailFromName:      getEnv("EMAIL_FROM_NAME", "Agency OS"),
		EmailFromAddress:   getEnv("EMAIL_FROM_ADDRESS", ""),
		HealthRefreshEvery: mustDuration(getEnv("SEAT_HEALTH_REFRESH_INTERVAL", "24h")),
		ReaperSweepEvery:   mustDuration(getEnv("REAPER_SWEEP_INTERVAL", "24h")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}

func mustDuration(raw string) time.Duration {
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}
	return parsed
}

func mustInt(raw string) int {
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}

func mustFloat(raw string) float64 {
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return parsed
}
