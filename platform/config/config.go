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
	GetDatabaseMaxConns() int32
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
	GetRateLimitPerMinute() int
}

// IdentityConfig provides the secret used to verify caller tokens issued by the access layer.
type IdentityConfig interface {
	GetIdentityTokenSecret() string
}

// SchedulerConfig provides settings for the asynq worker and client.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetOutboxDispatchInterval() time.Duration
	GetQuoteExpirySweepInterval() time.Duration
}

// EmailConfig provides SMTP settings for the email channel.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// WhatsAppConfig provides settings for the WhatsApp Cloud API channel.
type WhatsAppConfig interface {
	GetWhatsAppAPIURL() string
	GetWhatsAppAccessToken() string
	GetWhatsAppPhoneNumberID() string
	GetWhatsAppLanguage() string
}

// NotificationConfig provides settings for the notification module.
type NotificationConfig interface {
	GetCronSecret() string
	GetAppBaseURL() string
	GetNotificationBatchSize() int
	GetNotificationConcurrency() int
	GetNotificationMaxAttempts() int
	GetDefaultPhoneRegion() string
}

// StorageConfig provides settings for MinIO S3-compatible storage.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketQuotePDFs() string
	IsMinIOEnabled() bool
}

// ContentCacheConfig provides settings for the reference-data cache.
type ContentCacheConfig interface {
	GetRedisURL() string
	GetContentCacheTTL() time.Duration
}

// QuoteConfig provides quote lifecycle defaults.
type QuoteConfig interface {
	GetQuoteValidity() time.Duration
	GetDefaultCurrency() string
	GetOrganizationName() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                      string
	HTTPAddr                 string
	DatabaseURL              string
	DatabaseMaxConns         int32
	CORSAllowAll             bool
	CORSOrigins              []string
	CORSAllowCreds           bool
	RateLimitPerMinute       int
	IdentityTokenSecret      string
	RedisURL                 string
	RedisTLSInsecure         bool
	AsynqQueueName           string
	AsynqConcurrency         int
	OutboxDispatchInterval   time.Duration
	QuoteExpirySweepInterval time.Duration
	EmailEnabled             bool
	SMTPHost                 string
	SMTPPort                 int
	SMTPUsername             string
	SMTPPassword             string
	EmailFromName            string
	EmailFromAddress         string
	WhatsAppAPIURL           string
	WhatsAppAccessToken      string
	WhatsAppPhoneNumberID    string
	WhatsAppLanguage         string
	CronSecret               string
	AppBaseURL               string
	NotificationBatchSize    int
	NotificationConcurrency  int
	NotificationMaxAttempts  int
	DefaultPhoneRegion       string
	MinIOEndpoint            string
	MinIOAccessKey           string
	MinIOSecretKey           string
	MinIOUseSSL              bool
	MinioBucketQuotePDFs     string
	ContentCacheTTL          time.Duration
	QuoteValidity            time.Duration
	DefaultCurrency          string
	OrganizationName         string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string      { return c.DatabaseURL }
func (c *Config) GetDatabaseMaxConns() int32 { return c.DatabaseMaxConns }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string        { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool      { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string   { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool    { return c.CORSAllowCreds }
func (c *Config) GetRateLimitPerMinute() int { return c.RateLimitPerMinute }

// IdentityConfig implementation
func (c *Config) GetIdentityTokenSecret() string { return c.IdentityTokenSecret }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string                       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool                 { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string                 { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int                  { return c.AsynqConcurrency }
func (c *Config) GetOutboxDispatchInterval() time.Duration  { return c.OutboxDispatchInterval }
func (c *Config) GetQuoteExpirySweepInterval() time.Duration { return c.QuoteExpirySweepInterval }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// WhatsAppConfig implementation
func (c *Config) GetWhatsAppAPIURL() string        { return c.WhatsAppAPIURL }
func (c *Config) GetWhatsAppAccessToken() string   { return c.WhatsAppAccessToken }
func (c *Config) GetWhatsAppPhoneNumberID() string { return c.WhatsAppPhoneNumberID }
func (c *Config) GetWhatsAppLanguage() string      { return c.WhatsAppLanguage }

// NotificationConfig implementation
func (c *Config) GetCronSecret() string         { return c.CronSecret }
func (c *Config) GetAppBaseURL() string         { return c.AppBaseURL }
func (c *Config) GetNotificationBatchSize() int   { return c.NotificationBatchSize }
func (c *Config) GetNotificationConcurrency() int { return c.NotificationConcurrency }
func (c *Config) GetNotificationMaxAttempts() int { return c.NotificationMaxAttempts }
func (c *Config) GetDefaultPhoneRegion() string   { return c.DefaultPhoneRegion }

// StorageConfig implementation
func (c *Config) GetMinIOEndpoint() string       { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string      { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string      { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool           { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketQuotePDFs() string { return c.MinioBucketQuotePDFs }
func (c *Config) IsMinIOEnabled() bool           { return c.MinIOEndpoint != "" }

// ContentCacheConfig implementation
func (c *Config) GetContentCacheTTL() time.Duration { return c.ContentCacheTTL }

// QuoteConfig implementation
func (c *Config) GetQuoteValidity() time.Duration { return c.QuoteValidity }
func (c *Config) GetDefaultCurrency() string      { return c.DefaultCurrency }
func (c *Config) GetOrganizationName() string     { return c.OrganizationName }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:                      getEnv("APP_ENV", "development"),
		HTTPAddr:                 getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		DatabaseMaxConns:         int32(mustInt(getEnv("DATABASE_MAX_CONNS", "25"))),
		CORSAllowAll:             corsAllowAll,
		CORSOrigins:              corsOrigins,
		CORSAllowCreds:           strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RateLimitPerMinute:       mustInt(getEnv("RATE_LIMIT_PER_MINUTE", "120")),
		IdentityTokenSecret:      getEnv("IDENTITY_TOKEN_SECRET", ""),
		RedisURL:                 getEnv("REDIS_URL", ""),
		RedisTLSInsecure:         strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:           getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:         mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		OutboxDispatchInterval:   mustDuration(getEnv("OUTBOX_DISPATCH_INTERVAL", "5s")),
		QuoteExpirySweepInterval: mustDuration(getEnv("QUOTE_EXPIRY_SWEEP_INTERVAL", "1h")),
		EmailEnabled:             emailEnabled && smtpHost != "",
		SMTPHost:                 smtpHost,
		SMTPPort:                 mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:             getEnv("SMTP_USERNAME", ""),
		SMTPPassword:             getEnv("SMTP_PASSWORD", ""),
		EmailFromName:            getEnv("EMAIL_FROM_NAME", "Patient Journeys"),
		EmailFromAddress:         getEnv("EMAIL_FROM_ADDRESS", ""),
		WhatsAppAPIURL:           getEnv("WHATSAPP_API_URL", "https://graph.facebook.com/v18.0"),
		WhatsAppAccessToken:      getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		WhatsAppPhoneNumberID:    getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppLanguage:         getEnv("WHATSAPP_LANGUAGE", "en"),
		CronSecret:               getEnv("CRON_SECRET", ""),
		AppBaseURL:               getEnv("APP_BASE_URL", "http://localhost:3000"),
		NotificationBatchSize:    mustInt(getEnv("NOTIFICATION_BATCH_SIZE", "50")),
		NotificationConcurrency:  mustInt(getEnv("NOTIFICATION_CONCURRENCY", "5")),
		NotificationMaxAttempts:  mustInt(getEnv("NOTIFICATION_MAX_ATTEMPTS", "5")),
		DefaultPhoneRegion:       strings.ToUpper(getEnv("DEFAULT_PHONE_REGION", "KR")),
		MinIOEndpoint:            getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:           getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:           getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:              strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketQuotePDFs:     getEnv("MINIO_BUCKET_QUOTE_PDFS", "quote-pdfs"),
		ContentCacheTTL:          mustDuration(getEnv("CONTENT_CACHE_TTL", "10m")),
		QuoteValidity:            mustDuration(getEnv("QUOTE_VALIDITY", "336h")),
		DefaultCurrency:          strings.ToUpper(getEnv("DEFAULT_CURRENCY", "USD")),
		OrganizationName:         getEnv("ORGANIZATION_NAME", "Patient Journeys"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.QuoteValidity <= 0 {
		return nil, fmt.Errorf("QUOTE_VALIDITY must be a positive duration")
	}
	if cfg.NotificationBatchSize < 1 {
		cfg.NotificationBatchSize = 50
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
