package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/iamsyg/artisian-dashboard/pkg/config"
	"github.com/iamsyg/artisian-dashboard/pkg/database"
)

// Storage drivers.
const (
	StorageMemory = "memory"
	StorageS3     = "s3"
)

// Config holds all configuration for the marketplace service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort           int      `env:"HTTP_PORT" envDefault:"8080"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128" envSeparator:","`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"marketplace"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"marketplace_secret"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"marketplace"`
	PostgresSSL  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	// Database pool
	DBMaxConns        int32         `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns        int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`

	// StoreTimeout bounds each repository call.
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"200"`

	// Redis holds ad previews. Empty keeps them in process memory.
	RedisAddr string `env:"REDIS_ADDR" envDefault:""`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka. No brokers disables event publishing.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// Object storage
	StorageDriver         string `env:"STORAGE_DRIVER" envDefault:"memory"`
	StoragePublicBaseURL  string `env:"STORAGE_PUBLIC_BASE_URL" envDefault:""`
	S3Region              string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint            string `env:"S3_ENDPOINT" envDefault:""`
	S3AccessKeyID         string `env:"S3_ACCESS_KEY_ID" envDefault:""`
	S3SecretAccessKey     string `env:"S3_SECRET_ACCESS_KEY" envDefault:""`
	S3UsePathStyle        bool   `env:"S3_USE_PATH_STYLE" envDefault:"false"`
	BucketProductPhotos   string `env:"BUCKET_PRODUCT_PHOTOS" envDefault:"product-photos"`
	BucketProfilePictures string `env:"BUCKET_PROFILE_PICTURES" envDefault:"profile-pictures"`
	BucketAudioRecords    string `env:"BUCKET_AUDIO_RECORDS" envDefault:"audio-records"`
	MaxImageBytes         int64  `env:"MAX_IMAGE_BYTES" envDefault:"10485760"`
	MaxAudioBytes         int64  `env:"MAX_AUDIO_BYTES" envDefault:"26214400"`

	// Identity provider
	IdentityJWTSecret  string `env:"IDENTITY_JWT_SECRET" envDefault:""`
	IdentityAdminURL   string `env:"IDENTITY_ADMIN_URL" envDefault:""`
	IdentityServiceKey string `env:"IDENTITY_SERVICE_KEY" envDefault:""`
	ProtectedUID       string `env:"PROTECTED_UID" envDefault:""`

	// AI services
	AIDescribeURL        string        `env:"AI_DESCRIBE_URL" envDefault:"http://localhost:9100/describe"`
	AIAdImageURL         string        `env:"AI_AD_IMAGE_URL" envDefault:"http://localhost:9100/ad-image"`
	AISpeechURL          string        `env:"AI_SPEECH_URL" envDefault:"http://localhost:9100/speech"`
	AITimeout            time.Duration `env:"AI_TIMEOUT" envDefault:"30s"`
	AIAdImageTimeout     time.Duration `env:"AI_AD_IMAGE_TIMEOUT" envDefault:"60s"`
	AIBreakerMaxFailures uint32        `env:"AI_BREAKER_MAX_FAILURES" envDefault:"5"`
	AIBreakerTimeout     time.Duration `env:"AI_BREAKER_TIMEOUT" envDefault:"30s"`
	AIRateLimitRPS       float64       `env:"AI_RATE_LIMIT_RPS" envDefault:"2"`
	AIRateLimitBurst     int           `env:"AI_RATE_LIMIT_BURST" envDefault:"4"`

	// Ad workflow and enrichment
	AdPreviewTTL          time.Duration `env:"AD_PREVIEW_TTL" envDefault:"30m"`
	EnrichVerifyOwnership bool          `env:"ENRICH_VERIFY_OWNERSHIP" envDefault:"false"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from .env files and environment variables.
func Load(envFiles ...string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg, envFiles...); err != nil {
		return nil, fmt.Errorf("load marketplace config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment reports whether the service runs in a development environment.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "test"
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("invalid POSTGRES_PORT: %d", c.PostgresPort)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}

	switch c.StorageDriver {
	case StorageMemory, StorageS3:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q (want %s or %s)", c.StorageDriver, StorageMemory, StorageS3)
	}

	for name, d := range map[string]time.Duration{
		"STORE_TIMEOUT":       c.StoreTimeout,
		"AI_TIMEOUT":          c.AITimeout,
		"AI_AD_IMAGE_TIMEOUT": c.AIAdImageTimeout,
		"AI_BREAKER_TIMEOUT":  c.AIBreakerTimeout,
		"AD_PREVIEW_TTL":      c.AdPreviewTTL,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}

	if c.MaxImageBytes <= 0 || c.MaxAudioBytes <= 0 {
		return fmt.Errorf("MAX_IMAGE_BYTES and MAX_AUDIO_BYTES must be positive")
	}
	if c.AIRateLimitRPS <= 0 || c.AIRateLimitBurst < 1 {
		return fmt.Errorf("AI_RATE_LIMIT_RPS must be positive and AI_RATE_LIMIT_BURST at least 1")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	if c.IdentityJWTSecret == "" && !c.IsDevelopment() {
		return fmt.Errorf("IDENTITY_JWT_SECRET is required outside development")
	}

	for name, rawURL := range map[string]string{
		"AI_DESCRIBE_URL": c.AIDescribeURL,
		"AI_AD_IMAGE_URL": c.AIAdImageURL,
		"AI_SPEECH_URL":   c.AISpeechURL,
	} {
		if _, err := url.ParseRequestURI(rawURL); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, rawURL, err)
		}
	}
	return nil
}

// Postgres returns the connection pool settings.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: c.DBMaxConnLifetime,
		MaxConnIdleTime: c.DBMaxConnIdleTime,
	}
}

// MediaBaseURL is the URL prefix of objects served by the memory driver.
func (c *Config) MediaBaseURL() string {
	if c.StoragePublicBaseURL != "" {
		return c.StoragePublicBaseURL
	}
	return fmt.Sprintf("http://localhost:%d", c.HTTPPort)
}
