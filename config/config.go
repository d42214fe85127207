package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Env       string // "development", "staging", "production"
	Server    ServerConfig
	AWS       AWSConfig
	Tables    TablesConfig
	Cognito   CognitoConfig
	Redis     RedisConfig
	Assets    AssetsConfig
	Migration MigrationConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// AWSConfig holds region and credentials shared by the DynamoDB and S3 clients.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// DynamoEndpoint overrides the DynamoDB endpoint (dynamodb-local in dev).
	DynamoEndpoint string
}

// TablesConfig holds DynamoDB table names.
type TablesConfig struct {
	Options     string
	Courses     string
	Content     string
	AuditEvents string
}

// CognitoConfig holds the Cognito user pool used for token verification.
// When UserPoolID is empty the server runs in dev-header fallback mode,
// which Load refuses outside of production.
type CognitoConfig struct {
	Region     string
	UserPoolID string
	ClientID   string
}

// IssuerURL returns the expected token issuer for the pool.
func (c CognitoConfig) IssuerURL() string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.Region, c.UserPoolID)
}

// JWKSURL returns the published signing-key set URL for the pool.
func (c CognitoConfig) JWKSURL() string {
	return c.IssuerURL() + "/.well-known/jwks.json"
}

// Configured reports whether a user pool is set up for verification.
func (c CognitoConfig) Configured() bool {
	return c.UserPoolID != ""
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AssetsConfig holds the S3 bucket for content item assets.
type AssetsConfig struct {
	Bucket               string
	PresignExpireMinutes int
}

// MigrationConfig bounds the full-table scans used by usage accounting,
// merge and legacy migration.
type MigrationConfig struct {
	PageSize int32 // items per DynamoDB scan page
	MaxPages int   // ceiling per traversal; 0 means unbounded
}

// RateLimitConfig holds per-client request limits for the API group.
type RateLimitConfig struct {
	RequestsPerMinute int
}

// DevFallbackEnabled reports whether the unsigned x-dev-role header may
// stand in for a verified token. Never true in production.
func (c *Config) DevFallbackEnabled() bool {
	return !c.Cognito.Configured() && c.Env != "production"
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			DynamoEndpoint:  getEnv("DYNAMODB_ENDPOINT", ""),
		},
		Tables: TablesConfig{
			Options:     getEnv("TABLE_METADATA_OPTIONS", "metadata_options"),
			Courses:     getEnv("TABLE_COURSES", "courses"),
			Content:     getEnv("TABLE_CONTENT", "content_items"),
			AuditEvents: getEnv("TABLE_AUDIT_EVENTS", "audit_events"),
		},
		Cognito: CognitoConfig{
			Region:     getEnv("COGNITO_REGION", getEnv("AWS_REGION", "us-east-1")),
			UserPoolID: getEnv("COGNITO_USER_POOL_ID", ""),
			ClientID:   getEnv("COGNITO_CLIENT_ID", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Assets: AssetsConfig{
			Bucket:               getEnv("AWS_S3_ASSETS_BUCKET", "elevate-content-assets"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Migration: MigrationConfig{
			PageSize: int32(getEnvInt("SCAN_PAGE_SIZE", 100)),
			MaxPages: getEnvInt("SCAN_MAX_PAGES", 1000),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 300),
		},
	}

	if cfg.Env == "production" && !cfg.Cognito.Configured() {
		return nil, fmt.Errorf("COGNITO_USER_POOL_ID is required when APP_ENV=production")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
