package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/rajasatyajit/apikey-authorizer/internal/errors"
)

// Cache backends
const (
	CacheBackendDynamoDB = "dynamodb"
	CacheBackendRedis    = "redis"
	CacheBackendPostgres = "postgres"
	CacheBackendMemory   = "memory"
)

const (
	DefaultContextTagPrefix  = "context:"
	DefaultAuthorizationPlan = "authorization:bearer(plain)"
	DefaultMaxCacheAge       = 300
	defaultPostgresTable     = "api_key_cache"
)

// Config holds all application configuration
type Config struct {
	Authorizer AuthorizerConfig
	Cache      CacheConfig
	KeyService KeyServiceConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Server     ServerConfig
	Logging    LoggingConfig
	Metrics    MetricsConfig
}

// AuthorizerConfig drives credential extraction and decision building
type AuthorizerConfig struct {
	Region             string
	PrincipalIDTagName string // empty: always use DefaultPrincipalID
	ContextTagPrefix   string
	DefaultPrincipalID string // empty: reject when no tag matches
	AuthorizationPlan  []string
	CopyRequestHeaders []string
}

type CacheConfig struct {
	Backend   string
	TableName string
	MaxAge    int // seconds; <= 0 disables caching
}

// Enabled reports whether resolved keys are cached at all
func (c CacheConfig) Enabled() bool { return c.MaxAge > 0 }

type KeyServiceConfig struct {
	Endpoint string
	// PageRateLimit bounds GetApiKeys page requests per second; 0 means unlimited
	PageRateLimit float64
}

type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

type RedisConfig struct {
	URL       string
	KeyPrefix string
}

type ServerConfig struct {
	Host                    string
	Port                    int
	ReadTimeout             time.Duration
	WriteTimeout            time.Duration
	IdleTimeout             time.Duration
	GracefulShutdownTimeout time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string // json or text
}

type MetricsConfig struct {
	Enabled bool
	Port    int
	Path    string
}

// Load loads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	tableName := getEnv("CACHE_TABLE_NAME", "")
	cfg := &Config{
		Authorizer: AuthorizerConfig{
			Region:             getEnv("AWS_REGION", ""),
			PrincipalIDTagName: getEnv("PRINCIPAL_ID_TAG_NAME", ""),
			ContextTagPrefix:   getEnv("CONTEXT_TAG_PREFIX", DefaultContextTagPrefix),
			DefaultPrincipalID: getEnv("DEFAULT_PRINCIPAL_ID", ""),
			AuthorizationPlan:  getEnvList("AUTHORIZATION_PLAN", []string{DefaultAuthorizationPlan}),
			CopyRequestHeaders: getEnvList("COPY_REQUEST_HEADERS", nil),
		},
		Cache: CacheConfig{
			Backend:   getEnv("CACHE_BACKEND", defaultCacheBackend(tableName)),
			TableName: tableName,
			MaxAge:    getEnvInt("MAX_API_KEY_CACHE_AGE", DefaultMaxCacheAge),
		},
		KeyService: KeyServiceConfig{
			Endpoint:      getEnv("AWS_ENDPOINT_URL", ""),
			PageRateLimit: getEnvFloat("KEY_LISTING_RATE_LIMIT", 10),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvInt("DB_MAX_CONNS", 5),
			MinConns:        getEnvInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvDuration("DB_MAX_CONN_LIFETIME", 1*time.Hour),
			MaxConnIdleTime: getEnvDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:       getEnv("REDIS_URL", ""),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "apikey:"),
		},
		Server: ServerConfig{
			Host:                    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:                    getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:             getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:            getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:             getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			GracefulShutdownTimeout: getEnvDuration("SERVER_GRACEFUL_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Port:    getEnvInt("METRICS_PORT", 9090),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	if cfg.Cache.Backend == CacheBackendPostgres && cfg.Cache.TableName == "" {
		cfg.Cache.TableName = defaultPostgresTable
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func defaultCacheBackend(tableName string) string {
	if tableName != "" {
		return CacheBackendDynamoDB
	}
	return CacheBackendMemory
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs apperrors.MultiError

	if len(c.Authorizer.AuthorizationPlan) == 0 {
		errs.Add(apperrors.ValidationError{Field: "AUTHORIZATION_PLAN", Message: "at least one step is required"})
	}

	if c.Cache.Enabled() {
		switch c.Cache.Backend {
		case CacheBackendDynamoDB:
			if c.Cache.TableName == "" {
				errs.Add(apperrors.ValidationError{Field: "CACHE_TABLE_NAME", Message: "required for the dynamodb cache backend"})
			}
		case CacheBackendRedis:
			if c.Redis.URL == "" {
				errs.Add(apperrors.ValidationError{Field: "REDIS_URL", Message: "required for the redis cache backend"})
			}
		case CacheBackendPostgres:
			if c.Database.URL == "" {
				errs.Add(apperrors.ValidationError{Field: "DATABASE_URL", Message: "required for the postgres cache backend"})
			}
		case CacheBackendMemory:
		default:
			errs.Add(apperrors.ValidationError{Field: "CACHE_BACKEND", Message: fmt.Sprintf("unknown backend %q", c.Cache.Backend)})
		}
	}

	if c.KeyService.PageRateLimit < 0 {
		errs.Add(apperrors.ValidationError{Field: "KEY_LISTING_RATE_LIMIT", Message: "must not be negative"})
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs.Add(apperrors.ValidationError{Field: "SERVER_PORT", Message: fmt.Sprintf("invalid port: %d", c.Server.Port)})
	}
	if c.Database.MaxConns < 1 {
		errs.Add(apperrors.ValidationError{Field: "DB_MAX_CONNS", Message: "must be at least 1"})
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping empty entries
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
