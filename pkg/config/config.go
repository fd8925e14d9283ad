package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Limiter store backends.
const (
	LimiterStoreRedis  = "redis"
	LimiterStoreMemory = "memory"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database       DatabaseConfig
	LegacyDatabase DatabaseConfig
	Redis          RedisConfig
	Auth           AuthConfig
	Cache          CacheConfig
	CORS           CORSConfig
	Log            LogConfig
	Sentry         SentryConfig
	Audit          AuditConfig
}

type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// AuthConfig drives token lifetimes and attempt throttling.
type AuthConfig struct {
	TokenSecret         string
	Issuer              string
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
	MaxRefreshPerDevice int
	LoginMaxAttempts    int
	RefreshMaxAttempts  int
	AttemptDecay        time.Duration
	LimiterStore        string
	CleanupInterval     time.Duration
	DeviceHeader        string
}

// CacheConfig governs caching of the aggregated session payload.
type CacheConfig struct {
	Enabled    bool
	ProfileTTL time.Duration
	NewsTTL    time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SentryConfig enables error reporting when a DSN is present.
type SentryConfig struct {
	DSN string
}

// AuditConfig sizes the asynchronous audit persistence queue.
type AuditConfig struct {
	Persist    bool
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Driver:       v.GetString("DB_DRIVER"),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.LegacyDatabase = DatabaseConfig{
		Driver:       v.GetString("LEGACY_DB_DRIVER"),
		Host:         v.GetString("LEGACY_DB_HOST"),
		Port:         v.GetInt("LEGACY_DB_PORT"),
		User:         v.GetString("LEGACY_DB_USER"),
		Password:     v.GetString("LEGACY_DB_PASSWORD"),
		Name:         v.GetString("LEGACY_DB_NAME"),
		SSLMode:      v.GetString("LEGACY_DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("LEGACY_DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("LEGACY_DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Auth = AuthConfig{
		TokenSecret:         v.GetString("AUTH_TOKEN_SECRET"),
		Issuer:              v.GetString("AUTH_ISSUER"),
		AccessTokenTTL:      parseDuration(v.GetString("AUTH_ACCESS_TOKEN_TTL"), 7*24*time.Hour),
		RefreshTokenTTL:     parseDuration(v.GetString("AUTH_REFRESH_TOKEN_TTL"), 30*24*time.Hour),
		MaxRefreshPerDevice: positiveOr(v.GetInt("AUTH_MAX_REFRESH_PER_DEVICE"), 5),
		LoginMaxAttempts:    positiveOr(v.GetInt("AUTH_LOGIN_MAX_ATTEMPTS"), 5),
		RefreshMaxAttempts:  positiveOr(v.GetInt("AUTH_REFRESH_MAX_ATTEMPTS"), 5),
		AttemptDecay:        parseDuration(v.GetString("AUTH_ATTEMPT_DECAY"), time.Minute),
		LimiterStore:        strings.ToLower(v.GetString("AUTH_LIMITER_STORE")),
		CleanupInterval:     parseDuration(v.GetString("AUTH_CLEANUP_INTERVAL"), time.Hour),
		DeviceHeader:        v.GetString("AUTH_DEVICE_HEADER"),
	}

	cfg.Cache = CacheConfig{
		Enabled:    v.GetBool("ENABLE_SESSION_CACHE"),
		ProfileTTL: parseDuration(v.GetString("SESSION_CACHE_PROFILE_TTL"), 10*time.Minute),
		NewsTTL:    parseDuration(v.GetString("SESSION_CACHE_NEWS_TTL"), 2*time.Minute),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Sentry = SentryConfig{DSN: v.GetString("SENTRY_DSN")}

	cfg.Audit = AuditConfig{
		Persist:    v.GetBool("AUDIT_PERSIST"),
		Workers:    positiveOr(v.GetInt("AUDIT_WORKERS"), 1),
		BufferSize: positiveOr(v.GetInt("AUDIT_BUFFER_SIZE"), 256),
		MaxRetries: positiveOr(v.GetInt("AUDIT_MAX_RETRIES"), 3),
		RetryDelay: parseDuration(v.GetString("AUDIT_RETRY_DELAY"), time.Second),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "hr_auth")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("LEGACY_DB_DRIVER", "pgx")
	v.SetDefault("LEGACY_DB_HOST", "localhost")
	v.SetDefault("LEGACY_DB_PORT", 5432)
	v.SetDefault("LEGACY_DB_USER", "postgres")
	v.SetDefault("LEGACY_DB_PASSWORD", "postgres")
	v.SetDefault("LEGACY_DB_NAME", "hr_legacy")
	v.SetDefault("LEGACY_DB_SSL_MODE", "disable")
	v.SetDefault("LEGACY_DB_MAX_OPEN_CONNS", 5)
	v.SetDefault("LEGACY_DB_MAX_IDLE_CONNS", 2)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("AUTH_TOKEN_SECRET", "dev_secret")
	v.SetDefault("AUTH_ISSUER", "hr-attendance-api")
	v.SetDefault("AUTH_ACCESS_TOKEN_TTL", "168h")
	v.SetDefault("AUTH_REFRESH_TOKEN_TTL", "720h")
	v.SetDefault("AUTH_MAX_REFRESH_PER_DEVICE", 5)
	v.SetDefault("AUTH_LOGIN_MAX_ATTEMPTS", 5)
	v.SetDefault("AUTH_REFRESH_MAX_ATTEMPTS", 5)
	v.SetDefault("AUTH_ATTEMPT_DECAY", "60s")
	v.SetDefault("AUTH_LIMITER_STORE", LimiterStoreRedis)
	v.SetDefault("AUTH_CLEANUP_INTERVAL", "1h")
	v.SetDefault("AUTH_DEVICE_HEADER", "X-Device-ID")

	v.SetDefault("ENABLE_SESSION_CACHE", true)
	v.SetDefault("SESSION_CACHE_PROFILE_TTL", "10m")
	v.SetDefault("SESSION_CACHE_NEWS_TTL", "2m")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SENTRY_DSN", "")

	v.SetDefault("AUDIT_PERSIST", true)
	v.SetDefault("AUDIT_WORKERS", 1)
	v.SetDefault("AUDIT_BUFFER_SIZE", 256)
	v.SetDefault("AUDIT_MAX_RETRIES", 3)
	v.SetDefault("AUDIT_RETRY_DELAY", "1s")
}

// isMissingFile reports whether viper failed because .env is absent.
// SetConfigFile bypasses the search path, so viper surfaces the raw fs error.
func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory") ||
		strings.Contains(err.Error(), "cannot find the file")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
