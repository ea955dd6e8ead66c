package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// EnvDevelopment is the only environment allowed to run on fallback secrets.
	EnvDevelopment = "development"
	EnvProduction  = "production"

	devJWTSecret   = "your_jwt_secret_key_here"
	devResetSecret = "your_reset_secret"
)

// Revocation backends.
const (
	RevocationMemory = "memory"
	RevocationRedis  = "redis"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	RateLimit    RateLimitConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	BodyLimitBytes        int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret              string
	ResetSecret            string
	TokenExpiresInSeconds  int
	ResetExpiresInSeconds  int
	BcryptCost             int
	RevocationBackend      string
	RevocationRedisPrefix  string
	UsingFallbackJWTSecret bool
}

// RateLimitConfig configures the blanket /api limiter.
type RateLimitConfig struct {
	Max           int
	WindowSeconds int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom    string
	WebhookURL   string
	ResetURLBase string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	env := strings.ToLower(getEnv("APP_ENV", EnvDevelopment))
	jwtSecret := os.Getenv("JWT_SECRET")
	resetSecret := os.Getenv("JWT_RESET_SECRET")

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "compliance-portal"),
			Env:                   env,
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("PORT", "4000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			BodyLimitBytes:        getEnvAsInt("HTTP_BODY_LIMIT_BYTES", 50*1024*1024),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             jwtSecret,
			ResetSecret:           resetSecret,
			TokenExpiresInSeconds: getEnvAsInt("JWT_EXPIRES_IN_SECONDS", 604800),
			ResetExpiresInSeconds: getEnvAsInt("JWT_RESET_EXPIRES_IN_SECONDS", 3600),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 10),
			RevocationBackend:     strings.ToLower(getEnv("AUTH_REVOCATION_BACKEND", RevocationMemory)),
			RevocationRedisPrefix: getEnv("AUTH_REVOCATION_REDIS_PREFIX", "revoked_token:"),
		},
		RateLimit: RateLimitConfig{
			Max:           getEnvAsInt("RATE_LIMIT_MAX", 100),
			WindowSeconds: getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 15*60),
		},
		Notification: NotificationConfig{
			EmailFrom:    getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL:   getEnv("NOTIFY_WEBHOOK_URL", ""),
			ResetURLBase: getEnv("NOTIFY_RESET_URL_BASE", "http://localhost:5173/reset-password"),
		},
	}

	if err := cfg.applySecretFallbacks(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applySecretFallbacks fills missing secrets in development and refuses to elsewhere.
func (c *Config) applySecretFallbacks() error {
	var missing []string
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.Auth.ResetSecret == "" {
		missing = append(missing, "JWT_RESET_SECRET")
	}
	if len(missing) == 0 {
		return nil
	}
	if !c.App.IsDevelopment() {
		return fmt.Errorf("%s must be set when APP_ENV=%s", strings.Join(missing, ", "), c.App.Env)
	}
	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = devJWTSecret
		c.Auth.UsingFallbackJWTSecret = true
	}
	if c.Auth.ResetSecret == "" {
		c.Auth.ResetSecret = devResetSecret
	}
	return nil
}

// Validate checks invariants that env parsing alone cannot guarantee.
func (c *Config) Validate() error {
	if c.Auth.TokenExpiresInSeconds <= 0 {
		return errors.New("JWT_EXPIRES_IN_SECONDS must be positive")
	}
	if c.Auth.ResetExpiresInSeconds <= 0 {
		return errors.New("JWT_RESET_EXPIRES_IN_SECONDS must be positive")
	}
	if c.Auth.JWTSecret == c.Auth.ResetSecret {
		return errors.New("JWT_SECRET and JWT_RESET_SECRET must differ")
	}
	switch c.Auth.RevocationBackend {
	case RevocationMemory, RevocationRedis:
	default:
		return fmt.Errorf("unknown AUTH_REVOCATION_BACKEND %q", c.Auth.RevocationBackend)
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// IsDevelopment reports whether the service runs in local development mode.
func (a AppConfig) IsDevelopment() bool {
	return a.Env == EnvDevelopment
}

// IsProduction reports whether error responses must hide internals.
func (a AppConfig) IsProduction() bool {
	return a.Env == EnvProduction
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// TokenTTL returns the session token lifetime.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenExpiresInSeconds) * time.Second
}

// ResetTTL returns the password reset token lifetime.
func (a AuthConfig) ResetTTL() time.Duration {
	return time.Duration(a.ResetExpiresInSeconds) * time.Second
}

// Window returns the limiter window.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
