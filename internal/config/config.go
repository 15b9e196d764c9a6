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

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Relay    RelayConfig
	Provider ProviderConfig
	Outbox   OutboxConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	CORSOrigins           []string
	UploadLimitBytes      int
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
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// RelayConfig configures the realtime socket server.
type RelayConfig struct {
	Addr           string
	PingInterval   time.Duration
	WriteWait      time.Duration
	MaxFrameBytes  int64
	SendBufferSize int
}

// ProviderConfig holds credentials for the external meeting/chat provider.
// Credentials are only ever read from the environment.
type ProviderConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	AccountID    string
	Timeout      time.Duration
	TokenCache   bool
}

// OutboxConfig tunes the provider sync worker.
type OutboxConfig struct {
	PollInterval   time.Duration
	BatchSize      int
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "orgchat-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			CORSOrigins:           getEnvAsList("APP_CORS_ORIGINS", []string{"*"}),
			UploadLimitBytes:      getEnvAsInt("APP_UPLOAD_LIMIT_BYTES", 10*1024*1024),
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
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 24*60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 10),
		},
		Relay: RelayConfig{
			Addr:           getEnv("RELAY_ADDR", "0.0.0.0:8081"),
			PingInterval:   getEnvAsDuration("RELAY_PING_INTERVAL", 30*time.Second),
			WriteWait:      getEnvAsDuration("RELAY_WRITE_WAIT", 10*time.Second),
			MaxFrameBytes:  int64(getEnvAsInt("RELAY_MAX_FRAME_BYTES", 1024*1024)),
			SendBufferSize: getEnvAsInt("RELAY_SEND_BUFFER", 256),
		},
		Provider: ProviderConfig{
			BaseURL:      getEnv("PROVIDER_BASE_URL", "https://api.zoom.us/v2"),
			TokenURL:     getEnv("PROVIDER_TOKEN_URL", "https://zoom.us/oauth/token"),
			ClientID:     os.Getenv("PROVIDER_CLIENT_ID"),
			ClientSecret: os.Getenv("PROVIDER_CLIENT_SECRET"),
			AccountID:    os.Getenv("PROVIDER_ACCOUNT_ID"),
			Timeout:      getEnvAsDuration("PROVIDER_TIMEOUT", 15*time.Second),
			TokenCache:   getEnvAsBool("PROVIDER_REDIS_TOKEN_CACHE", true),
		},
		Outbox: OutboxConfig{
			PollInterval:   getEnvAsDuration("OUTBOX_POLL_INTERVAL", 5*time.Second),
			BatchSize:      getEnvAsInt("OUTBOX_BATCH_SIZE", 20),
			MaxAttempts:    getEnvAsInt("OUTBOX_MAX_ATTEMPTS", 8),
			InitialBackoff: getEnvAsDuration("OUTBOX_INITIAL_BACKOFF", 2*time.Second),
			MaxBackoff:     getEnvAsDuration("OUTBOX_MAX_BACKOFF", 10*time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that are unsafe to run with.
func (c *Config) Validate() error {
	if c.App.Env == "production" && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == "dev-secret") {
		return errors.New("AUTH_JWT_SECRET must be set in production")
	}
	if c.Relay.PingInterval <= 0 {
		return errors.New("RELAY_PING_INTERVAL must be positive")
	}
	if c.Outbox.MaxAttempts <= 0 {
		return errors.New("OUTBOX_MAX_ATTEMPTS must be positive")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Enabled reports whether all provider credentials are present.
func (p ProviderConfig) Enabled() bool {
	return p.ClientID != "" && p.ClientSecret != "" && p.AccountID != ""
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
