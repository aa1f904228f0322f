package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers
const (
	StoreMemory    = "memory"
	StoreSurrealDB = "surrealdb"
	StorePostgres  = "postgres"
)

// Lock backends
const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig
	Store       StoreConfig
	Database    DatabaseConfig
	Postgres    PostgresConfig
	Locks       LockConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Auth        AuthConfig
	Lifecycle   LifecycleConfig
	Notifier    NotifierConfig
	RateLimit   RateLimitConfig
	Idempotency IdempotencyConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           string
	Env            string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// StoreConfig selects where events and participants live
type StoreConfig struct {
	Driver string
}

// DatabaseConfig holds SurrealDB connection settings
type DatabaseConfig struct {
	Host      string
	Port      string
	Namespace string
	Database  string
	User      string
	Password  string
}

// PostgresConfig holds PostgreSQL settings
type PostgresConfig struct {
	DSN      string
	MaxConns int
}

// LockConfig holds draft lock settings
type LockConfig struct {
	Backend       string
	TTL           time.Duration
	SweepInterval time.Duration
	KeyPrefix     string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds the roster change feed settings
type KafkaConfig struct {
	Enabled  bool
	Brokers  []string
	Topic    string
	ClientID string
}

// AuthConfig holds service authentication settings
type AuthConfig struct {
	// ServiceTokenHash is the bcrypt hash of the shared bot token
	ServiceTokenHash string
}

// LifecycleConfig holds the status advancement job settings
type LifecycleConfig struct {
	Interval time.Duration
}

// NotifierConfig holds change stream settings
type NotifierConfig struct {
	Buffer     int
	SinkBuffer int
	Heartbeat  time.Duration
}

// RateLimitConfig holds per-caller rate limits
type RateLimitConfig struct {
	Rate int
	// AnonymousRate applies to callers without a verified team leader
	AnonymousRate int
	Window        time.Duration
	Burst         int
}

// IdempotencyConfig holds Idempotency-Key retention
type IdempotencyConfig struct {
	TTL time.Duration
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Env:            getEnv("SERVER_ENV", "development"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 0),
			AllowedOrigins: getSliceEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getEnv("STORE_DRIVER", StoreMemory)),
		},
		Database: DatabaseConfig{
			Host:      getEnv("DB_HOST", "localhost"),
			Port:      getEnv("DB_PORT", "8000"),
			Namespace: getEnv("DB_NAMESPACE", "raidplan"),
			Database:  getEnv("DB_DATABASE", "main"),
			User:      getEnv("DB_USER", "root"),
			Password:  getEnv("DB_PASSWORD", "root"),
		},
		Postgres: PostgresConfig{
			DSN:      getEnv("POSTGRES_DSN", ""),
			MaxConns: getIntEnv("POSTGRES_MAX_CONNS", 20),
		},
		Locks: LockConfig{
			Backend:       strings.ToLower(getEnv("LOCK_BACKEND", LockBackendMemory)),
			TTL:           getDurationEnv("LOCK_TTL", 5*time.Minute),
			SweepInterval: getDurationEnv("LOCK_SWEEP_INTERVAL", 30*time.Second),
			KeyPrefix:     getEnv("LOCK_KEY_PREFIX", "raidplan:lock"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Enabled:  getBoolEnv("KAFKA_ENABLED", false),
			Brokers:  getSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:    getEnv("KAFKA_TOPIC", "raidplan.roster-changes"),
			ClientID: getEnv("KAFKA_CLIENT_ID", "raidplan-api"),
		},
		Auth: AuthConfig{
			ServiceTokenHash: getEnv("SERVICE_TOKEN_HASH", ""),
		},
		Lifecycle: LifecycleConfig{
			Interval: getDurationEnv("LIFECYCLE_INTERVAL", time.Minute),
		},
		Notifier: NotifierConfig{
			Buffer:     getIntEnv("NOTIFIER_BUFFER", 64),
			SinkBuffer: getIntEnv("NOTIFIER_SINK_BUFFER", 1024),
			Heartbeat:  getDurationEnv("NOTIFIER_HEARTBEAT", 25*time.Second),
		},
		RateLimit: RateLimitConfig{
			Rate:          getIntEnv("RATE_LIMIT_RATE", 120),
			AnonymousRate: getIntEnv("RATE_LIMIT_ANONYMOUS_RATE", 30),
			Window:        getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
			Burst:         getIntEnv("RATE_LIMIT_BURST", 30),
		},
		Idempotency: IdempotencyConfig{
			TTL: getDurationEnv("IDEMPOTENCY_TTL", 24*time.Hour),
		},
	}, nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// It returns an error describing all validation failures, or nil if valid.
func (c *Config) Validate() error {
	var errs []error

	// Server validation
	if c.Server.Port == "" {
		errs = append(errs, errors.New("SERVER_PORT is required"))
	}
	if c.Server.Env != "development" && c.Server.Env != "production" && c.Server.Env != "test" {
		errs = append(errs, fmt.Errorf("SERVER_ENV must be 'development', 'production', or 'test', got '%s'", c.Server.Env))
	}
	if len(c.Server.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must have at least one origin"))
	}

	// Store validation
	switch c.Store.Driver {
	case StoreMemory:
		if c.IsProduction() {
			errs = append(errs, errors.New("STORE_DRIVER 'memory' is not allowed in production"))
		}
	case StoreSurrealDB:
		if err := c.Database.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("SurrealDB: %w", err))
		}
	case StorePostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required when STORE_DRIVER is 'postgres'"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be 'memory', 'surrealdb', or 'postgres', got '%s'", c.Store.Driver))
	}

	// Lock validation
	switch c.Locks.Backend {
	case LockBackendMemory:
	case LockBackendRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when LOCK_BACKEND is 'redis'"))
		}
	default:
		errs = append(errs, fmt.Errorf("LOCK_BACKEND must be 'memory' or 'redis', got '%s'", c.Locks.Backend))
	}
	if c.Locks.TTL <= 0 {
		errs = append(errs, errors.New("LOCK_TTL must be positive"))
	}
	if c.Locks.SweepInterval <= 0 {
		errs = append(errs, errors.New("LOCK_SWEEP_INTERVAL must be positive"))
	}

	// Kafka validation
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true"))
		}
		if c.Kafka.Topic == "" {
			errs = append(errs, errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true"))
		}
	}

	// Auth validation - every /v1 route needs the hash
	if c.Auth.ServiceTokenHash == "" {
		errs = append(errs, errors.New("SERVICE_TOKEN_HASH is required"))
	} else if !strings.HasPrefix(c.Auth.ServiceTokenHash, "$2") {
		errs = append(errs, errors.New("SERVICE_TOKEN_HASH must be a bcrypt hash"))
	}

	if c.Lifecycle.Interval <= 0 {
		errs = append(errs, errors.New("LIFECYCLE_INTERVAL must be positive"))
	}
	if c.Notifier.Buffer <= 0 {
		errs = append(errs, errors.New("NOTIFIER_BUFFER must be positive"))
	}
	if c.Notifier.Heartbeat <= 0 {
		errs = append(errs, errors.New("NOTIFIER_HEARTBEAT must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks that all required SurrealDB fields are present
func (d DatabaseConfig) Validate() error {
	var missing []string
	if d.Host == "" {
		missing = append(missing, "DB_HOST")
	}
	if d.Port == "" {
		missing = append(missing, "DB_PORT")
	}
	if d.Namespace == "" {
		missing = append(missing, "DB_NAMESPACE")
	}
	if d.Database == "" {
		missing = append(missing, "DB_DATABASE")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := parts[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
