package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTokenHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3ZfT2Zy6uKzAZ2Z1f6Xb9lK"

func validBaseConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			Env:            "development",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Store: StoreConfig{Driver: StoreMemory},
		Database: DatabaseConfig{
			Host:      "localhost",
			Port:      "8000",
			Namespace: "raidplan",
			Database:  "main",
		},
		Locks: LockConfig{
			Backend:       LockBackendMemory,
			TTL:           5 * time.Minute,
			SweepInterval: 30 * time.Second,
		},
		Redis:     RedisConfig{Addr: "localhost:6379"},
		Auth:      AuthConfig{ServiceTokenHash: testTokenHash},
		Lifecycle: LifecycleConfig{Interval: time.Minute},
		Notifier:  NotifierConfig{Buffer: 64, Heartbeat: 25 * time.Second},
	}
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	assert.NoError(t, validBaseConfig().Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"invalid env", func(c *Config) { c.Server.Env = "invalid" }, "SERVER_ENV"},
		{"missing port", func(c *Config) { c.Server.Port = "" }, "SERVER_PORT"},
		{"no origins", func(c *Config) { c.Server.AllowedOrigins = nil }, "CORS_ALLOWED_ORIGINS"},
		{"unknown store", func(c *Config) { c.Store.Driver = "mysql" }, "STORE_DRIVER"},
		{"memory store in production", func(c *Config) { c.Server.Env = "production" }, "not allowed in production"},
		{"surreal without host", func(c *Config) {
			c.Store.Driver = StoreSurrealDB
			c.Database.Host = ""
		}, "DB_HOST"},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = StorePostgres }, "POSTGRES_DSN"},
		{"unknown lock backend", func(c *Config) { c.Locks.Backend = "etcd" }, "LOCK_BACKEND"},
		{"redis without addr", func(c *Config) {
			c.Locks.Backend = LockBackendRedis
			c.Redis.Addr = ""
		}, "REDIS_ADDR"},
		{"zero lock ttl", func(c *Config) { c.Locks.TTL = 0 }, "LOCK_TTL"},
		{"zero sweep interval", func(c *Config) { c.Locks.SweepInterval = 0 }, "LOCK_SWEEP_INTERVAL"},
		{"kafka without brokers", func(c *Config) {
			c.Kafka.Enabled = true
			c.Kafka.Topic = "t"
		}, "KAFKA_BROKERS"},
		{"missing token hash", func(c *Config) { c.Auth.ServiceTokenHash = "" }, "SERVICE_TOKEN_HASH is required"},
		{"plaintext token", func(c *Config) { c.Auth.ServiceTokenHash = "hunter2" }, "bcrypt"},
		{"zero lifecycle interval", func(c *Config) { c.Lifecycle.Interval = 0 }, "LIFECYCLE_INTERVAL"},
		{"zero notifier buffer", func(c *Config) { c.Notifier.Buffer = 0 }, "NOTIFIER_BUFFER"},
		{"zero heartbeat", func(c *Config) { c.Notifier.Heartbeat = 0 }, "NOTIFIER_HEARTBEAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBaseConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_Validate_PersistentBackends(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Server.Env = "production"
	cfg.Store.Driver = StorePostgres
	cfg.Postgres.DSN = "postgres://raidplan@localhost/raidplan"
	cfg.Locks.Backend = LockBackendRedis
	cfg.Kafka = KafkaConfig{Enabled: true, Brokers: []string{"kafka:9092"}, Topic: "roster"}

	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Server.Port = ""
	cfg.Auth.ServiceTokenHash = ""
	cfg.Locks.Backend = "etcd"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVER_PORT")
	assert.Contains(t, err.Error(), "SERVICE_TOKEN_HASH")
	assert.Contains(t, err.Error(), "LOCK_BACKEND")
}

func TestConfig_EnvironmentHelpers(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Env: "development"}}
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	cfg.Server.Env = "production"
	assert.False(t, cfg.IsDevelopment())
	assert.True(t, cfg.IsProduction())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/raidplan")
	t.Setenv("LOCK_BACKEND", "redis")
	t.Setenv("LOCK_TTL", "90s")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("NOTIFIER_BUFFER", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, StorePostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/raidplan", cfg.Postgres.DSN)
	assert.Equal(t, LockBackendRedis, cfg.Locks.Backend)
	assert.Equal(t, 90*time.Second, cfg.Locks.TTL)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 64, cfg.Notifier.Buffer)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, LockBackendMemory, cfg.Locks.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Locks.TTL)
	assert.Equal(t, "raidplan.roster-changes", cfg.Kafka.Topic)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, 1024, cfg.Notifier.SinkBuffer)
	assert.Equal(t, 120, cfg.RateLimit.Rate)
	assert.Equal(t, 30, cfg.RateLimit.AnonymousRate)
}
