// Package config loads raidplan configuration from environment variables.
//
// Load never fails on malformed values; it falls back to the default for
// that key. Validate reports every problem at once via errors.Join:
//
//	cfg, _ := config.Load()
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Backends
//
// STORE_DRIVER picks where events and participant profiles live:
//
//	memory     - process memory, development and tests only
//	surrealdb  - DB_HOST, DB_PORT, DB_NAMESPACE, DB_DATABASE, DB_USER, DB_PASSWORD
//	postgres   - POSTGRES_DSN
//
// LOCK_BACKEND picks where draft locks live (memory or redis, the latter
// using REDIS_ADDR, REDIS_PASSWORD and REDIS_DB). Lock expiry is LOCK_TTL;
// LOCK_SWEEP_INTERVAL drives the reclaim job.
//
// # Change feed
//
// With KAFKA_ENABLED=true every roster change is also produced to
// KAFKA_TOPIC on KAFKA_BROKERS (comma separated).
//
// # Auth
//
// SERVICE_TOKEN_HASH is a bcrypt hash of the bot's bearer token. Generate
// one with cmd/admin-token.
package config
