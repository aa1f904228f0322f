package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/forgo/raidplan/api/internal/config"
	"github.com/forgo/raidplan/api/internal/database"
	"github.com/forgo/raidplan/api/internal/handler"
	"github.com/forgo/raidplan/api/internal/jobs"
	"github.com/forgo/raidplan/api/internal/messaging"
	"github.com/forgo/raidplan/api/internal/middleware"
	"github.com/forgo/raidplan/api/internal/repository"
	"github.com/forgo/raidplan/api/internal/service"
)

// participantStore is what the participant registry and the assignment
// availability check need from a backend
type participantStore interface {
	service.ParticipantRegistry
	service.AvailabilityChecker
}

// backends holds the selected stores plus their shutdown and health hooks
type backends struct {
	events       service.EventStore
	participants participantStore
	locks        service.LockStore
	checks       map[string]handler.HealthCheck
	closers      []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func main() {
	// Initialize structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	stores, err := openBackends(ctx, cfg)
	if err != nil {
		slog.Error("failed to open backends", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer stores.close()

	// Change feed sinks
	var sinks []service.ChangeSink
	var kafkaFeed *messaging.KafkaChangeFeed
	if cfg.Kafka.Enabled {
		kafkaFeed, err = messaging.NewKafkaChangeFeed(ctx, messaging.KafkaConfig{
			Brokers:  cfg.Kafka.Brokers,
			Topic:    cfg.Kafka.Topic,
			ClientID: cfg.Kafka.ClientID,
		}, logger)
		if err != nil {
			slog.Error("failed to connect to kafka", slog.String("error", err.Error()))
			os.Exit(1)
		}
		sinks = append(sinks, kafkaFeed)
		slog.Info("roster change feed enabled", slog.String("topic", cfg.Kafka.Topic))
	}

	// Initialize services
	notifier := service.NewChangeNotifier(service.NotifierConfig{
		Buffer:     cfg.Notifier.Buffer,
		SinkBuffer: cfg.Notifier.SinkBuffer,
		Heartbeat:  cfg.Notifier.Heartbeat,
	}, logger, sinks...)
	lockManager := service.NewDraftLockManager(stores.locks, cfg.Locks.TTL, logger)
	lifecycle := service.NewLifecycleController(stores.events, lockManager, notifier, logger)
	eventService := service.NewEventService(stores.events, lockManager, lifecycle, notifier, logger)
	coordinator := service.NewAssignmentCoordinator(
		stores.events, lockManager, stores.participants, stores.participants, notifier, logger,
	)
	participantService := service.NewParticipantService(stores.participants, logger)

	// Background jobs
	lockSweeper := jobs.NewLockSweeper(lockManager, cfg.Locks.SweepInterval, logger)
	statusProcessor := jobs.NewEventStatusProcessor(lifecycle, cfg.Lifecycle.Interval, logger)
	lockSweeper.Start()
	statusProcessor.Start()

	// Initialize handlers
	handlers := handler.Handlers{
		Health:       handler.NewHealthHandler(stores.checks),
		Events:       handler.NewEventHandler(eventService),
		Locks:        handler.NewLockHandler(eventService),
		Assignments:  handler.NewAssignmentHandler(coordinator),
		Participants: handler.NewParticipantHandler(participantService),
		Stream:       handler.NewStreamHandler(eventService, notifier),
	}

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Rate:          cfg.RateLimit.Rate,
		AnonymousRate: cfg.RateLimit.AnonymousRate,
		Window:        cfg.RateLimit.Window,
		Burst:         cfg.RateLimit.Burst,
	})
	defer rateLimiter.Stop()

	idempotencyStore := middleware.NewIdempotencyStore(middleware.IdempotencyConfig{
		TTL: cfg.Idempotency.TTL,
	})
	defer idempotencyStore.Stop()

	router := handler.NewRouter(handlers, handler.RouterConfig{
		Verifier:       middleware.NewServiceTokenVerifier(cfg.Auth.ServiceTokenHash),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimiter:    rateLimiter,
		Idempotency:    idempotencyStore,
	})

	// WriteTimeout stays at the configured value; zero keeps change streams open
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server",
			slog.String("port", cfg.Server.Port),
			slog.String("env", cfg.Server.Env),
			slog.String("store", cfg.Store.Driver),
			slog.String("locks", cfg.Locks.Backend),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Closing the notifier ends open change streams so Shutdown can drain
	notifier.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", slog.String("error", err.Error()))
	}

	lockSweeper.Stop()
	statusProcessor.Stop()

	if kafkaFeed != nil {
		if err := kafkaFeed.Close(); err != nil {
			slog.Error("failed to flush change feed", slog.String("error", err.Error()))
		}
	}

	slog.Info("server exited")
}

// openBackends connects the configured event, participant and lock stores
func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	b := &backends{checks: make(map[string]handler.HealthCheck)}

	switch cfg.Store.Driver {
	case config.StoreSurrealDB:
		db := database.NewSurrealDB(database.Config{
			Host:      cfg.Database.Host,
			Port:      cfg.Database.Port,
			User:      cfg.Database.User,
			Password:  cfg.Database.Password,
			Namespace: cfg.Database.Namespace,
			Database:  cfg.Database.Database,
		})
		if err := db.Connect(ctx); err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = db.Close() })
		b.checks["surrealdb"] = db.Ping
		b.events = repository.NewSurrealEventStore(db)
		b.participants = repository.NewSurrealParticipantDirectory(db)

		slog.Info("connected to surrealdb",
			slog.String("host", cfg.Database.Host),
			slog.String("database", cfg.Database.Database),
		)

	case config.StorePostgres:
		pgCfg := database.DefaultPostgresConfig(cfg.Postgres.DSN)
		pgCfg.MaxConns = int32(cfg.Postgres.MaxConns)
		pool, err := database.NewPostgres(ctx, pgCfg)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		b.checks["postgres"] = pool.Ping

		events := repository.NewPostgresEventStore(pool)
		participants := repository.NewPostgresParticipantDirectory(pool)
		if err := events.Migrate(ctx); err != nil {
			b.close()
			return nil, err
		}
		if err := participants.Migrate(ctx); err != nil {
			b.close()
			return nil, err
		}
		b.events = events
		b.participants = participants

		slog.Info("connected to postgres")

	default:
		slog.Warn("using in-memory event store; data is lost on restart")
		b.events = repository.NewMemoryEventStore()
		b.participants = repository.NewMemoryParticipantDirectory()
	}

	switch cfg.Locks.Backend {
	case config.LockBackendRedis:
		client, err := database.NewRedis(ctx, database.RedisConfig{
			Addr:          cfg.Redis.Addr,
			Password:      cfg.Redis.Password,
			DB:            cfg.Redis.DB,
			DialTimeout:   5 * time.Second,
			MaxRetries:    3,
			RetryInterval: 2 * time.Second,
		})
		if err != nil {
			b.close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = client.Close() })
		b.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		b.locks = repository.NewRedisLockStore(client, cfg.Locks.KeyPrefix)

		slog.Info("connected to redis", slog.String("addr", cfg.Redis.Addr))

	default:
		b.locks = repository.NewMemoryLockStore()
	}

	return b, nil
}
