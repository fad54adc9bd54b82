package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pharmacie-web/backend/internal/adapters/cache"
	"github.com/pharmacie-web/backend/internal/adapters/catalog"
	"github.com/pharmacie-web/backend/internal/adapters/database"
	"github.com/pharmacie-web/backend/internal/adapters/events"
	"github.com/pharmacie-web/backend/internal/adapters/providers/scheduling"
	"github.com/pharmacie-web/backend/internal/api/handlers"
	"github.com/pharmacie-web/backend/internal/api/middleware"
	"github.com/pharmacie-web/backend/internal/api/routes"
	"github.com/pharmacie-web/backend/internal/application/services"
	"github.com/pharmacie-web/backend/internal/domain/providers"
	"github.com/pharmacie-web/backend/internal/domain/repositories"
	"github.com/pharmacie-web/backend/internal/infrastructure/clients/postgres"
	"github.com/pharmacie-web/backend/internal/infrastructure/clients/redis"
	"github.com/pharmacie-web/backend/internal/infrastructure/observability"
	"github.com/pharmacie-web/backend/pkg/config"
	"github.com/pharmacie-web/backend/pkg/secrets"
	"github.com/rs/zerolog/log"
)

const cacheKeyPrefix = "pharmacie:"

func main() {
	// Vault secrets land in the environment before it is read
	if _, err := secrets.ApplyVaultSecrets(context.Background(), secrets.LoadVaultConfigFromEnv()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load Vault secrets: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(observability.LoggerConfig{
		Service: cfg.OTEL.ServiceName,
		Version: cfg.OTEL.ServiceVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
	})

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	staticCatalog, err := catalog.Default()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load catalog")
	}
	catalogService := services.NewCatalogService(staticCatalog, staticCatalog)

	// Appointments are persisted only when PostgreSQL is enabled
	var appointmentRepo repositories.AppointmentRepository
	if cfg.Database.Enabled {
		pgClient, err := postgres.NewClient(ctx, &cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
		}
		defer pgClient.Close()

		if err := database.MigrateAppointments(ctx, pgClient); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate appointments table")
		}
		appointmentRepo = database.NewAppointmentAdapter(pgClient)
	}

	// Redis backs session snapshots, the HTTP cache and the event bus.
	// Without it everything stays in process.
	var (
		cacheProvider providers.CacheProvider
		eventBus      providers.EventBus
	)
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, continuing with in-memory sessions")
		} else {
			defer redisClient.Close()
			cacheProvider = cache.NewRedisAdapter(redisClient, cacheKeyPrefix)
			eventBus = events.NewRedisEventBus(redisClient)
		}
	}
	if eventBus == nil {
		eventBus = events.NewMemoryEventBus()
	}

	sink, err := scheduling.NewSubmissionSink(scheduling.SinkConfig{
		Kind:  cfg.Booking.Sink,
		Delay: cfg.Booking.SubmissionDelay,
	}, appointmentRepo)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create submission sink")
	}
	slotProvider := scheduling.NewSlotProvider(scheduling.SlotProviderConfig{
		Availability: cfg.Booking.SlotAvailability,
		Latency:      cfg.Booking.SlotLatency,
	}, appointmentRepo)

	deps := services.SessionDeps{
		Cache:   cacheProvider,
		Bus:     eventBus,
		Metrics: metrics,
		TTL:     cfg.Session.TTL,
	}

	var quizOpts []services.QuizEngineOption
	if cfg.Quiz.StrictNavigation {
		quizOpts = append(quizOpts, services.WithStrictNavigation())
	}

	schedulingService := services.NewSchedulingService(catalogService, slotProvider, appointmentRepo)
	bookingSessions := services.NewBookingSessionService(catalogService, slotProvider, sink, deps)
	quizSessions := services.NewQuizSessionService(catalogService, nil, deps, quizOpts...)

	bookingSessions.StartJanitor(ctx, cfg.Session.JanitorInterval)
	quizSessions.StartJanitor(ctx, cfg.Session.JanitorInterval)

	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider)
		log.Info().Msg("HTTP cache middleware enabled")
	}

	router := routes.NewRouter(
		handlers.NewCatalogHandler(catalogService),
		handlers.NewAppointmentHandler(schedulingService),
		handlers.NewBookingHandler(bookingSessions),
		handlers.NewQuizHandler(quizSessions),
		handlers.NewSSEHandler(eventBus),
		routes.Options{
			CacheMiddleware: cacheMiddleware,
			RateLimiter:     middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
			AllowedOrigins:  cfg.CORS.AllowedOrigins,
			Metrics:         metrics,
		},
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     router.SetupRoutes(),
		ReadTimeout: 15 * time.Second,
		// No write timeout: event streams stay open
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Str("env", cfg.Env).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}
	if err := eventBus.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing event bus")
	}

	log.Info().Msg("Server stopped")
}
