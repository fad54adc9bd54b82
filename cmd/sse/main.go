// Command sse serves the booking and quiz event streams on their own port.
// It reads events from Redis, so it needs REDIS_ENABLED=true and the API
// pointed at the same Redis instance.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pharmacie-web/backend/internal/adapters/events"
	"github.com/pharmacie-web/backend/internal/api/handlers"
	"github.com/pharmacie-web/backend/internal/api/middleware"
	"github.com/pharmacie-web/backend/internal/infrastructure/clients/redis"
	"github.com/pharmacie-web/backend/internal/infrastructure/observability"
	"github.com/pharmacie-web/backend/pkg/config"
	"github.com/pharmacie-web/backend/pkg/secrets"
	"github.com/rs/zerolog/log"
)

func main() {
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
		Service: cfg.OTEL.ServiceName + "-sse",
		Version: cfg.OTEL.ServiceVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !cfg.Redis.Enabled {
		log.Fatal().Msg("The stream server needs REDIS_ENABLED=true")
	}
	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Redis client")
	}
	defer redisClient.Close()

	eventBus := events.NewRedisEventBus(redisClient)
	sseHandler := handlers.NewSSEHandler(eventBus)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /api/stream/bookings", sseHandler.StreamBookings)
	mux.HandleFunc("GET /api/stream/quizzes", sseHandler.StreamQuizzes)
	mux.HandleFunc("GET /api/stream/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]int{"connected_clients": sseHandler.GetClientCount()})
	})

	var handler http.Handler = mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.CORSMiddleware(cfg.CORS.AllowedOrigins)(handler)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// No write timeout for streaming
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("Stream server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Stream server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Stream server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}
	if err := eventBus.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing event bus")
	}

	log.Info().Msg("Stream server stopped")
}
