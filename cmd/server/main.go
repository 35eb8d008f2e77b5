package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/rag-assistant/internal/api"
	"github.com/Rrens/rag-assistant/internal/config"
	"github.com/Rrens/rag-assistant/internal/logger"
	"github.com/Rrens/rag-assistant/internal/repository/redis"
	"github.com/Rrens/rag-assistant/internal/scheduler"
)

func main() {
	// Load .env file - try multiple locations
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			fmt.Printf("Loaded .env from: %s\n", p)
			break
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Setup(cfg.Logging); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("llm_provider", cfg.LLM.DefaultProvider).
		Bool("remote_search", cfg.Search.Remote.Enabled()).
		Msg("Starting RAG assistant API server")

	ctx := context.Background()

	// Redis is optional; without it caches and rate limits stay in process
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
	}

	deps, err := api.NewDeps(ctx, cfg, redisClient)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer deps.Close()

	// Load or build the local index before traffic depends on it
	go deps.Retrieval.Warm(context.Background())

	// Background cleanup
	sched := scheduler.New()
	if cfg.Cleanup.Enabled {
		jobs := []scheduler.Job{
			&scheduler.FileSweepJob{Files: deps.Files, MaxAge: cfg.Files.MaxAge, ScheduleExpr: cfg.Cleanup.Schedule},
			&scheduler.SessionSweepJob{Sessions: deps.Memory, ScheduleExpr: cfg.Cleanup.Schedule},
		}
		for _, job := range jobs {
			if err := sched.Register(job); err != nil {
				log.Fatal().Err(err).Msg("Failed to register cleanup job")
			}
		}
		if err := sched.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(cfg, deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Scheduler did not stop in time")
	}

	log.Info().Msg("Server stopped")
}
