package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lexprep/barprep-backend/internal/config"
	"github.com/lexprep/barprep-backend/internal/database"
	"github.com/lexprep/barprep-backend/internal/handler"
	"github.com/lexprep/barprep-backend/internal/logger"
	"github.com/lexprep/barprep-backend/internal/progress"
	"github.com/lexprep/barprep-backend/internal/repository"
	"github.com/lexprep/barprep-backend/internal/router"
	"github.com/lexprep/barprep-backend/internal/service"
	"github.com/lexprep/barprep-backend/internal/timer"
	"github.com/lexprep/barprep-backend/internal/validator"
	"github.com/lexprep/barprep-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting BarPrep Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)

	// ─── Initialize Session State Stores ───────────────────────────────
	progressStore := progress.NewStore(progress.NewRedisKV(rdb))
	// Anchors outlive the countdown by the snapshot TTL so a taker who
	// walks out mid-exam can still resume for a while.
	anchorStore := timer.NewRedisAnchorStore(rdb, cfg.SnapshotTTL)
	engine := timer.NewEngine(anchorStore)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb, userRepo)
	catalogService := service.NewCatalogService(examRepo, questionRepo, attemptRepo, rdb, log)
	runnerService := service.NewRunnerService(catalogService, questionRepo, attemptRepo, progressStore, engine, rdb, cfg, log)
	resultsService := service.NewResultsService(examRepo, questionRepo, attemptRepo, rdb, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:    handler.NewAuthHandler(authService),
		Catalog: handler.NewCatalogHandler(catalogService),
		Runner:  handler.NewRunnerHandler(catalogService, runnerService),
		Results: handler.NewResultsHandler(resultsService),
		WS:      handler.NewWSHandler(catalogService, runnerService, engine, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	attemptWorker := worker.NewAttemptWorker(pool, rdb, log)
	go attemptWorker.Start(workerCtx)

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load every exam payload into Redis BEFORE accepting traffic. This
	// avoids race conditions from lazy loading under thundering herd.
	if err := catalogService.PrewarmAllCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
