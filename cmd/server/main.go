package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/edutest/internal/apiclient"
	"github.com/stemsi/edutest/internal/auth"
	"github.com/stemsi/edutest/internal/checkpoint"
	"github.com/stemsi/edutest/internal/config"
	"github.com/stemsi/edutest/internal/database"
	"github.com/stemsi/edutest/internal/handler"
	"github.com/stemsi/edutest/internal/logger"
	"github.com/stemsi/edutest/internal/middleware"
	"github.com/stemsi/edutest/internal/router"
	"github.com/stemsi/edutest/internal/session"
	"github.com/stemsi/edutest/internal/validator"
	"github.com/stemsi/edutest/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("api", cfg.APIBaseURL).
		Msg("Starting test agent")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to Redis (optional) ───────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	var (
		authStore auth.Store
		cpStore   session.Checkpointer
	)
	if rdb != nil {
		defer rdb.Close()
		authStore = auth.NewRedisStore(rdb)
		cpStore = checkpoint.NewRedisStore(rdb, cfg.CheckpointTTL)
	} else {
		authStore = auth.NewMemoryStore()
		cpStore = checkpoint.NewMemoryStore()
	}

	// ─── Credentials & API Client ──────────────────────────────────────
	creds := auth.NewSession(authStore, log)
	client := apiclient.New(cfg.APIBaseURL, cfg.APITimeout, creds, log)

	if err := creds.Init(ctx, client); err != nil {
		log.Warn().Err(err).Msg("Stored credentials discarded, sign in again")
	} else if u := creds.User(); u != nil {
		log.Info().Str("user_id", u.ID).Msg("Restored signed-in user")
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	autosaveWorker := worker.NewAutosaveWorker(cpStore, log)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		autosaveWorker.Start(workerCtx)
	}()

	startLimiter := middleware.NewRateLimiter(cfg.StartRateLimit, time.Minute)
	go func() {
		t := time.NewTicker(5 * time.Minute)
		defer t.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-t.C:
				startLimiter.Cleanup()
			}
		}
	}()

	// ─── Session Engine ────────────────────────────────────────────────
	manager := session.NewManager(client, autosaveWorker, session.ManagerConfig{
		TickInterval: cfg.TickInterval,
	}, log)
	// Attempts belong to the signed-in student; drop them when that changes.
	creds.OnClear(manager.CloseAll)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:    handler.NewAuthHandler(client, creds, log),
		Session: handler.NewSessionHandler(manager, client, log),
		WS:      handler.NewWSHandler(manager, log, cfg.AllowedOrigins),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, creds, startLimiter, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
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

	// 2. Stop timers. Checkpoints stay in the store for the next run.
	manager.CloseAll()

	// 3. Stop background workers and wait for the queue to drain.
	workerCancel()
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("Autosave queue did not drain in time")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
