package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/quizdrop/quizdrop-backend/internal/config"
	"github.com/quizdrop/quizdrop-backend/internal/handler"
	"github.com/quizdrop/quizdrop-backend/internal/logger"
	"github.com/quizdrop/quizdrop-backend/internal/router"
	"github.com/quizdrop/quizdrop-backend/internal/service"
	"github.com/quizdrop/quizdrop-backend/internal/store"
	"github.com/quizdrop/quizdrop-backend/internal/validator"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("data_dir", cfg.DataDir).
		Msg("Starting QuizDrop Backend")

	if cfg.RestoreSecret == "" {
		log.Warn().Msg("RESTORE_PASS is not set; the restore endpoint is disabled")
	}

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	// ─── Initialize Content Store ──────────────────────────────────────
	st := store.New(cfg.DataDir, log)
	if err := st.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage directories")
	}

	// ─── Initialize Services ──────────────────────────────────────────
	quizService := service.NewQuizService(st, cfg, log)
	archiveService := service.NewArchiveService(st, cfg, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Quiz:    handler.NewQuizHandler(quizService, cfg),
		Archive: handler.NewArchiveHandler(archiveService, cfg, log),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, cfg)

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

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
