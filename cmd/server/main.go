package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thptprep/engprep-backend/internal/client"
	"github.com/thptprep/engprep-backend/internal/config"
	"github.com/thptprep/engprep-backend/internal/database"
	"github.com/thptprep/engprep-backend/internal/guard"
	"github.com/thptprep/engprep-backend/internal/handler"
	"github.com/thptprep/engprep-backend/internal/logger"
	"github.com/thptprep/engprep-backend/internal/repository"
	"github.com/thptprep/engprep-backend/internal/router"
	"github.com/thptprep/engprep-backend/internal/service"
	"github.com/thptprep/engprep-backend/internal/store"
	redisstore "github.com/thptprep/engprep-backend/internal/store/redis"
	"github.com/thptprep/engprep-backend/internal/validator"
	"github.com/thptprep/engprep-backend/internal/worker"
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
		Msg("Starting EngPrep Backend")

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
	questionRepo := repository.NewQuestionRepository(pool)
	submissionRepo := repository.NewSubmissionRepository(pool)
	reviewRepo := repository.NewReviewRepository(pool)
	answerRepo := repository.NewAttemptAnswerRepository(pool)

	// ─── Session Store and Guard ───────────────────────────────────────
	sessions := redisstore.NewStore(rdb, cfg.AttemptTTL, log)
	debouncer := store.NewChatDebouncer(sessions, cfg.ChatFlushInterval)
	guards := guard.NewRegistry()

	// ─── Outbound Clients ──────────────────────────────────────────────
	identityClient := client.NewIdentityClient(cfg)
	chatClient := client.NewChatClient(cfg)
	genClient := client.NewGenClient(cfg)
	extractClient := client.NewExtractClient(cfg)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(identityClient, cfg, rdb, log)
	examService := service.NewExamService(questionRepo, log)
	attemptService := service.NewAttemptService(examService, sessions, debouncer, guards, submissionRepo, rdb, cfg, log)
	chatService := service.NewChatService(sessions, debouncer, chatClient, log)
	reviewService := service.NewReviewService(reviewRepo, log)
	materialService := service.NewMaterialService(extractClient, genClient, questionRepo, cfg, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Attempt:    handler.NewAttemptHandler(attemptService, chatService, guards, cfg),
		Submission: handler.NewSubmissionHandler(attemptService, submissionRepo),
		Chat:       handler.NewChatHandler(chatService),
		Review:     handler.NewReviewHandler(reviewService),
		Material:   handler.NewMaterialHandler(materialService, cfg),
		WS:         handler.NewWSHandler(attemptService, cfg, log),
		System:     handler.NewSystemHandler(pool, rdb),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	autosaveWorker := worker.NewAutosaveWorker(answerRepo, rdb, log)
	reviewWorker := worker.NewReviewWorker(reviewRepo, rdb, log)

	go autosaveWorker.Start(workerCtx)
	go reviewWorker.Start(workerCtx)

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

	// 2. Flush pending chat transcripts.
	debouncer.Close()

	// 3. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}
