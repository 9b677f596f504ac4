package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/talentgate/talentgate-backend/internal/config"
	"github.com/talentgate/talentgate-backend/internal/database"
	"github.com/talentgate/talentgate-backend/internal/handler"
	"github.com/talentgate/talentgate-backend/internal/logger"
	"github.com/talentgate/talentgate-backend/internal/repository"
	"github.com/talentgate/talentgate-backend/internal/router"
	"github.com/talentgate/talentgate-backend/internal/service"
	"github.com/talentgate/talentgate-backend/internal/validator"
	"github.com/talentgate/talentgate-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup("talentgate-api", cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting TalentGate Backend")

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
	candidateRepo := repository.NewCandidateRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	jobRepo := repository.NewJobRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	applicationRepo := repository.NewApplicationRepository(pool)
	assessmentRepo := repository.NewAssessmentRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)
	monitorRepo := repository.NewMonitorRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb, candidateRepo, adminRepo)
	jobService := service.NewJobService(jobRepo, questionRepo, rdb, log)
	applicationService := service.NewApplicationService(applicationRepo, jobRepo, log)
	submissionService := service.NewSubmissionService(assessmentRepo, applicationRepo, rdb, log)
	sessionService := service.NewSessionService(cfg, jobService, submissionService, assessmentRepo, applicationRepo, rdb, log)
	monitorService := service.NewMonitorService(monitorRepo, sessionService)
	dashboardService := service.NewDashboardService(dashboardRepo)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:            handler.NewAuthHandler(authService),
		CandidatePortal: handler.NewCandidatePortalHandler(jobService, applicationService, sessionService),
		Job:             handler.NewJobHandler(jobService),
		Application:     handler.NewApplicationHandler(applicationService, submissionService),
		AssessmentWS:    handler.NewAssessmentWSHandler(applicationService, sessionService, log, cfg.AllowedOrigins),
		Monitor:         handler.NewMonitorHandler(rdb, jobService, monitorService, log),
		Dashboard:       handler.NewDashboardHandler(dashboardService),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	integrityWorker := worker.NewIntegrityWorker(pool, rdb, log)
	scoringWorker := worker.NewScoringWorker(assessmentRepo, questionRepo, rdb, cfg, log)

	go integrityWorker.Start(workerCtx)
	go scoringWorker.Start(workerCtx)

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load all open job payloads into Redis BEFORE accepting traffic.
	// This avoids race conditions from lazy loading under thundering herd.
	if err := jobService.PrewarmAllCaches(ctx); err != nil {
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

	// 2. Close live assessment sessions and release their Redis claims so
	//    candidates can resume on another instance.
	sessionService.Shutdown(shutdownCtx)

	// 3. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
