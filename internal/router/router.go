package router

import (
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/talentgate/talentgate-backend/internal/config"
	"github.com/talentgate/talentgate-backend/internal/handler"
	"github.com/talentgate/talentgate-backend/internal/middleware"
	"github.com/talentgate/talentgate-backend/internal/model"
	"github.com/talentgate/talentgate-backend/internal/response"
	"github.com/talentgate/talentgate-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth            *handler.AuthHandler
	CandidatePortal *handler.CandidatePortalHandler
	Job             *handler.JobHandler
	Application     *handler.ApplicationHandler
	AssessmentWS    *handler.AssessmentWSHandler
	Monitor         *handler.MonitorHandler
	Dashboard       *handler.DashboardHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli(brotli.DefaultCompression))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/candidate/register", handlers.Auth.RegisterCandidate)
		auth.POST("/candidate/login", handlers.Auth.CandidateLogin)
		auth.POST("/admin/login", handlers.Auth.AdminLogin)

		// Authenticated profile routes
		auth.POST("/candidate/logout", middleware.RequireCandidateJWT(authService), handlers.Auth.CandidateLogout)
		auth.GET("/candidate/me", middleware.RequireCandidateJWT(authService), handlers.Auth.GetCandidateProfile)
		auth.GET("/admin/me", middleware.RequireAdminJWT(authService), handlers.Auth.GetAdminProfile)
	}

	// ─── 2. Candidate Group (JWT + Single Device) ──────────────────────
	candidateAPI := router.Group("/api/v1/candidate")
	candidateAPI.Use(
		middleware.RequireCandidateJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		candidateAPI.GET("/jobs", handlers.CandidatePortal.ListOpenJobs)
		candidateAPI.GET("/jobs/:job_id", handlers.CandidatePortal.GetJob)
		candidateAPI.POST("/jobs/:job_id/apply", handlers.CandidatePortal.Apply)
		candidateAPI.GET("/applications", handlers.CandidatePortal.ListMyApplications)
		candidateAPI.GET("/applications/:application_id/assessment", handlers.CandidatePortal.GetAssessmentState)
	}

	// ─── 3. WebSocket Group (Candidate WS Auth) ────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireCandidateWSAuth(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		ws.GET("/candidate/applications/:application_id/assessment", handlers.AssessmentWS.Stream)
	}

	// ─── 4. Admin Group (JWT + RBAC) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		// Job management
		adminAPI.GET("/jobs",
			middleware.RequirePermission(string(model.PermissionJobsRead)),
			handlers.Job.List,
		)
		adminAPI.POST("/jobs",
			middleware.RequirePermission(string(model.PermissionJobsWrite)),
			handlers.Job.Create,
		)
		adminAPI.GET("/jobs/:job_id",
			middleware.RequirePermission(string(model.PermissionJobsRead)),
			handlers.Job.Get,
		)
		adminAPI.PUT("/jobs/:job_id",
			middleware.RequirePermission(string(model.PermissionJobsWrite)),
			handlers.Job.Update,
		)
		adminAPI.DELETE("/jobs/:job_id",
			middleware.RequirePermission(string(model.PermissionJobsWrite)),
			handlers.Job.Delete,
		)
		adminAPI.GET("/jobs/:job_id/questions",
			middleware.RequirePermission(string(model.PermissionJobsRead)),
			handlers.Job.ListQuestions,
		)
		adminAPI.PUT("/jobs/:job_id/questions",
			middleware.RequirePermission(string(model.PermissionJobsWrite)),
			handlers.Job.ReplaceQuestions,
		)
		adminAPI.POST("/jobs/:job_id/open",
			middleware.RequirePermission(string(model.PermissionJobsWrite)),
			handlers.Job.Open,
		)
		adminAPI.POST("/jobs/:job_id/close",
			middleware.RequirePermission(string(model.PermissionJobsWrite)),
			handlers.Job.Close,
		)

		// Application pipeline
		adminAPI.GET("/jobs/:job_id/applications",
			middleware.RequirePermission(string(model.PermissionApplicationsRead)),
			handlers.Application.ListByJob,
		)
		adminAPI.POST("/applications/:application_id/invite",
			middleware.RequirePermission(string(model.PermissionApplicationsInvite)),
			handlers.Application.Invite,
		)
		adminAPI.GET("/applications/:application_id/submission",
			middleware.RequirePermission(string(model.PermissionSubmissionsRead)),
			handlers.Application.GetSubmission,
		)
		adminAPI.GET("/applications/:application_id/integrity-events",
			middleware.RequirePermission(string(model.PermissionSubmissionsRead)),
			handlers.Application.GetIntegrityEvents,
		)

		// Live assessment monitor
		adminAPI.GET("/jobs/:job_id/monitor",
			middleware.RequirePermission(string(model.PermissionAssessmentsMonitor)),
			handlers.Monitor.MonitorJobSSE,
		)

		// Dashboard
		adminAPI.GET("/dashboard",
			handlers.Dashboard.GetDashboard, // Open to all admins
		)
	}

	return router
}
