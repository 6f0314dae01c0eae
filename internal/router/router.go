package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/thptprep/engprep-backend/internal/config"
	"github.com/thptprep/engprep-backend/internal/handler"
	"github.com/thptprep/engprep-backend/internal/middleware"
	"github.com/thptprep/engprep-backend/internal/response"
	"github.com/thptprep/engprep-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Attempt    *handler.AttemptHandler
	Submission *handler.SubmissionHandler
	Chat       *handler.ChatHandler
	Review     *handler.ReviewHandler
	Material   *handler.MaterialHandler
	WS         *handler.WSHandler
	System     *handler.SystemHandler
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

	// Request ID first so every response carries metadata.
	router.Use(response.RequestIDMiddleware())

	// Exam payloads compress well; 1 KiB floor skips tiny envelopes.
	router.Use(middleware.Brotli(1024))

	// Health check.
	router.GET("/health", handlers.System.Health)

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)
	// AI-backed routes cost an upstream call each.
	aiLimiter := middleware.NewRateLimiter(20, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/login", handlers.Auth.Login)
		auth.POST("/logout", middleware.RequireUser(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireUser(authService), handlers.Auth.Me)
	}

	// ─── 2. Exam Group (JWT) ───────────────────────────────────────────
	// Attempt state must never be cached between sessions.
	examAPI := router.Group("/api/v1")
	examAPI.Use(middleware.RequireUser(authService), middleware.NoStore())
	{
		examAPI.POST("/exams", handlers.Attempt.CreateExam)
		examAPI.GET("/exams/:exam_id", handlers.Attempt.Resume)
		examAPI.POST("/exams/:exam_id/start", handlers.Attempt.Start)
		examAPI.POST("/exams/:exam_id/answers", handlers.Attempt.Answer)
		examAPI.POST("/exams/:exam_id/submit", handlers.Attempt.Submit)
		examAPI.POST("/exams/:exam_id/exit", handlers.Attempt.Exit)

		examAPI.GET("/exams/:exam_id/questions/:question_id/chat", handlers.Chat.Open)
		examAPI.POST("/exams/:exam_id/questions/:question_id/chat", aiLimiter.Middleware(), handlers.Chat.Send)

		examAPI.GET("/submissions", handlers.Submission.History)
		examAPI.GET("/submissions/:exam_id", handlers.Submission.Reconstruct)

		examAPI.GET("/review/pool", handlers.Review.Pool)
		examAPI.POST("/review/quiz", handlers.Review.Quiz)
		examAPI.POST("/review/resolve", handlers.Review.Resolve)

		examAPI.POST("/materials/extract", aiLimiter.Middleware(), handlers.Material.Extract)
		examAPI.POST("/materials/generate", aiLimiter.Middleware(), handlers.Material.Generate)
	}

	// ─── 3. WebSocket Group (WS Auth) ──────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService))
	{
		ws.GET("/exams/:exam_id/stream", handlers.WS.ExamStream)
	}

	return router
}
