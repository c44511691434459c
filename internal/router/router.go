package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lexprep/barprep-backend/internal/config"
	"github.com/lexprep/barprep-backend/internal/handler"
	"github.com/lexprep/barprep-backend/internal/middleware"
	"github.com/lexprep/barprep-backend/internal/response"
	"github.com/lexprep/barprep-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Catalog *handler.CatalogHandler
	Runner  *handler.RunnerHandler
	Results *handler.ResultsHandler
	WS      *handler.WSHandler
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

	// Apply brotli middleware globally. Question banks compress well.
	router.Use(middleware.Brotli())

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
		auth.POST("/login", handlers.Auth.Login)
		auth.POST("/guest", handlers.Auth.Guest)

		// Authenticated profile routes
		auth.GET("/me", middleware.RequireActor(authService), handlers.Auth.Me)
		auth.POST("/logout", middleware.RequireActor(authService), handlers.Auth.Logout)
	}

	// ─── 2. Catalog Group (Public) ─────────────────────────────────────
	catalog := router.Group("/api/v1/catalog")
	catalog.Use(middleware.CacheControl(60))
	{
		catalog.GET("/exams", handlers.Catalog.ListExams)
		catalog.GET("/exams/resolve", handlers.Catalog.ResolveExam)
		catalog.GET("/exams/:examId", handlers.Catalog.GetExam)
		catalog.GET("/exams/:examId/questions", handlers.Catalog.GetQuestionsPage)
	}

	// Attempt counting needs an account; it sits outside the cached group.
	router.GET("/api/v1/catalog/exams/:examId/attempts-remaining",
		middleware.RequireUser(authService),
		handlers.Catalog.GetRemainingAttempts,
	)

	// ─── 3. Runner Group (User or Guest) ───────────────────────────────
	runner := router.Group("/api/v1/runner")
	runner.Use(middleware.RequireActor(authService))
	{
		runner.POST("/:examId/start", handlers.Runner.Start)
		runner.GET("/:examId/state", handlers.Runner.State)
		runner.PUT("/:examId/answer", handlers.Runner.Answer)
		runner.PUT("/:examId/bookmark", handlers.Runner.Bookmark)
		runner.PUT("/:examId/position", handlers.Runner.Position)
		runner.POST("/:examId/finish", handlers.Runner.Finish)
	}

	// ─── 4. Results Group ──────────────────────────────────────────────
	results := router.Group("/api/v1/results")
	results.Use(middleware.RequireActor(authService))
	{
		results.GET("/session/:examId", handlers.Results.GetSessionResults)
	}
	// Durable attempts require an account.
	resultsUser := router.Group("/api/v1/results")
	resultsUser.Use(middleware.RequireUser(authService))
	{
		resultsUser.GET("/attempts", handlers.Results.GetHistory)
		resultsUser.GET("/attempts/:attemptId", handlers.Results.GetAttemptResults)
	}

	// ─── 5. WebSocket Group ────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireActor(authService))
	{
		ws.GET("/runner/:examId/stream", handlers.WS.RunnerStream)
	}

	return router
}
