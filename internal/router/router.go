package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/stemsi/edutest/internal/config"
	"github.com/stemsi/edutest/internal/handler"
	"github.com/stemsi/edutest/internal/middleware"
	"github.com/stemsi/edutest/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Session *handler.SessionHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	handlers *Handlers,
	creds middleware.Credentials,
	startLimiter *middleware.RateLimiter,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", handlers.Auth.Login)
		auth.POST("/logout", handlers.Auth.Logout)
		auth.GET("/me", handlers.Auth.Me)
	}

	// ─── 2. Test Group (Student token required) ────────────────────────
	tests := router.Group("/api/v1/tests")
	tests.Use(middleware.RequireStudent(creds))
	{
		tests.GET("/:test_id", handlers.Session.OpenTest)
		tests.DELETE("/:test_id", handlers.Session.CloseTest)
		tests.GET("/:test_id/state", handlers.Session.GetState)
		tests.POST("/:test_id/start", startLimiter.Middleware(), handlers.Session.StartTest)
		tests.PUT("/:test_id/answers/:question_id", handlers.Session.SaveAnswer)
		tests.POST("/:test_id/navigate", handlers.Session.Navigate)
		tests.POST("/:test_id/submit", handlers.Session.SubmitTest)
		tests.POST("/:test_id/reset", handlers.Session.ResetTest)
		tests.GET("/:test_id/results", handlers.Session.GetResults)
	}

	// ─── 3. WebSocket Group ────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudent(creds))
	{
		ws.GET("/tests/:test_id/stream", handlers.WS.TestStream)
	}

	return router
}
