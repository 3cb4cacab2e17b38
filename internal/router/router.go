package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/quizdrop/quizdrop-backend/internal/config"
	"github.com/quizdrop/quizdrop-backend/internal/handler"
	"github.com/quizdrop/quizdrop-backend/internal/middleware"
	"github.com/quizdrop/quizdrop-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Quiz    *handler.QuizHandler
	Archive *handler.ArchiveHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, cfg *config.Config) *gin.Engine {
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
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Compress responses, except the backup download: it streams a ZIP
	// that is already deflate-compressed.
	brotliCfg := middleware.DefaultBrotliConfig
	brotliCfg.Skipper = func(c *gin.Context) bool {
		return strings.HasPrefix(c.Request.URL.Path, "/api/backup")
	}
	router.Use(middleware.BrotliWithConfig(brotliCfg))

	// Serve quiz payload files statically with client-side caching.
	publicGroup := router.Group("/public")
	publicGroup.Use(middleware.CacheControl(3600))
	{
		publicGroup.Static("/", cfg.PublicDir())
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter shared by the mutating routes.
	writeLimiter := middleware.NewRateLimiter(cfg.RatePerMinute, time.Minute)

	api := router.Group("/api")
	{
		api.GET("/search-quizzes", handlers.Quiz.Search)
		api.GET("/quizzes", handlers.Quiz.List)
		api.GET("/quiz/:id", handlers.Quiz.Get)
		api.POST("/quiz/:id/verify-password", handlers.Quiz.VerifyPassword)

		api.POST("/upload-quiz", writeLimiter.Middleware(), handlers.Quiz.Upload)
		api.PUT("/quiz/:id", writeLimiter.Middleware(), handlers.Quiz.Update)
		api.DELETE("/quiz/:id", writeLimiter.Middleware(), handlers.Quiz.Delete)

		api.GET("/backup", handlers.Archive.Backup)
		api.POST("/restore", writeLimiter.Middleware(), handlers.Archive.Restore)
	}

	return router
}
