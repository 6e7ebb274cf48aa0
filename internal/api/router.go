package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/marmos91/dittodrive/internal/auth"
	"github.com/marmos91/dittodrive/internal/ratelimiter"
	"github.com/marmos91/dittodrive/pkg/hierarchy"
	"github.com/marmos91/dittodrive/pkg/metrics"
)

// RouterConfig carries everything the HTTP layer depends on.
type RouterConfig struct {
	Service   *hierarchy.Service
	Registry  *auth.Registry
	JWTSecret []byte
	TokenTTL  time.Duration
	Logger    *zap.Logger

	// Metrics is optional; nil disables collection and /metrics.
	Metrics *metrics.DriveMetrics

	// LoginLimiter is optional; nil disables login throttling.
	LoginLimiter *ratelimiter.KeyedLimiter
}

// SetupRouter sets up all API routes
func SetupRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	if cfg.Metrics != nil {
		router.Use(func(c *gin.Context) {
			start := time.Now()
			c.Next()
			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			cfg.Metrics.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
		})
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	authHandler := NewAuthHandler(cfg.Registry, cfg.JWTSecret, cfg.TokenTTL, cfg.Logger)
	fileHandler := NewFileHandler(cfg.Service, cfg.Metrics, cfg.Logger)

	api := router.Group("/api")
	{
		api.POST("/auth/login", loginThrottle(cfg.LoginLimiter), authHandler.Login)

		protected := api.Group("")
		protected.Use(AuthMiddleware(cfg.JWTSecret))
		{
			files := protected.Group("/files")
			{
				files.GET("", fileHandler.ListFiles)
				files.POST("/upload", fileHandler.UploadFile)
				files.POST("/path", fileHandler.CreatePath)
				files.GET("/:id/download", fileHandler.DownloadFile)
				files.DELETE("/:id", fileHandler.DeleteFile)
			}
		}
	}

	return router
}

// loginThrottle rejects login attempts exceeding the per-client rate, so a
// single client cannot brute-force passwords.
func loginThrottle(limiter *ratelimiter.KeyedLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many login attempts"})
			c.Abort()
			return
		}
		c.Next()
	}
}
