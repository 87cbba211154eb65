package routes

import (
	"context"

	"github.com/gin-gonic/gin"

	"tokenvesting/internal/handlers"
	"tokenvesting/internal/metrics"
	"tokenvesting/internal/middleware"
)

// Dependencies are the handlers and middleware settings the router is built from.
type Dependencies struct {
	Vesting        *handlers.VestingHandler
	ClaimStream    *handlers.ClaimStream
	AllowedOrigins []string
	Auth           middleware.AuthConfig
	RateLimit      middleware.RateLimiterConfig
}

// SetupRouter initializes and returns the Gin router with all routes configured.
// Background work started for the router stops when ctx is done.
func SetupRouter(ctx context.Context, d Dependencies) *gin.Engine {
	r := gin.Default()

	// Add health check endpoint
	r.Any("/health", func(c *gin.Context) {
		c.String(200, "ok")
	})
	r.GET("/metrics", metrics.Handler())

	r.Use(corsMiddleware(d.AllowedOrigins))
	r.Use(metrics.Middleware())
	if d.RateLimit.RequestsPerSecond > 0 {
		r.Use(middleware.RateLimiterMiddleware(ctx, d.RateLimit))
	}

	// Setup routes for each module
	SetupVestingRoutes(r, d.Vesting, middleware.SignatureAuth(d.Auth))
	if d.ClaimStream != nil {
		SetupClaimStreamRoutes(r, d.ClaimStream)
	}

	return r
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowed[origin] {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		// 确保包含所有必要的请求头
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, Origin, Cache-Control, X-Requested-With, "+
			middleware.HeaderSigner+", "+middleware.HeaderTimestamp+", "+middleware.HeaderSignature)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		// Handle preflight requests
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
