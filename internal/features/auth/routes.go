package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/xyz-asif/callboard/internal/pkg/ratelimit"
)

// RegisterRoutes mounts /auth. Register and login share limiter when it is non-nil.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, limiter *ratelimit.RateLimiter) {
	throttle := func(c *gin.Context) { c.Next() }
	if limiter != nil {
		throttle = ratelimit.Middleware(limiter)
	}

	auth := router.Group("/auth")
	{
		auth.POST("/register", throttle, handler.Register)
		auth.POST("/login", throttle, handler.Login)
		auth.POST("/refresh", handler.Refresh)
		auth.POST("/logout", handler.Authorize(), handler.Logout)
		auth.GET("/google", handler.GoogleAuth)
		auth.GET("/google-redirect", handler.GoogleRedirect)
	}
}
