package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xyz-asif/callboard/internal/pkg/response"
)

// Middleware limits requests per client IP
func Middleware(limiter *RateLimiter) gin.HandlerFunc {
	return KeyedMiddleware(limiter, nil)
}

// KeyedMiddleware limits requests per keyFunc(c), falling back to the client IP
func KeyedMiddleware(limiter *RateLimiter, keyFunc func(c *gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := ""
		if keyFunc != nil {
			key = keyFunc(c)
		}
		if key == "" {
			key = c.ClientIP()
		}

		allowed, remaining, reset := limiter.Allow(key)

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", reset.Format(time.RFC3339))

		if !allowed {
			retry := int(math.Ceil(time.Until(reset).Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))

			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.APIResponse{
				Success:    false,
				StatusCode: http.StatusTooManyRequests,
				Message:    "Rate limit exceeded. Try again later.",
				Code:       "RATE_LIMITED",
				Data: gin.H{
					"retry_after": strconv.Itoa(retry) + "s",
					"reset_time":  reset.Format(time.RFC3339),
					"limit":       limiter.Limit(),
				},
			})
			return
		}

		c.Next()
	}
}
