package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xyz-asif/callboard/internal/pkg/jwt"
	"github.com/xyz-asif/callboard/internal/pkg/response"
)

// bearerToken reads the Authorization header. A leading "Bearer " is
// optional. It answers 400 itself when the header is missing.
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		response.BadRequest(c, "No token provided", "TOKEN_REQUIRED")
		return "", false
	}
	return strings.TrimPrefix(header, "Bearer "), true
}

// Authorize is the gin middleware guarding authenticated routes. On success
// the context carries "user" (*users.User), "userID" and "sessionID".
func (h *Handler) Authorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			c.Abort()
			return
		}

		claims, err := jwt.ValidateAccessToken(raw, h.tokens)
		if err != nil {
			response.Unauthorized(c, "Unauthorized", "UNAUTHORIZED")
			c.Abort()
			return
		}

		user, session, ok := h.resolve(c, claims)
		if !ok {
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("userID", user.ID.Hex())
		c.Set("sessionID", session.ID.Hex())
		c.Next()
	}
}
