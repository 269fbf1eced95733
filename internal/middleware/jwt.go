package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aspire-webinars/backend/internal/auth"
	"github.com/aspire-webinars/backend/pkg/response"
)

const (
	// ContextSubject is the key for the token subject in gin context
	// (admin username or registration id, depending on role).
	ContextSubject = "subject"
	// ContextRole is the key for the principal role in gin context.
	ContextRole = "role"
)

// JWT returns a middleware that validates the Bearer token and sets
// the verified principal in the request context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextSubject, claims.Subject)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}
