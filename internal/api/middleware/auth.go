package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/baseplate/console/internal/core/auth"
)

const (
	ContextAdminID      = "admin_id"
	ContextEmail        = "email"
	ContextIsSuperAdmin = "is_super_admin"
)

// TokenValidator checks a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(token string) (*auth.JWTClaims, error)
}

type AuthMiddleware struct {
	tokens TokenValidator
}

func NewAuthMiddleware(tokens TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
			abort(c, "invalid authorization header")
			return
		}

		if !strings.EqualFold(parts[0], "bearer") {
			abort(c, "unsupported authorization type")
			return
		}

		claims, err := m.tokens.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			abort(c, "invalid token")
			return
		}

		c.Set(ContextAdminID, claims.AdminID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextIsSuperAdmin, claims.IsSuperAdmin)
		c.Next()
	}
}

func abort(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": message})
}

// Helper functions to get context values
func GetAdminID(c *gin.Context) (uuid.UUID, bool) {
	val, exists := c.Get(ContextAdminID)
	if !exists {
		return uuid.Nil, false
	}

	id, ok := val.(uuid.UUID)
	return id, ok
}

func GetEmail(c *gin.Context) string {
	return c.GetString(ContextEmail)
}

func IsSuperAdmin(c *gin.Context) bool {
	val, exists := c.Get(ContextIsSuperAdmin)
	if !exists {
		return false
	}

	isSuperAdmin, ok := val.(bool)
	return ok && isSuperAdmin
}
