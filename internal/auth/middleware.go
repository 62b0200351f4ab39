package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys for user data
const (
	ContextKeyUserID   = "auth_user_id"
	ContextKeyUsername = "auth_username"
)

// Middleware authenticates requests via Authorization: Bearer tokens.
type Middleware struct {
	secret string
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(secret string) *Middleware {
	return &Middleware{secret: secret}
}

// Handler returns a Gin handler that rejects requests without a valid token.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := m.tryBearerAuth(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		c.Set(ContextKeyUserID, userID)
		c.Set(ContextKeyUsername, claims.Username)
		c.Next()
	}
}

// tryBearerAuth extracts and validates the bearer token, if any.
func (m *Middleware) tryBearerAuth(c *gin.Context) *Claims {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil
	}

	claims, err := ParseToken(m.secret, parts[1])
	if err != nil {
		return nil
	}
	return claims
}

// GetUserID retrieves the authenticated user's ID from the context.
// Returns 0 if the request is not authenticated.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return 0
}

// GetUsername retrieves the authenticated user's username from the context.
func GetUsername(c *gin.Context) string {
	if name, exists := c.Get(ContextKeyUsername); exists {
		if username, ok := name.(string); ok {
			return username
		}
	}
	return ""
}
