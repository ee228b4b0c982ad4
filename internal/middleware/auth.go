package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/utils"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/pkg/response"
)

const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextRole     = "role"
)

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func setClaims(c *gin.Context, claims *utils.Claims) {
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextUsername, claims.Username)
	c.Set(ContextRole, claims.Role)
}

// AuthRequired is a middleware that checks for a valid JWT token
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			response.Unauthorized(c, "authorization header required")
			return
		}

		tokenString, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "invalid authorization header format")
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth attaches the caller's identity when a valid token is present
// and lets anonymous requests through. A malformed or invalid token is
// rejected.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		tokenString, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "invalid authorization header format")
			return
		}
		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// AdminRequired is a middleware that checks for admin role
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextRole)
		if !exists || role != utils.RoleAdmin {
			response.Forbidden(c, "admin access required")
			return
		}
		c.Next()
	}
}

// GetUserID gets the current user ID from context
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextUserID); exists {
		if uid, ok := id.(uint); ok {
			return uid
		}
	}
	return 0
}

// GetUserIDPtr returns the current user ID, or nil for anonymous requests.
func GetUserIDPtr(c *gin.Context) *uint {
	id := GetUserID(c)
	if id == 0 {
		return nil
	}
	return &id
}

// GetUsername gets the current username from context
func GetUsername(c *gin.Context) string {
	return c.GetString(ContextUsername)
}

// GetRole gets the current user role from context
func GetRole(c *gin.Context) string {
	return c.GetString(ContextRole)
}
