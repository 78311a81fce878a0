package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/MarkRaffy28/MicroBits/internal/domain"
	"github.com/MarkRaffy28/MicroBits/internal/usecase"
)

const (
	ContextUserID = "userID"
	ContextRole   = "role"
)

// TokenValidator resolves a bearer token to a verified session.
type TokenValidator interface {
	ValidateToken(token string) (*usecase.Session, bool)
}

// Auth extracts and verifies the bearer token, putting the verified userID
// and role on the context for the handlers.
func Auth(validator TokenValidator, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Warn("Middleware: Authorization header is missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Warnf("Middleware: invalid Authorization header format")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid Authorization header format"})
			return
		}

		session, ok := validator.ValidateToken(parts[1])
		if !ok {
			log.Warn("Middleware: unknown or expired token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(ContextUserID, session.UserID)
		c.Set(ContextRole, session.Role)
		c.Next()
	}
}

// RequireAdmin gates admin-only routes. Must run after Auth.
func RequireAdmin(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		if role != domain.RoleAdmin {
			log.Warnf("Middleware: user %d denied admin access to %s", c.GetInt(ContextUserID), c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied. Admins only."})
			return
		}
		c.Next()
	}
}

// RequireSelfOrAdmin lets a caller operate on their own resource (matched by
// the named path parameter) or requires the admin role. Must run after Auth.
func RequireSelfOrAdmin(param string, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		targetID, err := strconv.Atoi(c.Param(param))
		if err != nil || targetID <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid id parameter"})
			return
		}
		if c.GetString(ContextRole) != domain.RoleAdmin && c.GetInt(ContextUserID) != targetID {
			log.Warnf("Middleware: user %d denied access to resource of user %d", c.GetInt(ContextUserID), targetID)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You are not authorized to access this resource"})
			return
		}
		c.Next()
	}
}
