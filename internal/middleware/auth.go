package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"telecare-server/internal/config"
	"telecare-server/internal/models"
	"telecare-server/internal/utils"
)

// Context keys set by Auth and read by the handlers via the accessors below.
const (
	ctxUserID   = "userID"
	ctxUserRole = "userRole"
)

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

// Auth validates the access token and stashes the caller's id and role in
// the request context. Requests without a valid bearer token are rejected
// with 401 before any handler runs.
func Auth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			utils.Unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}

		token, ok := bearerToken(header)
		if !ok {
			utils.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(token, cfg.JWTSecret)
		if err != nil {
			utils.Unauthorized(c, "Invalid token: "+err.Error())
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUserRole, claims.Role)
		c.Next()
	}
}

// RequireRole gates a route group to the given roles. It must run after
// Auth; a missing role claim in the context is a wiring bug and surfaces
// as a 500 rather than a silent allow.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetUserRoleFromContext(c)
		if !ok {
			utils.InternalServerError(c, "Role claim missing; Auth middleware not applied")
			c.Abort()
			return
		}

		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		utils.Forbidden(c, "You do not have permission to access this resource.")
		c.Abort()
	}
}

// GetUserIDFromContext returns the authenticated user's id, if Auth ran.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	v, exists := c.Get(ctxUserID)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// GetUserRoleFromContext returns the authenticated user's role, if Auth ran.
func GetUserRoleFromContext(c *gin.Context) (models.Role, bool) {
	v, exists := c.Get(ctxUserRole)
	if !exists {
		return "", false
	}
	role, ok := v.(models.Role)
	return role, ok
}
