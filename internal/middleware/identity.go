// internal/middleware/identity.go
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"licentra-service/internal/domain/user"
	xerrors "licentra-service/internal/pkg/errors"
	"licentra-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID = "user_id"
	ctxRoles  = "user_roles"

	headerUserID = "X-User-ID"
	headerRoles  = "X-User-Roles"
)

// Identity reads the caller identity established by the upstream gateway.
// Requests without a user ID are rejected; role parsing is permissive.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(headerUserID)
		if raw == "" {
			response.Error(c, http.StatusUnauthorized, xerrors.ErrUnauthorized)
			c.Abort()
			return
		}

		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			response.Error(c, http.StatusUnauthorized, xerrors.ErrUnauthorized)
			c.Abort()
			return
		}

		var roles []string
		for _, r := range strings.Split(c.GetHeader(headerRoles), ",") {
			if r = strings.TrimSpace(strings.ToLower(r)); r != "" {
				roles = append(roles, r)
			}
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxRoles, roles)
		c.Next()
	}
}

// RequireAdmin rejects non-admin callers. Must run after Identity.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			response.Error(c, http.StatusForbidden, xerrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID returns the authenticated caller's user ID.
func GetUserID(c *gin.Context) int64 {
	if v, ok := c.Get(ctxUserID); ok {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}

// GetRoles returns the caller's roles.
func GetRoles(c *gin.Context) []string {
	if v, ok := c.Get(ctxRoles); ok {
		if roles, ok := v.([]string); ok {
			return roles
		}
	}
	return nil
}

// IsAdmin reports whether the caller carries the admin role.
func IsAdmin(c *gin.Context) bool {
	for _, r := range GetRoles(c) {
		if r == user.RoleAdmin {
			return true
		}
	}
	return false
}
