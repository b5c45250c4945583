package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/bigsauer/rp-exotics-platform/pkg/errors"
	"github.com/bigsauer/rp-exotics-platform/pkg/metrics"
	"github.com/bigsauer/rp-exotics-platform/pkg/response"
)

// RequirePermission gates a route on the token's permission snapshot.
// Authorisation never touches storage; role changes take effect when a new
// token is issued.
func RequirePermission(resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		if !claims.Permissions.Allows(resource, action) {
			metrics.PermissionChecks.WithLabelValues(resource, action, "denied").Inc()
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		metrics.PermissionChecks.WithLabelValues(resource, action, "allowed").Inc()
		c.Next()
	}
}
