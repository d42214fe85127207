package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/elevate-portal/backend/internal/models"
	"github.com/elevate-portal/backend/pkg/response"
)

// RequireRole returns a middleware that rejects callers below the given
// minimum role. The comparison runs over the fixed role ordinals, never
// over the role strings.
func RequireRole(min models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := UserFrom(c)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		if !user.Role.AtLeast(min) {
			// The caller already knows their own role; naming both sides is
			// safe and makes the remediation obvious.
			response.Forbidden(c, fmt.Sprintf("requires %s role or above, caller is %s", min, user.Role))
			c.Abort()
			return
		}
		c.Next()
	}
}
