package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/elevate-portal/backend/internal/auth"
	"github.com/elevate-portal/backend/internal/models"
	"github.com/elevate-portal/backend/pkg/response"
)

const (
	// ContextUser is the key for the authenticated user in gin context.
	ContextUser = "auth_user"
	// HeaderDevRole and HeaderDevUserID are the unsigned dev-mode fallback
	// headers. Only honored when the verifier is absent outside production.
	HeaderDevRole   = "x-dev-role"
	HeaderDevUserID = "x-dev-user-id"
)

// TokenVerifier validates a bearer token and resolves the caller's identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.AuthenticatedUser, error)
}

// Auth returns a middleware that authenticates the request and attaches an
// AuthenticatedUser to the context. With a verifier present, only a valid
// signed bearer token is accepted. With no verifier (dev fallback, gated by
// config outside production), the role comes from the x-dev-role header and
// invalid values silently fall back to Viewer.
func Auth(verifier TokenVerifier, devFallback bool, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if verifier == nil {
			if !devFallback {
				// Misconfiguration: no verifier and fallback not allowed.
				logger.Error("no token verifier configured and dev fallback disabled")
				response.Unauthorized(c, "authentication unavailable")
				c.Abort()
				return
			}
			role := models.RoleViewer
			if r, ok := models.ParseRole(c.GetHeader(HeaderDevRole)); ok {
				role = r
			}
			userID := c.GetHeader(HeaderDevUserID)
			if userID == "" {
				userID = "dev-user"
			}
			c.Set(ContextUser, &models.AuthenticatedUser{UserID: userID, Role: role})
			c.Next()
			return
		}

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
		user, err := verifier.Verify(c.Request.Context(), parts[1])
		if err != nil {
			if errors.Is(err, auth.ErrVerifierConfig) {
				logger.Error("token verification unavailable", zap.Error(err))
			} else {
				logger.Debug("token rejected", zap.Error(err))
			}
			// Generic message either way; never leak which claim failed.
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextUser, user)
		c.Next()
	}
}

// UserFrom returns the authenticated user attached to the context.
func UserFrom(c *gin.Context) (*models.AuthenticatedUser, bool) {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.AuthenticatedUser)
	return user, ok
}
