package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/elevate-portal/backend/internal/models"
)

var (
	// ErrInvalidToken means the token failed signature or claim validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrVerifierConfig means verification could not run at all (key set
	// unreachable, bad issuer config). Surfaces as 401 to the caller but is
	// logged distinctly so operators can tell it from anonymous traffic.
	ErrVerifierConfig = errors.New("verifier configuration error")
)

// Verifier validates Cognito-issued JWTs against the pool's published
// signing keys and resolves the caller's role from group claims.
type Verifier struct {
	keys     jwt.Keyfunc
	issuer   string
	clientID string
	logger   *zap.Logger
}

// NewVerifier fetches the JWKS for the pool and returns a verifier. The key
// set refreshes itself in the background for the life of ctx.
func NewVerifier(ctx context.Context, jwksURL, issuer, clientID string, logger *zap.Logger) (*Verifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	keys, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("%w: fetch jwks: %v", ErrVerifierConfig, err)
	}
	logger.Info("token verifier ready", zap.String("issuer", issuer))
	return &Verifier{keys: keys.Keyfunc, issuer: issuer, clientID: clientID, logger: logger}, nil
}

// Verify checks the token signature, issuer and expiry, then resolves the
// caller's identity and role from the claims. No claim is trusted before
// the signature check passes.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*models.AuthenticatedUser, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keys,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		// Key resolution failing (stale JWKS cache, unreachable key set) is
		// an operator problem, not a caller problem.
		if errors.Is(err, jwt.ErrTokenUnverifiable) {
			return nil, fmt.Errorf("%w: %v", ErrVerifierConfig, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if v.clientID != "" && !v.audienceMatches(claims) {
		return nil, fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	email, _ := claims["email"].(string)
	role := RoleFromGroups(GroupsFromClaims(claims))

	return &models.AuthenticatedUser{UserID: sub, Email: email, Role: role}, nil
}

// audienceMatches accepts either the aud claim (ID tokens) or client_id
// (Cognito access tokens).
func (v *Verifier) audienceMatches(claims jwt.MapClaims) bool {
	if aud, err := claims.GetAudience(); err == nil {
		for _, a := range aud {
			if a == v.clientID {
				return true
			}
		}
	}
	if cid, _ := claims["client_id"].(string); cid == v.clientID {
		return true
	}
	return false
}
