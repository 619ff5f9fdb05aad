package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"knowledge/internal/domain"
	"knowledge/internal/domain/models"
)

// KeyfuncJWTVerifier implements JWTVerifier on top of a jwt.Keyfunc, usually
// backed by a JWKS endpoint.
type KeyfuncJWTVerifier struct {
	keyFunc jwt.Keyfunc
	logger  *slog.Logger
}

// NewJWTVerifier creates a verifier that fetches public keys from jwksURL.
// keyfunc caches the set and refreshes it on unknown key ids.
func NewJWTVerifier(ctx context.Context, jwksURL string, logger *slog.Logger) (JWTVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}

	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS client: %w", err)
	}

	logger.Info("JWT verifier initialized", "jwks_url", jwksURL)
	return NewKeyfuncVerifier(jwks.Keyfunc, logger), nil
}

// NewKeyfuncVerifier wraps an arbitrary key lookup.
func NewKeyfuncVerifier(keyFunc jwt.Keyfunc, logger *slog.Logger) *KeyfuncJWTVerifier {
	return &KeyfuncJWTVerifier{keyFunc: keyFunc, logger: logger}
}

// VerifyToken validates a JWT and extracts its claims. Only RS256 and ES256
// are accepted, and anonymous tokens are refused.
func (v *KeyfuncJWTVerifier) VerifyToken(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, v.keyFunc,
		jwt.WithValidMethods([]string{"RS256", "ES256"}),
	)
	if err != nil {
		v.logger.Debug("token parse failed", "error", err)
		return nil, &domain.UnauthorizedError{Message: "invalid token"}
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid {
		return nil, &domain.UnauthorizedError{Message: "invalid token"}
	}

	if claims.Subject == "" {
		v.logger.Debug("token missing subject claim")
		return nil, &domain.UnauthorizedError{Message: "token has no subject"}
	}

	if claims.Role == "anon" {
		v.logger.Debug("anonymous token rejected", "user_id", claims.Subject)
		return nil, &domain.UnauthorizedError{Message: "anonymous token"}
	}

	return claims, nil
}

// Close is a no-op; keyfunc manages its own refresh goroutine lifetime
// through the context passed to NewJWTVerifier.
func (v *KeyfuncJWTVerifier) Close() error {
	v.logger.Info("JWT verifier closed")
	return nil
}
