package auth

import "knowledge/internal/domain/models"

// JWTVerifier verifies Bearer tokens. The middleware only needs the claims,
// so the key source (JWKS, static key) stays behind this interface.
type JWTVerifier interface {
	// VerifyToken validates a JWT token string and returns the parsed claims.
	VerifyToken(tokenString string) (*models.TokenClaims, error)

	// Close releases any resources held by the verifier.
	Close() error
}

// InitDataVerifier verifies Telegram WebApp init data sent as "tma <initData>".
type InitDataVerifier interface {
	Verify(initData string) (*models.TelegramUser, error)
}
