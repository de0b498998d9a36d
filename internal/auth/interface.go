package auth

import "github.com/golang-jwt/jwt/v5"

// Claims are the token claims a session is derived from.
// Only the subject is used: it becomes the session ID.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	// VerifyToken validates a JWT and returns its claims.
	// Returns an error wrapping domain.ErrUnauthorized for any invalid token.
	VerifyToken(tokenString string) (*Claims, error)

	// Close releases resources held by the verifier.
	Close() error
}
