package auth

import "context"

// Claims representa la información extraída del token.
type Claims struct {
	UserID string
	Email  string
	Name   string
}

// AuthVerifier verifica un token y devuelve claims o error.
// Implementaciones en internal/adapters/auth (gateway HTTP, firebase).
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}
