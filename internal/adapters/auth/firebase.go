package auth

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"

	portauth "druma-petcare/internal/ports/auth"
)

// FirebaseVerifier valida ID tokens de Firebase Auth. Las credenciales se
// resuelven con Application Default Credentials (GOOGLE_APPLICATION_CREDENTIALS
// o metadata del entorno GCP).
type FirebaseVerifier struct {
	client *fbauth.Client
}

func NewFirebaseVerifier(ctx context.Context, projectID string) (*FirebaseVerifier, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("inicializando firebase: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("inicializando firebase auth: %w", err)
	}

	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (portauth.Claims, error) {
	tok, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return portauth.Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims := portauth.Claims{UserID: tok.UID}
	if email, ok := tok.Claims["email"].(string); ok {
		claims.Email = email
	}
	if name, ok := tok.Claims["name"].(string); ok {
		claims.Name = name
	}

	return claims, nil
}
