// Package auth implementa los verificadores de token contra colaboradores
// externos: un gateway HTTP propio o Firebase. El dominio solo ve la
// interfaz auth.AuthVerifier.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	portauth "druma-petcare/internal/ports/auth"
	"druma-petcare/internal/platform/httpclient"
	"druma-petcare/internal/platform/logger"
	"druma-petcare/internal/platform/metrics"
)

var ErrInvalidToken = errors.New("invalid token")

// GatewayVerifier verifica tokens contra el servicio de auth vía HTTP.
// Un circuit breaker corta las llamadas cuando el gateway viene fallando:
// mejor rechazar rápido que colgar cada request esperando el timeout.
type GatewayVerifier struct {
	client *httpclient.Client
	cb     *gobreaker.CircuitBreaker
	log    logger.Logger
}

func NewGatewayVerifier(client *httpclient.Client, log logger.Logger) *GatewayVerifier {
	settings := gobreaker.Settings{
		Name:    "auth-gateway",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker cambió de estado", map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			metrics.AuthBreakerStateChanges.WithLabelValues(to.String()).Inc()
		},
	}

	return &GatewayVerifier{
		client: client,
		cb:     gobreaker.NewCircuitBreaker(settings),
		log:    log,
	}
}

type verifyResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

func (v *GatewayVerifier) Verify(ctx context.Context, token string) (portauth.Claims, error) {
	out, err := v.cb.Execute(func() (any, error) {
		var resp verifyResponse
		err := v.client.DoJSON(ctx, http.MethodPost, "/v1/verify",
			map[string]string{"Authorization": "Bearer " + token},
			nil, &resp)
		if err != nil {
			var httpErr *httpclient.HTTPError
			if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized {
				// token rechazado: no es falla del gateway, no abre el breaker
				return nil, nil
			}
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return portauth.Claims{}, fmt.Errorf("auth gateway no disponible: %w", err)
		}
		return portauth.Claims{}, fmt.Errorf("verificando token: %w", err)
	}

	resp, ok := out.(verifyResponse)
	if !ok {
		return portauth.Claims{}, ErrInvalidToken
	}

	return portauth.Claims{
		UserID: resp.UserID,
		Email:  resp.Email,
		Name:   resp.Name,
	}, nil
}
