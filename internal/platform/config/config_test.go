package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.DBDriver)
	assert.Equal(t, "none", cfg.AuthMode)
	assert.Zero(t, cfg.MealAutoCompleteDelay, "auto-completado apagado por defecto")
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DSN")
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_GatewayRequiresURL(t *testing.T) {
	t.Setenv("AUTH_MODE", "gateway")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_GATEWAY_URL")
}
