package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Config agrupa toda la configuración del servicio, cargada desde env.
// Un .env local se carga si existe (dev); en producción mandan las env vars.
type Config struct {
	AppEnv  string `env:"APP_ENV" default:"development"`
	AppName string `env:"APP_NAME" default:"druma-petcare"`
	Port    string `env:"PORT" default:"8080"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// Storage: memory (default dev), postgres o sqlite.
	DBDriver   string `env:"DB_DRIVER" default:"memory"`
	DBDSN      string `env:"DB_DSN"`
	SQLitePath string `env:"SQLITE_PATH" default:"druma.db"`

	// Auth: none (dev, header X-Debug-User-ID), gateway o firebase.
	AuthMode          string `env:"AUTH_MODE" default:"none"`
	AuthGatewayURL    string `env:"AUTH_GATEWAY_URL"`
	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`

	// Cache del dashboard (opcional; vacío = sin cache).
	RedisURL string `env:"REDIS_URL"`

	// Object storage para fotos/documentos (opcional; vacío = memoria).
	GCSBucket string `env:"GCS_BUCKET"`

	// Auto-completado de comidas: delay 0 desactiva el job.
	MealAutoCompleteDelay    time.Duration `env:"MEAL_AUTOCOMPLETE_DELAY" default:"0s"`
	MealAutoCompleteInterval time.Duration `env:"MEAL_AUTOCOMPLETE_INTERVAL" default:"1m"`

	// Rate limit por IP en rutas de escritura.
	WriteRatePerSecond float64 `env:"WRITE_RATE_PER_SECOND" default:"10"`
	WriteRateBurst     int     `env:"WRITE_RATE_BURST" default:"20"`
}

func Load() (*Config, error) {
	// .env es opcional; si no está, seguimos con el environment real.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("cargando configuración: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	switch strings.ToLower(cfg.DBDriver) {
	case "memory", "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER debe ser memory, postgres o sqlite (recibido %q)", cfg.DBDriver)
	}
	if strings.EqualFold(cfg.DBDriver, "postgres") && strings.TrimSpace(cfg.DBDSN) == "" {
		return fmt.Errorf("DB_DSN es obligatorio con DB_DRIVER=postgres")
	}

	switch strings.ToLower(cfg.AuthMode) {
	case "none", "gateway", "firebase":
	default:
		return fmt.Errorf("AUTH_MODE debe ser none, gateway o firebase (recibido %q)", cfg.AuthMode)
	}
	if strings.EqualFold(cfg.AuthMode, "gateway") && strings.TrimSpace(cfg.AuthGatewayURL) == "" {
		return fmt.Errorf("AUTH_GATEWAY_URL es obligatorio con AUTH_MODE=gateway")
	}
	if strings.EqualFold(cfg.AuthMode, "firebase") && strings.TrimSpace(cfg.FirebaseProjectID) == "" {
		return fmt.Errorf("FIREBASE_PROJECT_ID es obligatorio con AUTH_MODE=firebase")
	}

	if cfg.MealAutoCompleteDelay < 0 {
		return fmt.Errorf("MEAL_AUTOCOMPLETE_DELAY no puede ser negativo")
	}
	if cfg.MealAutoCompleteInterval <= 0 {
		return fmt.Errorf("MEAL_AUTOCOMPLETE_INTERVAL debe ser positivo")
	}
	return nil
}
