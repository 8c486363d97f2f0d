package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	authadapter "druma-petcare/internal/adapters/auth"
	rediscache "druma-petcare/internal/adapters/cache/redis"
	"druma-petcare/internal/adapters/objectstore/gcs"
	"druma-petcare/internal/domain/dashboard"
	"druma-petcare/internal/jobs"
	"druma-petcare/internal/platform/config"
	"druma-petcare/internal/platform/httpclient"
	"druma-petcare/internal/platform/logger"
	"druma-petcare/internal/ports/auth"
	"druma-petcare/internal/ports/objectstore"
	"druma-petcare/internal/router"
)

// @title Druma Petcare API
// @version 1.0
// @description Marketplace de cuidado de mascotas.
// @BasePath /

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewFromEnv().Error("configuración inválida", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	verifier, err := buildVerifier(ctx, cfg, log)
	if err != nil {
		log.Error("inicializando auth", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	var cache dashboard.Cache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		rc, err := rediscache.Open(ctx, cfg.RedisURL)
		if err != nil {
			log.Error("conectando a redis", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		defer rc.Close()
		cache = rc
	}

	var store objectstore.ObjectStore
	if strings.TrimSpace(cfg.GCSBucket) != "" {
		gs, err := gcs.New(ctx, cfg.GCSBucket)
		if err != nil {
			log.Error("inicializando gcs", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		defer gs.Close()
		store = gs
	}

	app, err := router.New(router.Options{
		Cfg:      cfg,
		Log:      log,
		Verifier: verifier,
		Cache:    cache,
		Store:    store,
	})
	if err != nil {
		log.Error("armando la aplicación", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer func() { _ = app.Repos.Close() }()

	if cfg.MealAutoCompleteDelay > 0 {
		job := jobs.NewAutoComplete(app.Feeding, clockwork.NewRealClock(), log,
			cfg.MealAutoCompleteDelay, cfg.MealAutoCompleteInterval)
		go job.Run(ctx)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      app.Handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("servidor iniciado", map[string]any{
			"addr":   srv.Addr,
			"env":    cfg.AppEnv,
			"driver": cfg.DBDriver,
		})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("error del servidor", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Info("apagando servidor", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("apagado forzado", map[string]any{"error": err.Error()})
		}
	}
}

func buildVerifier(ctx context.Context, cfg *config.Config, log logger.Logger) (auth.AuthVerifier, error) {
	switch strings.ToLower(cfg.AuthMode) {
	case "gateway":
		client, err := httpclient.New(cfg.AuthGatewayURL, httpclient.DefaultTimeout, nil)
		if err != nil {
			return nil, err
		}
		return authadapter.NewGatewayVerifier(client, log), nil
	case "firebase":
		return authadapter.NewFirebaseVerifier(ctx, cfg.FirebaseProjectID)
	default:
		// modo dev: sin verifier, manda X-Debug-User-ID
		return nil, nil
	}
}
