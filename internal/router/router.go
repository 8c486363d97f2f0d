package router

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "druma-petcare/docs"
	objmem "druma-petcare/internal/adapters/objectstore/memory"
	mem "druma-petcare/internal/adapters/storage/memory"
	pg "druma-petcare/internal/adapters/storage/postgres"
	lite "druma-petcare/internal/adapters/storage/sqlite"
	"druma-petcare/internal/calendar"
	"druma-petcare/internal/domain/bookings"
	"druma-petcare/internal/domain/caregivers"
	"druma-petcare/internal/domain/carelog"
	"druma-petcare/internal/domain/dashboard"
	"druma-petcare/internal/domain/feeding"
	"druma-petcare/internal/domain/orders"
	"druma-petcare/internal/domain/pets"
	"druma-petcare/internal/domain/providers"
	"druma-petcare/internal/middleware"
	"druma-petcare/internal/platform/config"
	"druma-petcare/internal/platform/logger"
	"druma-petcare/internal/ports/auth"
	"druma-petcare/internal/ports/objectstore"
)

type Options struct {
	Cfg *config.Config
	Log logger.Logger

	Verifier auth.AuthVerifier       // nil = modo dev (X-Debug-User-ID)
	Cache    dashboard.Cache         // nil = sin cache
	Store    objectstore.ObjectStore // nil = object store en memoria

	// Repos ya armados (tests); nil = se eligen por Cfg.DBDriver.
	Repos *Repos
}

// Repos junta los repositorios de todos los módulos para un driver dado.
type Repos struct {
	Pets       pets.Repository
	Caregivers caregivers.Repository
	Carelog    carelog.Repository
	Feeding    feeding.Repository
	Providers  providers.Repository
	Bookings   bookings.Repository
	Orders     orders.Repository

	close func() error
}

func (r *Repos) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

// App expone el handler más lo que main necesita para los jobs de fondo.
type App struct {
	Handler http.Handler
	Feeding *feeding.Service
	Repos   *Repos
}

func New(opts Options) (*App, error) {
	if opts.Cfg == nil {
		return nil, fmt.Errorf("router: falta configuración")
	}
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}

	repos := opts.Repos
	if repos == nil {
		var err error
		repos, err = openRepos(opts.Cfg)
		if err != nil {
			return nil, err
		}
	}

	store := opts.Store
	if store == nil {
		store = objmem.New()
	}

	// Services por módulo
	petsSvc := pets.NewService(repos.Pets)
	grantsSvc := caregivers.NewService(repos.Caregivers)
	careSvc := carelog.NewService(repos.Carelog)
	feedingSvc := feeding.NewService(repos.Feeding, log)
	ordersSvc := orders.NewService(repos.Orders, log)

	providersSvc := providers.NewService(repos.Providers, nil, log)
	bookingsSvc := bookings.NewService(repos.Bookings, providersSvc, log)
	providersSvc.SetBookedLookup(bookingsSvc)

	dashSvc := dashboard.NewService(petsSvc, feedingSvc, careSvc, bookingsSvc, opts.Cache, log)
	calSvc := calendar.NewService(petsSvc, feedingSvc, bookingsSvc)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.Verifier))
	r.Use(middleware.RateLimit(opts.Cfg.WriteRatePerSecond, opts.Cfg.WriteRateBurst))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler())

	// Rutas por módulo
	pets.RegisterRoutes(r, petsSvc, grantsSvc, store)
	caregivers.RegisterRoutes(r, grantsSvc, petsSvc)
	carelog.RegisterRoutes(r, careSvc, petsSvc, grantsSvc)
	feeding.RegisterRoutes(r, feedingSvc, petsSvc, grantsSvc)
	providers.RegisterRoutes(r, providersSvc)
	bookings.RegisterRoutes(r, bookingsSvc, providersSvc)
	orders.RegisterRoutes(r, ordersSvc)
	dashboard.RegisterRoutes(r, dashSvc, petsSvc, grantsSvc)
	calendar.RegisterRoutes(r, calSvc)

	return &App{
		Handler: r,
		Feeding: feedingSvc,
		Repos:   repos,
	}, nil
}

func openRepos(cfg *config.Config) (*Repos, error) {
	switch strings.ToLower(cfg.DBDriver) {
	case "postgres":
		db, err := pg.Open(cfg.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("abriendo postgres: %w", err)
		}
		return &Repos{
			Pets:       pg.NewPetsRepo(db),
			Caregivers: pg.NewCaregiversRepo(db),
			Carelog:    pg.NewCarelogRepo(db),
			Feeding:    pg.NewFeedingRepo(db),
			Providers:  pg.NewProvidersRepo(db),
			Bookings:   pg.NewBookingsRepo(db),
			Orders:     pg.NewOrdersRepo(db),
			close:      db.Close,
		}, nil

	case "sqlite":
		db, err := lite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("abriendo sqlite: %w", err)
		}
		if err := lite.Migrate(context.Background(), db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrando sqlite: %w", err)
		}
		return &Repos{
			Pets:       lite.NewPetsRepo(db),
			Caregivers: lite.NewCaregiversRepo(db),
			Carelog:    lite.NewCarelogRepo(db),
			Feeding:    lite.NewFeedingRepo(db),
			Providers:  lite.NewProvidersRepo(db),
			Bookings:   lite.NewBookingsRepo(db),
			Orders:     lite.NewOrdersRepo(db),
			close:      db.Close,
		}, nil

	default: // memory
		return MemoryRepos(), nil
	}
}

// MemoryRepos arma el juego completo de repos in-memory (dev y tests).
func MemoryRepos() *Repos {
	return &Repos{
		Pets:       mem.NewPetRepo(),
		Caregivers: mem.NewCaregiverRepo(),
		Carelog:    mem.NewCarelogRepo(),
		Feeding:    mem.NewFeedingRepo(),
		Providers:  mem.NewProvidersRepo(),
		Bookings:   mem.NewBookingsRepo(),
		Orders:     mem.NewOrdersRepo(),
	}
}
