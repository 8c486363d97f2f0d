package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Métricas de expansión de recurrencias.
var (
	// MealsGenerated cuenta ocurrencias materializadas y persistidas.
	MealsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feeding_meals_generated_total",
			Help: "Comidas materializadas desde horarios de alimentación",
		},
	)

	// DuplicatesSuppressed cuenta candidatos descartados por ya existir
	// (tupla regla+fecha+hora+payload). Informativo, no es un error.
	DuplicatesSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feeding_duplicates_suppressed_total",
			Help: "Candidatos de comida suprimidos por deduplicación",
		},
	)

	// SkippedItems cuenta reglas/candidatos excluidos por validación.
	SkippedItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feeding_expansion_skipped_total",
			Help: "Elementos saltados durante la expansión, por tipo",
		},
		[]string{"kind"}, // invalid_rule | invalid_candidate
	)

	// ExpansionDuration mide la expansión de un día (solo cómputo, sin I/O).
	ExpansionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feeding_expansion_duration_seconds",
			Help:    "Duración de la expansión de recurrencias por fecha",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)

	// MealsAutoCompleted cuenta comidas completadas por el job automático.
	MealsAutoCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feeding_meals_autocompleted_total",
			Help: "Comidas completadas automáticamente por el job",
		},
	)
)

// Métricas de transiciones de estado.
var (
	MealTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feeding_meal_transitions_total",
			Help: "Transiciones de estado de comidas, por acción y resultado",
		},
		[]string{"action", "status"}, // status: ok | invalid
	)
)

// Métricas del cache del dashboard.
var (
	DashboardCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_cache_hits_total",
			Help: "Hits del cache de resúmenes del dashboard",
		},
	)

	DashboardCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_cache_misses_total",
			Help: "Misses del cache de resúmenes del dashboard",
		},
	)
)

// Métricas del circuit breaker del gateway de auth.
var (
	AuthBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_breaker_state_changes_total",
			Help: "Cambios de estado del circuit breaker de auth",
		},
		[]string{"state"},
	)
)
