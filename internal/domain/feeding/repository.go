package feeding

import (
	"context"
	"time"
)

// Repository persiste horarios y comidas materializadas.
type Repository interface {
	CreateSchedule(ctx context.Context, s Schedule) error
	UpdateSchedule(ctx context.Context, s Schedule) error
	GetSchedule(ctx context.Context, id string) (Schedule, error)
	ListSchedulesByPet(ctx context.Context, petID string) ([]Schedule, error)

	// CreateMealIfAbsent inserta la comida solo si su tupla de deduplicación
	// (schedule, fecha, hora, alimento) no existe. Devuelve false si ya estaba.
	// Segunda línea de defensa detrás de la dedup en memoria del expand:
	// dos materializaciones concurrentes no duplican.
	CreateMealIfAbsent(ctx context.Context, m Meal) (bool, error)

	GetMeal(ctx context.Context, id string) (Meal, error)
	UpdateMeal(ctx context.Context, m Meal) error

	ListMealsByPetAndDate(ctx context.Context, petID string, date time.Time) ([]Meal, error)
	ListMealsByPetRange(ctx context.Context, petID string, from, to time.Time) ([]Meal, error)

	// ListOverdueScheduled devuelve comidas en scheduled cuya fecha+hora ya
	// pasó respecto al corte. Lo consume el job de auto-completado.
	ListOverdueScheduled(ctx context.Context, cutoff time.Time) ([]Meal, error)
}
