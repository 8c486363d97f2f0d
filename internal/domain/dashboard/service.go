package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"druma-petcare/internal/domain/bookings"
	"druma-petcare/internal/domain/carelog"
	"druma-petcare/internal/domain/feeding"
	"druma-petcare/internal/domain/pets"
	"druma-petcare/internal/platform/logger"
	"druma-petcare/internal/platform/metrics"
	"druma-petcare/internal/recurrence"
)

var ErrNotFound = errors.New("not found")

// Cache es un cache de resúmenes con TTL. La implementación Redis vive en
// adapters; nil = sin cache.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// summaryTTL es corto a propósito: el resumen del día cambia con cada
// transición de comida.
const summaryTTL = 30 * time.Second

// MealsSummary agrega las comidas del día por estado.
type MealsSummary struct {
	Total     int            `json:"total"`
	ByStatus  map[string]int `json:"by_status"`
	NextAt    string         `json:"next_at,omitempty"` // HH:MM de la próxima programada
	NextLabel string         `json:"next_label,omitempty"`
}

// CareSummary resume la actividad reciente del historial.
type CareSummary struct {
	Last7Days    int        `json:"last_7_days"`
	LastWeightKg float64    `json:"last_weight_kg,omitempty"`
	LastEntryAt  *time.Time `json:"last_entry_at,omitempty"`
}

// BookingSummary es una reserva próxima, en versión corta.
type BookingSummary struct {
	ID        string `json:"id"`
	Service   string `json:"service"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	Status    string `json:"status"`
}

// Summary es la vista diaria de una mascota para la pantalla principal.
type Summary struct {
	PetID   string `json:"pet_id"`
	PetName string `json:"pet_name"`
	Date    string `json:"date"`

	Meals            MealsSummary     `json:"meals"`
	Care             CareSummary      `json:"care"`
	UpcomingBookings []BookingSummary `json:"upcoming_bookings"`

	GeneratedAt time.Time `json:"generated_at"`
}

type Service struct {
	pets     *pets.Service
	feeding  *feeding.Service
	care     *carelog.Service
	bookings *bookings.Service
	cache    Cache
	log      logger.Logger
	now      func() time.Time
}

func NewService(petsSvc *pets.Service, feedingSvc *feeding.Service, careSvc *carelog.Service, bookingsSvc *bookings.Service, cache Cache, log logger.Logger) *Service {
	return &Service{
		pets:     petsSvc,
		feeding:  feedingSvc,
		care:     careSvc,
		bookings: bookingsSvc,
		cache:    cache,
		log:      log,
		now:      time.Now,
	}
}

// Summary arma el resumen del día de la mascota. Pasa primero por el cache
// (read-through); un cache caído degrada a cómputo directo, nunca a error.
func (s *Service) Summary(ctx context.Context, petID string, date time.Time) (Summary, error) {
	key := "dashboard:" + petID + ":" + recurrence.DateKey(date)

	if s.cache != nil {
		if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var cached Summary
			if err := json.Unmarshal(raw, &cached); err == nil {
				metrics.DashboardCacheHits.Inc()
				return cached, nil
			}
		} else if err != nil {
			s.log.Warn("cache del dashboard no disponible", map[string]any{"error": err.Error()})
		}
		metrics.DashboardCacheMisses.Inc()
	}

	sum, err := s.build(ctx, petID, date)
	if err != nil {
		return Summary{}, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(sum); err == nil {
			if err := s.cache.Set(ctx, key, raw, summaryTTL); err != nil {
				s.log.Warn("no se pudo escribir el cache del dashboard", map[string]any{"error": err.Error()})
			}
		}
	}
	return sum, nil
}

func (s *Service) build(ctx context.Context, petID string, date time.Time) (Summary, error) {
	p, err := s.pets.GetByID(ctx, petID)
	if err != nil {
		return Summary{}, ErrNotFound
	}

	sum := Summary{
		PetID:       p.ID,
		PetName:     p.Name,
		Date:        recurrence.DateKey(date),
		GeneratedAt: s.now(),
	}

	meals, err := s.feeding.ListMeals(ctx, p.ID, date)
	if err != nil {
		return Summary{}, err
	}
	sum.Meals = summarizeMeals(meals)

	entries, err := s.care.ListByPet(ctx, p.ID, carelog.ListFilter{Limit: 100})
	if err != nil {
		return Summary{}, err
	}
	sum.Care = summarizeCare(entries, date)

	bks, err := s.bookings.ListByOwner(ctx, p.OwnerUserID)
	if err != nil {
		return Summary{}, err
	}
	sum.UpcomingBookings = upcomingBookings(bks, p.ID, date)

	return sum, nil
}

func summarizeMeals(meals []feeding.Meal) MealsSummary {
	ms := MealsSummary{ByStatus: map[string]int{}}
	for _, m := range meals {
		ms.Total++
		ms.ByStatus[string(m.Status)]++
		if m.Status == recurrence.StatusScheduled && ms.NextAt == "" {
			// la lista viene ordenada por hora
			ms.NextAt = m.TimeOfDay
			ms.NextLabel = m.Label
		}
	}
	return ms
}

func summarizeCare(entries []carelog.Entry, date time.Time) CareSummary {
	cs := CareSummary{}
	weekAgo := date.AddDate(0, 0, -7)
	for _, e := range entries {
		if e.Status != carelog.EntryStatusActive {
			continue
		}
		if cs.LastEntryAt == nil || e.OccurredAt.After(*cs.LastEntryAt) {
			t := e.OccurredAt
			cs.LastEntryAt = &t
		}
		if e.OccurredAt.After(weekAgo) {
			cs.Last7Days++
		}
		if e.Category == carelog.CategoryWeight && e.WeightKg > 0 && cs.LastWeightKg == 0 {
			// las entradas vienen ordenadas de más reciente a más vieja
			cs.LastWeightKg = e.WeightKg
		}
	}
	return cs
}

func upcomingBookings(bks []bookings.Booking, petID string, date time.Time) []BookingSummary {
	out := make([]BookingSummary, 0)
	day := recurrence.DateKey(date)
	for _, b := range bks {
		if b.PetID != petID {
			continue
		}
		if b.Status.Terminal() {
			continue
		}
		if recurrence.DateKey(b.Date) < day {
			continue
		}
		out = append(out, BookingSummary{
			ID:        b.ID,
			Service:   string(b.Service),
			Date:      recurrence.DateKey(b.Date),
			StartTime: b.StartTime,
			Status:    string(b.Status),
		})
	}
	return out
}
