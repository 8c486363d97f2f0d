package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"druma-petcare/internal/domain/feeding"
	"druma-petcare/internal/platform/logger"
	"druma-petcare/internal/recurrence"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mealStore implementa lo mínimo de feeding.Repository que el job toca.
type mealStore struct {
	mu    sync.Mutex
	meals map[string]feeding.Meal
}

func newMealStore() *mealStore {
	return &mealStore{meals: map[string]feeding.Meal{}}
}

func (s *mealStore) CreateSchedule(context.Context, feeding.Schedule) error { return nil }
func (s *mealStore) UpdateSchedule(context.Context, feeding.Schedule) error { return nil }
func (s *mealStore) GetSchedule(context.Context, string) (feeding.Schedule, error) {
	return feeding.Schedule{}, nil
}
func (s *mealStore) ListSchedulesByPet(context.Context, string) ([]feeding.Schedule, error) {
	return nil, nil
}
func (s *mealStore) CreateMealIfAbsent(context.Context, feeding.Meal) (bool, error) {
	return false, nil
}
func (s *mealStore) ListMealsByPetAndDate(context.Context, string, time.Time) ([]feeding.Meal, error) {
	return nil, nil
}
func (s *mealStore) ListMealsByPetRange(context.Context, string, time.Time, time.Time) ([]feeding.Meal, error) {
	return nil, nil
}

func (s *mealStore) GetMeal(_ context.Context, id string) (feeding.Meal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meals[id], nil
}

func (s *mealStore) UpdateMeal(_ context.Context, m feeding.Meal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meals[m.ID] = m
	return nil
}

func (s *mealStore) ListOverdueScheduled(_ context.Context, cutoff time.Time) ([]feeding.Meal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []feeding.Meal
	for _, m := range s.meals {
		if m.Status != recurrence.StatusScheduled {
			continue
		}
		offset, _ := recurrence.ParseTimeOfDay(m.TimeOfDay)
		at := time.Date(m.Date.Year(), m.Date.Month(), m.Date.Day(), 0, 0, 0, 0, time.UTC).Add(offset)
		if !at.After(cutoff) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *mealStore) status(id string) recurrence.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meals[id].Status
}

func TestAutoCompleteCompletesOverdueMealsOnTick(t *testing.T) {
	store := newMealStore()
	start := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	// Desayuno de las 08:00 (vencido) y cena de las 20:00 (futura).
	store.meals["m1"] = feeding.Meal{
		ID: "m1", PetID: "pet-1", Date: start, TimeOfDay: "08:00",
		FoodRef: "food-A", QuantityGrams: 100, Status: recurrence.StatusScheduled,
	}
	store.meals["m2"] = feeding.Meal{
		ID: "m2", PetID: "pet-1", Date: start, TimeOfDay: "20:00",
		FoodRef: "food-A", QuantityGrams: 100, Status: recurrence.StatusScheduled,
	}

	clock := clockwork.NewFakeClockAt(start)
	svc := feeding.NewService(store, logger.NewNop())
	job := NewAutoComplete(svc, clock, logger.NewNop(), 30*time.Minute, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		job.Run(ctx)
	}()

	// Un tick: el corte es 08:30, así que solo el desayuno se completa.
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Minute)

	assert.Eventually(t, func() bool {
		return store.status("m1") == recurrence.StatusCompleted
	}, time.Second, 5*time.Millisecond, "el desayuno vencido debía completarse")
	assert.Equal(t, recurrence.StatusScheduled, store.status("m2"), "la cena futura no debía tocarse")

	cancel()
	<-done
}
