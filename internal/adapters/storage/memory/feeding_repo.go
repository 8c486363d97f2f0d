package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"druma-petcare/internal/domain/feeding"
	"druma-petcare/internal/recurrence"
)

type feedingRepo struct {
	mu        sync.RWMutex
	schedules map[string]feeding.Schedule
	meals     map[string]feeding.Meal
	mealKeys  map[string]string // tupla de dedup -> meal ID
}

func NewFeedingRepo() feeding.Repository {
	return &feedingRepo{
		schedules: make(map[string]feeding.Schedule),
		meals:     make(map[string]feeding.Meal),
		mealKeys:  make(map[string]string),
	}
}

func (r *feedingRepo) CreateSchedule(ctx context.Context, s feeding.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedules[s.ID] = s
	return nil
}

func (r *feedingRepo) UpdateSchedule(ctx context.Context, s feeding.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.schedules[s.ID]; !ok {
		return ErrNotFound
	}
	r.schedules[s.ID] = s
	return nil
}

func (r *feedingRepo) GetSchedule(ctx context.Context, id string) (feeding.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.schedules[id]
	if !ok {
		return feeding.Schedule{}, ErrNotFound
	}
	return s, nil
}

func (r *feedingRepo) ListSchedulesByPet(ctx context.Context, petID string) ([]feeding.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]feeding.Schedule, 0)
	for _, s := range r.schedules {
		if s.PetID == petID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *feedingRepo) CreateMealIfAbsent(ctx context.Context, m feeding.Meal) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := m.Occurrence().Key()
	if _, dup := r.mealKeys[key]; dup {
		return false, nil
	}
	r.mealKeys[key] = m.ID
	r.meals[m.ID] = m
	return true, nil
}

func (r *feedingRepo) GetMeal(ctx context.Context, id string) (feeding.Meal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.meals[id]
	if !ok {
		return feeding.Meal{}, ErrNotFound
	}
	return m, nil
}

func (r *feedingRepo) UpdateMeal(ctx context.Context, m feeding.Meal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.meals[m.ID]; !ok {
		return ErrNotFound
	}
	r.meals[m.ID] = m
	return nil
}

func (r *feedingRepo) ListMealsByPetAndDate(ctx context.Context, petID string, date time.Time) ([]feeding.Meal, error) {
	return r.ListMealsByPetRange(ctx, petID, date, date)
}

func (r *feedingRepo) ListMealsByPetRange(ctx context.Context, petID string, from, to time.Time) ([]feeding.Meal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fromKey, toKey := recurrence.DateKey(from), recurrence.DateKey(to)
	out := make([]feeding.Meal, 0)
	for _, m := range r.meals {
		day := recurrence.DateKey(m.Date)
		if m.PetID == petID && day >= fromKey && day <= toKey {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].TimeOfDay < out[j].TimeOfDay
	})
	return out, nil
}

func (r *feedingRepo) ListOverdueScheduled(ctx context.Context, cutoff time.Time) ([]feeding.Meal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]feeding.Meal, 0)
	for _, m := range r.meals {
		if m.Status != recurrence.StatusScheduled {
			continue
		}
		offset, err := recurrence.ParseTimeOfDay(m.TimeOfDay)
		if err != nil {
			continue
		}
		at := time.Date(m.Date.Year(), m.Date.Month(), m.Date.Day(), 0, 0, 0, 0, time.UTC).Add(offset)
		if !at.After(cutoff) {
			out = append(out, m)
		}
	}
	return out, nil
}
