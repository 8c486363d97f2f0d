package feeding

import (
	"context"
	"errors"
	"testing"
	"time"

	"druma-petcare/internal/platform/logger"
	"druma-petcare/internal/recurrence"
)

// testRepo es un repositorio en memoria para los tests del servicio.
type testRepo struct {
	schedules map[string]Schedule
	meals     map[string]Meal
	mealKeys  map[string]struct{}
}

func newTestRepo() *testRepo {
	return &testRepo{
		schedules: map[string]Schedule{},
		meals:     map[string]Meal{},
		mealKeys:  map[string]struct{}{},
	}
}

func (r *testRepo) CreateSchedule(_ context.Context, s Schedule) error {
	r.schedules[s.ID] = s
	return nil
}

func (r *testRepo) UpdateSchedule(_ context.Context, s Schedule) error {
	if _, ok := r.schedules[s.ID]; !ok {
		return errors.New("schedule not found")
	}
	r.schedules[s.ID] = s
	return nil
}

func (r *testRepo) GetSchedule(_ context.Context, id string) (Schedule, error) {
	s, ok := r.schedules[id]
	if !ok {
		return Schedule{}, errors.New("schedule not found")
	}
	return s, nil
}

func (r *testRepo) ListSchedulesByPet(_ context.Context, petID string) ([]Schedule, error) {
	var out []Schedule
	for _, s := range r.schedules {
		if s.PetID == petID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *testRepo) CreateMealIfAbsent(_ context.Context, m Meal) (bool, error) {
	key := m.Occurrence().Key()
	if _, dup := r.mealKeys[key]; dup {
		return false, nil
	}
	r.mealKeys[key] = struct{}{}
	r.meals[m.ID] = m
	return true, nil
}

func (r *testRepo) GetMeal(_ context.Context, id string) (Meal, error) {
	m, ok := r.meals[id]
	if !ok {
		return Meal{}, errors.New("meal not found")
	}
	return m, nil
}

func (r *testRepo) UpdateMeal(_ context.Context, m Meal) error {
	if _, ok := r.meals[m.ID]; !ok {
		return errors.New("meal not found")
	}
	r.meals[m.ID] = m
	return nil
}

func (r *testRepo) ListMealsByPetAndDate(_ context.Context, petID string, date time.Time) ([]Meal, error) {
	var out []Meal
	for _, m := range r.meals {
		if m.PetID == petID && recurrence.DateKey(m.Date) == recurrence.DateKey(date) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *testRepo) ListMealsByPetRange(_ context.Context, petID string, from, to time.Time) ([]Meal, error) {
	var out []Meal
	for _, m := range r.meals {
		day := recurrence.DateKey(m.Date)
		if m.PetID == petID && day >= recurrence.DateKey(from) && day <= recurrence.DateKey(to) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *testRepo) ListOverdueScheduled(_ context.Context, cutoff time.Time) ([]Meal, error) {
	var out []Meal
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

func newTestService(repo *testRepo) *Service {
	svc := NewService(repo, logger.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC) }
	return svc
}

func mondaySchedule(t *testing.T, svc *Service) Schedule {
	t.Helper()
	sched, err := svc.CreateSchedule(context.Background(), "pet-1", "owner-1", ScheduleInput{
		Name:       "dieta base",
		DaysOfWeek: []time.Weekday{time.Monday},
		Slots: []MealSlot{
			{TimeOfDay: "08:00", Label: "desayuno", FoodRef: "food-A", QuantityGrams: 150},
			{TimeOfDay: "19:30", Label: "cena", FoodRef: "food-A", QuantityGrams: 200},
		},
		ValidFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Active:    true,
	})
	if err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	return sched
}

func TestCreateScheduleValidation(t *testing.T) {
	svc := newTestService(newTestRepo())

	base := ScheduleInput{
		DaysOfWeek: []time.Weekday{time.Monday},
		Slots:      []MealSlot{{TimeOfDay: "08:00", FoodRef: "food-A", QuantityGrams: 100}},
		ValidFrom:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Active:     true,
	}

	bad := base
	bad.Slots = []MealSlot{{TimeOfDay: "25:00", FoodRef: "food-A", QuantityGrams: 100}}
	if _, err := svc.CreateSchedule(context.Background(), "pet-1", "owner-1", bad); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("hora inválida: esperaba ErrInvalidInput, obtuve %v", err)
	}

	bad = base
	bad.Slots = []MealSlot{{TimeOfDay: "08:00", FoodRef: "  ", QuantityGrams: 100}}
	if _, err := svc.CreateSchedule(context.Background(), "pet-1", "owner-1", bad); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("food_ref vacío: esperaba ErrInvalidInput, obtuve %v", err)
	}

	bad = base
	bad.Slots = []MealSlot{{TimeOfDay: "08:00", FoodRef: "food-A", QuantityGrams: 0}}
	if _, err := svc.CreateSchedule(context.Background(), "pet-1", "owner-1", bad); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("quantity cero: esperaba ErrInvalidInput, obtuve %v", err)
	}

	if _, err := svc.CreateSchedule(context.Background(), "pet-1", "owner-1", base); err != nil {
		t.Fatalf("horario válido rechazado: %v", err)
	}
}

func TestMaterializeDayIsIdempotent(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)
	mondaySchedule(t, svc)

	monday := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	meals, rep, err := svc.MaterializeDay(context.Background(), "pet-1", monday)
	if err != nil {
		t.Fatalf("MaterializeDay: %v", err)
	}
	if len(meals) != 2 || rep.Created != 2 {
		t.Fatalf("esperaba 2 comidas creadas, obtuve %d (report %+v)", len(meals), rep)
	}
	if meals[0].TimeOfDay != "08:00" || meals[1].TimeOfDay != "19:30" {
		t.Fatalf("orden por hora incorrecto: %s, %s", meals[0].TimeOfDay, meals[1].TimeOfDay)
	}
	if meals[0].ID == "" || meals[0].ID == meals[1].ID {
		t.Fatalf("IDs de comida inválidos: %q, %q", meals[0].ID, meals[1].ID)
	}

	// Segunda corrida: mismo día, cero creadas, todo suprimido como duplicado.
	again, rep2, err := svc.MaterializeDay(context.Background(), "pet-1", monday)
	if err != nil {
		t.Fatalf("MaterializeDay (segunda corrida): %v", err)
	}
	if len(again) != 0 || rep2.Created != 0 {
		t.Fatalf("la segunda corrida no debería crear comidas: %d", len(again))
	}
	if rep2.DuplicatesSuppressed != 2 {
		t.Fatalf("esperaba 2 duplicados suprimidos, obtuve %d", rep2.DuplicatesSuppressed)
	}
}

func TestMaterializeDaySkipsBrokenScheduleButNotTheRest(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)
	mondaySchedule(t, svc)

	// Horario roto sembrado directo en el repo (el servicio no lo dejaría entrar).
	repo.schedules["broken"] = Schedule{
		ID:          "broken",
		PetID:       "pet-1",
		OwnerUserID: "owner-1",
		DaysOfWeek:  []time.Weekday{time.Monday},
		Slots:       nil, // sin entradas: regla activa inválida
		ValidFrom:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Active:      true,
	}

	meals, rep, err := svc.MaterializeDay(context.Background(), "pet-1", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("MaterializeDay: %v", err)
	}
	if len(meals) != 2 {
		t.Fatalf("el horario roto no debe bloquear al válido: esperaba 2 comidas, obtuve %d", len(meals))
	}
	if len(rep.SkippedRules) != 1 || rep.SkippedRules[0].RuleID != "broken" {
		t.Fatalf("esperaba el horario roto reportado como saltado: %+v", rep.SkippedRules)
	}
}

func TestMaterializeRangeCoversEachDay(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)

	if _, err := svc.CreateSchedule(context.Background(), "pet-1", "owner-1", ScheduleInput{
		DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday},
		Slots:      []MealSlot{{TimeOfDay: "08:00", Label: "desayuno", FoodRef: "food-A", QuantityGrams: 100}},
		ValidFrom:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Active:     true,
	}); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	// Lunes 15 a domingo 21: aplica lunes y miércoles.
	meals, rep, err := svc.MaterializeRange(context.Background(), "pet-1",
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("MaterializeRange: %v", err)
	}
	if rep.Created != 2 || len(meals) != 2 {
		t.Fatalf("esperaba 2 comidas en la semana, obtuve %d", len(meals))
	}
	got := map[string]bool{}
	for _, m := range meals {
		got[recurrence.DateKey(m.Date)] = true
	}
	if !got["2024-01-15"] || !got["2024-01-17"] {
		t.Fatalf("fechas materializadas incorrectas: %v", got)
	}
}

func TestScheduleEditDoesNotRewriteMaterializedMeals(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)
	sched := mondaySchedule(t, svc)

	monday := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	meals, _, err := svc.MaterializeDay(context.Background(), "pet-1", monday)
	if err != nil {
		t.Fatalf("MaterializeDay: %v", err)
	}

	newSlots := []MealSlot{{TimeOfDay: "08:00", Label: "desayuno", FoodRef: "food-B", QuantityGrams: 999}}
	if _, err := svc.UpdateSchedule(context.Background(), sched.ID, "owner-1", ScheduleUpdate{Slots: newSlots}); err != nil {
		t.Fatalf("UpdateSchedule: %v", err)
	}

	for _, m := range meals {
		cur, err := repo.GetMeal(context.Background(), m.ID)
		if err != nil {
			t.Fatalf("GetMeal: %v", err)
		}
		if cur.FoodRef != m.FoodRef || cur.QuantityGrams != m.QuantityGrams {
			t.Fatalf("el snapshot de la comida cambió tras editar el horario: %+v", cur)
		}
	}
}

func TestUpdateScheduleOnlyOwner(t *testing.T) {
	svc := newTestService(newTestRepo())
	sched := mondaySchedule(t, svc)

	if _, err := svc.UpdateSchedule(context.Background(), sched.ID, "intruso", ScheduleUpdate{}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("esperaba ErrForbidden, obtuve %v", err)
	}
}

func TestTransitionMealTerminalStates(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)
	mondaySchedule(t, svc)

	meals, _, err := svc.MaterializeDay(context.Background(), "pet-1", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("MaterializeDay: %v", err)
	}

	done, err := svc.TransitionMeal(context.Background(), meals[0].ID, recurrence.ActionComplete, TransitionInput{})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != recurrence.StatusCompleted || done.CompletedAt == nil {
		t.Fatalf("complete no dejó el estado esperado: %+v", done)
	}

	// Estado final: cualquier transición posterior se rechaza y no muta nada.
	if _, err := svc.TransitionMeal(context.Background(), meals[0].ID, recurrence.ActionSkip, TransitionInput{Reason: "tarde"}); !errors.Is(err, recurrence.ErrInvalidTransition) {
		t.Fatalf("esperaba ErrInvalidTransition sobre comida completada, obtuve %v", err)
	}
	cur, _ := repo.GetMeal(context.Background(), meals[0].ID)
	if cur.Status != recurrence.StatusCompleted || cur.SkipReason != "" {
		t.Fatalf("la comida terminal fue mutada: %+v", cur)
	}

	skipped, err := svc.TransitionMeal(context.Background(), meals[1].ID, recurrence.ActionSkip, TransitionInput{Reason: "sin apetito"})
	if err != nil {
		t.Fatalf("skip: %v", err)
	}
	if skipped.Status != recurrence.StatusSkipped || skipped.SkipReason != "sin apetito" {
		t.Fatalf("skip no dejó el estado esperado: %+v", skipped)
	}
}

func TestTransitionMealModifySnapshot(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)
	mondaySchedule(t, svc)

	meals, _, err := svc.MaterializeDay(context.Background(), "pet-1", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("MaterializeDay: %v", err)
	}

	mod, err := svc.TransitionMeal(context.Background(), meals[0].ID, recurrence.ActionModify, TransitionInput{
		QuantityGrams: 80,
		FoodRef:       "food-B",
	})
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if mod.Status != recurrence.StatusModified || mod.QuantityGrams != 80 || mod.FoodRef != "food-B" {
		t.Fatalf("modify no aplicó los cambios: %+v", mod)
	}
}

func TestCompleteOverdueRespetaElCorte(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)
	mondaySchedule(t, svc)

	// Desayuno 08:00 y cena 19:30 del lunes 15; corte al mediodía.
	if _, _, err := svc.MaterializeDay(context.Background(), "pet-1", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("MaterializeDay: %v", err)
	}

	done, err := svc.CompleteOverdue(context.Background(), time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("CompleteOverdue: %v", err)
	}
	if done != 1 {
		t.Fatalf("esperaba 1 comida auto-completada, obtuve %d", done)
	}

	byTime := map[string]recurrence.Status{}
	for _, m := range repo.meals {
		byTime[m.TimeOfDay] = m.Status
	}
	if byTime["08:00"] != recurrence.StatusCompleted {
		t.Fatalf("el desayuno vencido debía quedar completado: %v", byTime)
	}
	if byTime["19:30"] != recurrence.StatusScheduled {
		t.Fatalf("la cena futura no debía tocarse: %v", byTime)
	}

	// Re-ejecución con el mismo corte: nada nuevo que completar.
	again, err := svc.CompleteOverdue(context.Background(), time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("CompleteOverdue (segunda corrida): %v", err)
	}
	if again != 0 {
		t.Fatalf("la segunda corrida no debía completar nada: %d", again)
	}
}
