package feeding

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"druma-petcare/internal/platform/logger"
	"druma-petcare/internal/platform/metrics"
	"druma-petcare/internal/recurrence"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
)

type Service struct {
	repo Repository
	log  logger.Logger
	now  func() time.Time
}

func NewService(repo Repository, log logger.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

type ScheduleInput struct {
	Name       string
	DaysOfWeek []time.Weekday
	Slots      []MealSlot
	ValidFrom  time.Time
	ValidUntil *time.Time
	Active     bool
}

// CreateSchedule da de alta un horario. Las invariantes (días, horas HH:MM,
// ventana de vigencia) las valida el motor de recurrencias vía NewRule; acá
// solo armamos el modelo de dominio.
func (s *Service) CreateSchedule(ctx context.Context, petID, ownerUserID string, in ScheduleInput) (Schedule, error) {
	petID = strings.TrimSpace(petID)
	ownerUserID = strings.TrimSpace(ownerUserID)
	if petID == "" || ownerUserID == "" {
		return Schedule{}, ErrInvalidInput
	}

	now := s.now()
	sched := Schedule{
		ID:          uuid.NewString(),
		PetID:       petID,
		OwnerUserID: ownerUserID,
		Name:        strings.TrimSpace(in.Name),
		DaysOfWeek:  in.DaysOfWeek,
		Slots:       in.Slots,
		ValidFrom:   in.ValidFrom,
		ValidUntil:  in.ValidUntil,
		Active:      in.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := sched.Rule().Validate(); err != nil {
		return Schedule{}, errors.Join(ErrInvalidInput, err)
	}
	for _, slot := range sched.Slots {
		if strings.TrimSpace(slot.FoodRef) == "" {
			return Schedule{}, errors.Join(ErrInvalidInput, errors.New("food_ref es obligatorio"))
		}
		if slot.QuantityGrams <= 0 {
			return Schedule{}, errors.Join(ErrInvalidInput, errors.New("quantity_grams debe ser > 0"))
		}
	}

	if err := s.repo.CreateSchedule(ctx, sched); err != nil {
		return Schedule{}, err
	}
	return sched, nil
}

type ScheduleUpdate struct {
	Name       *string
	DaysOfWeek []time.Weekday
	Slots      []MealSlot
	ValidUntil *time.Time
	Active     *bool
}

// UpdateSchedule edita el horario hacia adelante: las comidas ya
// materializadas conservan su snapshot y no se reescriben.
func (s *Service) UpdateSchedule(ctx context.Context, scheduleID, userID string, in ScheduleUpdate) (Schedule, error) {
	sched, err := s.repo.GetSchedule(ctx, strings.TrimSpace(scheduleID))
	if err != nil {
		return Schedule{}, ErrNotFound
	}
	if sched.OwnerUserID != userID {
		return Schedule{}, ErrForbidden
	}

	if in.Name != nil {
		sched.Name = strings.TrimSpace(*in.Name)
	}
	if in.DaysOfWeek != nil {
		sched.DaysOfWeek = in.DaysOfWeek
	}
	if in.Slots != nil {
		sched.Slots = in.Slots
	}
	if in.ValidUntil != nil {
		sched.ValidUntil = in.ValidUntil
	}
	if in.Active != nil {
		sched.Active = *in.Active
	}
	sched.UpdatedAt = s.now()

	if err := sched.Rule().Validate(); err != nil {
		return Schedule{}, errors.Join(ErrInvalidInput, err)
	}

	if err := s.repo.UpdateSchedule(ctx, sched); err != nil {
		return Schedule{}, err
	}
	return sched, nil
}

func (s *Service) GetSchedule(ctx context.Context, scheduleID string) (Schedule, error) {
	sched, err := s.repo.GetSchedule(ctx, strings.TrimSpace(scheduleID))
	if err != nil {
		return Schedule{}, ErrNotFound
	}
	return sched, nil
}

func (s *Service) ListSchedules(ctx context.Context, petID string) ([]Schedule, error) {
	return s.repo.ListSchedulesByPet(ctx, petID)
}

// MaterializationReport resume una corrida de materialización. Los saltos
// por validación se loguean y cuentan, nunca abortan la corrida.
type MaterializationReport struct {
	Created              int
	DuplicatesSuppressed int
	SkippedRules         []recurrence.SkippedRule
	SkippedCandidates    []recurrence.SkippedCandidate
}

// MaterializeDay expande los horarios de la mascota para una fecha y persiste
// las comidas nuevas. Idempotente: re-ejecutar el mismo día no duplica (dedup
// en memoria contra lo existente más insert-or-ignore en el repo).
func (s *Service) MaterializeDay(ctx context.Context, petID string, date time.Time) ([]Meal, MaterializationReport, error) {
	petID = strings.TrimSpace(petID)
	if petID == "" || date.IsZero() {
		return nil, MaterializationReport{}, ErrInvalidInput
	}

	schedules, err := s.repo.ListSchedulesByPet(ctx, petID)
	if err != nil {
		return nil, MaterializationReport{}, err
	}
	existing, err := s.repo.ListMealsByPetAndDate(ctx, petID, date)
	if err != nil {
		return nil, MaterializationReport{}, err
	}

	rules := make([]recurrence.Rule, 0, len(schedules))
	for _, sched := range schedules {
		rules = append(rules, sched.Rule())
	}
	occs := make([]recurrence.Occurrence, 0, len(existing))
	for _, m := range existing {
		occs = append(occs, m.Occurrence())
	}

	started := time.Now()
	res := recurrence.Expand(rules, date, occs)
	metrics.ExpansionDuration.Observe(time.Since(started).Seconds())

	report := MaterializationReport{
		DuplicatesSuppressed: res.DuplicatesSuppressed,
		SkippedRules:         res.SkippedRules,
		SkippedCandidates:    res.SkippedCandidates,
	}

	for _, sk := range res.SkippedRules {
		metrics.SkippedItems.WithLabelValues("invalid_rule").Inc()
		s.log.Warn("horario saltado en materialización", map[string]any{
			"schedule_id": sk.RuleID,
			"pet_id":      petID,
			"reason":      sk.Reason,
		})
	}
	for _, sk := range res.SkippedCandidates {
		metrics.SkippedItems.WithLabelValues("invalid_candidate").Inc()
		s.log.Warn("comida candidata saltada en materialización", map[string]any{
			"schedule_id": sk.RuleID,
			"time_of_day": sk.TimeOfDay,
			"reason":      sk.Reason,
		})
	}
	if res.DuplicatesSuppressed > 0 {
		metrics.DuplicatesSuppressed.Add(float64(res.DuplicatesSuppressed))
	}

	created := make([]Meal, 0, len(res.Candidates))
	now := s.now()
	for _, cand := range res.Candidates {
		m := mealFromOccurrence(cand)
		m.ID = uuid.NewString()
		m.CreatedAt = now

		ok, err := s.repo.CreateMealIfAbsent(ctx, m)
		if err != nil {
			return created, report, err
		}
		if !ok {
			// carrera con otra materialización: el repo ya la tenía
			report.DuplicatesSuppressed++
			metrics.DuplicatesSuppressed.Inc()
			continue
		}
		created = append(created, m)
	}

	if n := len(created); n > 0 {
		metrics.MealsGenerated.Add(float64(n))
	}
	report.Created = len(created)

	s.log.Info("materialización de comidas", map[string]any{
		"pet_id":     petID,
		"date":       recurrence.DateKey(date),
		"created":    report.Created,
		"duplicates": report.DuplicatesSuppressed,
		"skipped":    len(res.SkippedRules) + len(res.SkippedCandidates),
	})

	return created, report, nil
}

// MaterializeRange materializa día por día el intervalo [from, to] inclusive.
func (s *Service) MaterializeRange(ctx context.Context, petID string, from, to time.Time) ([]Meal, MaterializationReport, error) {
	if recurrence.DateKey(to) < recurrence.DateKey(from) {
		return nil, MaterializationReport{}, ErrInvalidInput
	}

	var all []Meal
	var total MaterializationReport
	for d := from; recurrence.DateKey(d) <= recurrence.DateKey(to); d = d.AddDate(0, 0, 1) {
		meals, rep, err := s.MaterializeDay(ctx, petID, d)
		if err != nil {
			return all, total, err
		}
		all = append(all, meals...)
		total.Created += rep.Created
		total.DuplicatesSuppressed += rep.DuplicatesSuppressed
		total.SkippedRules = append(total.SkippedRules, rep.SkippedRules...)
		total.SkippedCandidates = append(total.SkippedCandidates, rep.SkippedCandidates...)
	}
	return all, total, nil
}

// ListMeals devuelve las comidas de una fecha, ordenadas por hora.
func (s *Service) ListMeals(ctx context.Context, petID string, date time.Time) ([]Meal, error) {
	meals, err := s.repo.ListMealsByPetAndDate(ctx, petID, date)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(meals, func(i, j int) bool {
		return meals[i].TimeOfDay < meals[j].TimeOfDay
	})
	return meals, nil
}

type TransitionInput struct {
	Reason        string
	QuantityGrams float64
	FoodRef       string
}

// TransitionMeal aplica la máquina de estados de la comida y persiste el
// resultado. Los estados finales (completed/skipped/modified) son inmutables.
func (s *Service) TransitionMeal(ctx context.Context, mealID string, action recurrence.Action, in TransitionInput) (Meal, error) {
	m, err := s.repo.GetMeal(ctx, strings.TrimSpace(mealID))
	if err != nil {
		return Meal{}, ErrNotFound
	}

	occ, err := recurrence.Transition(m.Occurrence(), action, recurrence.TransitionInput{
		Reason:     in.Reason,
		Quantity:   in.QuantityGrams,
		PayloadRef: in.FoodRef,
	}, s.now())
	if err != nil {
		metrics.MealTransitions.WithLabelValues(string(action), "invalid").Inc()
		return Meal{}, err
	}

	updated := mealFromOccurrence(occ)
	updated.CreatedAt = m.CreatedAt
	if err := s.repo.UpdateMeal(ctx, updated); err != nil {
		return Meal{}, err
	}

	metrics.MealTransitions.WithLabelValues(string(action), "ok").Inc()
	return updated, nil
}

// CompleteOverdue completa comidas en scheduled cuya hora ya pasó respecto
// al corte. Lo invoca el job periódico; devuelve cuántas completó.
func (s *Service) CompleteOverdue(ctx context.Context, cutoff time.Time) (int, error) {
	overdue, err := s.repo.ListOverdueScheduled(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	done := 0
	for _, m := range overdue {
		occ, err := recurrence.Transition(m.Occurrence(), recurrence.ActionComplete, recurrence.TransitionInput{}, s.now())
		if err != nil {
			// carrera con una transición manual: ya quedó terminal, seguimos
			continue
		}
		updated := mealFromOccurrence(occ)
		updated.CreatedAt = m.CreatedAt
		if err := s.repo.UpdateMeal(ctx, updated); err != nil {
			return done, err
		}
		done++
	}

	if done > 0 {
		metrics.MealsAutoCompleted.Add(float64(done))
		s.log.Info("comidas auto-completadas", map[string]any{
			"count":  done,
			"cutoff": cutoff.Format(time.RFC3339),
		})
	}
	return done, nil
}
