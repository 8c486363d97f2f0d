package feeding

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"druma-petcare/internal/domain/caregivers"
	"druma-petcare/internal/domain/pets"
	"druma-petcare/internal/middleware"
	"druma-petcare/internal/ports/auth"
	"druma-petcare/internal/recurrence"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, petsSvc *pets.Service, grantsSvc *caregivers.Service) {
	r.Route("/pets/{petID}/feeding", func(fr chi.Router) {
		fr.Post("/schedules", createScheduleHandler(svc, petsSvc, grantsSvc))
		fr.Get("/schedules", listSchedulesHandler(svc, petsSvc, grantsSvc))
		fr.Patch("/schedules/{scheduleID}", updateScheduleHandler(svc, petsSvc))

		fr.Post("/materialize", materializeHandler(svc, petsSvc, grantsSvc))

		fr.Get("/meals", listMealsHandler(svc, petsSvc, grantsSvc))
		fr.Post("/meals/{mealID}/complete", transitionMealHandler(svc, petsSvc, grantsSvc, recurrence.ActionComplete))
		fr.Post("/meals/{mealID}/skip", transitionMealHandler(svc, petsSvc, grantsSvc, recurrence.ActionSkip))
		fr.Post("/meals/{mealID}/modify", transitionMealHandler(svc, petsSvc, grantsSvc, recurrence.ActionModify))
	})
}

type mealSlotPayload struct {
	TimeOfDay     string  `json:"time_of_day"` // HH:MM
	Label         string  `json:"label"`
	FoodRef       string  `json:"food_ref"`
	QuantityGrams float64 `json:"quantity_grams"`
}

type createScheduleRequest struct {
	Name       string            `json:"name"`
	DaysOfWeek []int             `json:"days_of_week"` // 0=domingo ... 6=sábado
	Slots      []mealSlotPayload `json:"slots"`
	ValidFrom  string            `json:"valid_from"`            // YYYY-MM-DD
	ValidUntil string            `json:"valid_until,omitempty"` // YYYY-MM-DD, vacío = sin fin
	Active     *bool             `json:"active,omitempty"`      // default true
}

type scheduleResponse struct {
	ID         string            `json:"id"`
	PetID      string            `json:"pet_id"`
	Name       string            `json:"name"`
	DaysOfWeek []int             `json:"days_of_week"`
	Slots      []mealSlotPayload `json:"slots"`
	ValidFrom  string            `json:"valid_from"`
	ValidUntil string            `json:"valid_until,omitempty"`
	Active     bool              `json:"active"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

type mealResponse struct {
	ID            string     `json:"id"`
	ScheduleID    string     `json:"schedule_id"`
	PetID         string     `json:"pet_id"`
	Date          string     `json:"date"` // YYYY-MM-DD
	TimeOfDay     string     `json:"time_of_day"`
	Label         string     `json:"label"`
	FoodRef       string     `json:"food_ref"`
	QuantityGrams float64    `json:"quantity_grams"`
	Status        string     `json:"status"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	SkipReason    string     `json:"skip_reason,omitempty"`
}

type materializeRequest struct {
	Date string `json:"date"`           // YYYY-MM-DD
	Days int    `json:"days,omitempty"` // cuántos días desde date (default 1, máx 31)
}

type materializeResponse struct {
	Meals                []mealResponse `json:"meals"`
	Created              int            `json:"created"`
	DuplicatesSuppressed int            `json:"duplicates_suppressed"`
	SkippedRules         int            `json:"skipped_rules"`
	SkippedCandidates    int            `json:"skipped_candidates"`
}

type transitionRequest struct {
	Reason        string  `json:"reason,omitempty"`         // para skip
	QuantityGrams float64 `json:"quantity_grams,omitempty"` // para modify
	FoodRef       string  `json:"food_ref,omitempty"`       // para modify
}

// createScheduleHandler godoc
// @Summary Crear horario de alimentación
// @Description Da de alta un horario semanal (días, horas, alimento y porción). El dueño siempre puede; un cuidador necesita `feeding:manage`.
// @Tags feeding
// @Accept json
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Param payload body createScheduleRequest true "Horario; fechas en YYYY-MM-DD, horas en HH:MM"
// @Success 201 {object} scheduleResponse
// @Failure 400 {string} string "invalid json / horario inválido"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID}/feeding/schedules [post]
func createScheduleHandler(svc *Service, petsSvc *pets.Service, grantsSvc *caregivers.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, p, ok := authorizePet(w, r, petsSvc, grantsSvc, caregivers.ScopeFeedingManage)
		if !ok {
			return
		}

		var req createScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in, err := scheduleInputFromRequest(req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		sched, err := svc.CreateSchedule(r.Context(), p.ID, p.OwnerUserID, in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toScheduleResponse(sched))
	}
}

// listSchedulesHandler godoc
// @Summary Listar horarios de alimentación
// @Tags feeding
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Success 200 {array} scheduleResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID}/feeding/schedules [get]
func listSchedulesHandler(svc *Service, petsSvc *pets.Service, grantsSvc *caregivers.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, p, ok := authorizePet(w, r, petsSvc, grantsSvc, caregivers.ScopeFeedingRead)
		if !ok {
			return
		}

		items, err := svc.ListSchedules(r.Context(), p.ID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		out := make([]scheduleResponse, 0, len(items))
		for _, s := range items {
			out = append(out, toScheduleResponse(s))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// updateScheduleHandler godoc
// @Summary Editar horario de alimentación
// @Description Edita el horario hacia adelante; las comidas ya materializadas conservan su snapshot. Solo el dueño.
// @Tags feeding
// @Accept json
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Param scheduleID path string true "ID del horario"
// @Param payload body createScheduleRequest true "Campos a modificar (parcial)"
// @Success 200 {object} scheduleResponse
// @Failure 400 {string} string "invalid json / horario inválido"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet/schedule not found"
// @Router /pets/{petID}/feeding/schedules/{scheduleID} [patch]
func updateScheduleHandler(svc *Service, petsSvc *pets.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		petID := chi.URLParam(r, "petID")
		if _, err := petsSvc.GetByID(r.Context(), petID); err != nil {
			http.Error(w, "pet not found", http.StatusNotFound)
			return
		}

		var req struct {
			Name       *string           `json:"name"`
			DaysOfWeek []int             `json:"days_of_week"`
			Slots      []mealSlotPayload `json:"slots"`
			ValidUntil *string           `json:"valid_until"`
			Active     *bool             `json:"active"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		upd := ScheduleUpdate{Name: req.Name, Active: req.Active}
		if req.DaysOfWeek != nil {
			upd.DaysOfWeek = toWeekdays(req.DaysOfWeek)
		}
		if req.Slots != nil {
			upd.Slots = toSlots(req.Slots)
		}
		if req.ValidUntil != nil {
			t, err := time.Parse("2006-01-02", *req.ValidUntil)
			if err != nil {
				http.Error(w, "valid_until must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			upd.ValidUntil = &t
		}

		sched, err := svc.UpdateSchedule(r.Context(), chi.URLParam(r, "scheduleID"), claims.UserID, upd)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if sched.PetID != petID {
			http.Error(w, "schedule not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, toScheduleResponse(sched))
	}
}

// materializeHandler godoc
// @Summary Materializar comidas
// @Description Expande los horarios activos de la mascota a comidas concretas para la fecha indicada (y opcionalmente los días siguientes). Idempotente: repetir la llamada nunca duplica comidas.
// @Tags feeding
// @Accept json
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Param payload body materializeRequest true "Fecha base y cantidad de días (1-31)"
// @Success 200 {object} materializeResponse
// @Failure 400 {string} string "invalid json / fecha inválida"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID}/feeding/materialize [post]
func materializeHandler(svc *Service, petsSvc *pets.Service, grantsSvc *caregivers.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, p, ok := authorizePet(w, r, petsSvc, grantsSvc, caregivers.ScopeFeedingManage)
		if !ok {
			return
		}

		var req materializeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		days := req.Days
		if days <= 0 {
			days = 1
		}
		if days > 31 {
			http.Error(w, "days must be <= 31", http.StatusBadRequest)
			return
		}

		meals, rep, err := svc.MaterializeRange(r.Context(), p.ID, date, date.AddDate(0, 0, days-1))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		out := materializeResponse{
			Meals:                make([]mealResponse, 0, len(meals)),
			Created:              rep.Created,
			DuplicatesSuppressed: rep.DuplicatesSuppressed,
			SkippedRules:         len(rep.SkippedRules),
			SkippedCandidates:    len(rep.SkippedCandidates),
		}
		for _, m := range meals {
			out.Meals = append(out.Meals, toMealResponse(m))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// listMealsHandler godoc
// @Summary Listar comidas del día
// @Tags feeding
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Param date query string true "Fecha (YYYY-MM-DD)"
// @Success 200 {array} mealResponse
// @Failure 400 {string} string "fecha inválida"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID}/feeding/meals [get]
func listMealsHandler(svc *Service, petsSvc *pets.Service, grantsSvc *caregivers.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, p, ok := authorizePet(w, r, petsSvc, grantsSvc, caregivers.ScopeFeedingRead)
		if !ok {
			return
		}

		date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
		if err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		meals, err := svc.ListMeals(r.Context(), p.ID, date)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		out := make([]mealResponse, 0, len(meals))
		for _, m := range meals {
			out = append(out, toMealResponse(m))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// transitionMealHandler godoc
// @Summary Transicionar una comida
// @Description Completa, salta o modifica una comida programada. Los tres destinos son finales: una comida ya completada/saltada/modificada no admite más transiciones (409).
// @Tags feeding
// @Accept json
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Param mealID path string true "ID de la comida"
// @Param payload body transitionRequest false "reason para skip; quantity_grams/food_ref para modify"
// @Success 200 {object} mealResponse
// @Failure 400 {string} string "invalid json"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet/meal not found"
// @Failure 409 {string} string "la comida ya está en estado final"
// @Router /pets/{petID}/feeding/meals/{mealID}/complete [post]
func transitionMealHandler(svc *Service, petsSvc *pets.Service, grantsSvc *caregivers.Service, action recurrence.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, p, ok := authorizePet(w, r, petsSvc, grantsSvc, caregivers.ScopeMealsTransition)
		if !ok {
			return
		}

		var req transitionRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}

		mealID := chi.URLParam(r, "mealID")
		m, err := svc.repo.GetMeal(r.Context(), mealID)
		if err != nil || m.PetID != p.ID {
			http.Error(w, "meal not found", http.StatusNotFound)
			return
		}

		updated, err := svc.TransitionMeal(r.Context(), mealID, action, TransitionInput{
			Reason:        req.Reason,
			QuantityGrams: req.QuantityGrams,
			FoodRef:       req.FoodRef,
		})
		if err != nil {
			if errors.Is(err, recurrence.ErrInvalidTransition) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toMealResponse(updated))
	}
}

// authorizePet resuelve el patrón común de los handlers: claims presentes,
// mascota existente y owner-bypass o grant con el scope pedido.
func authorizePet(w http.ResponseWriter, r *http.Request, petsSvc *pets.Service, grantsSvc *caregivers.Service, scope caregivers.Scope) (auth.Claims, pets.Pet, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return claims, pets.Pet{}, false
	}

	p, err := petsSvc.GetByID(r.Context(), chi.URLParam(r, "petID"))
	if err != nil {
		http.Error(w, "pet not found", http.StatusNotFound)
		return claims, pets.Pet{}, false
	}

	if err := grantsSvc.Authorize(r.Context(), p.OwnerUserID, p.ID, claims.UserID, scope); err != nil {
		http.Error(w, "forbidden", http.StatusForbidden)
		return claims, pets.Pet{}, false
	}
	return claims, p, true
}

func scheduleInputFromRequest(req createScheduleRequest) (ScheduleInput, error) {
	validFrom, err := time.Parse("2006-01-02", req.ValidFrom)
	if err != nil {
		return ScheduleInput{}, errors.New("valid_from must be YYYY-MM-DD")
	}

	in := ScheduleInput{
		Name:       req.Name,
		DaysOfWeek: toWeekdays(req.DaysOfWeek),
		Slots:      toSlots(req.Slots),
		ValidFrom:  validFrom,
		Active:     true,
	}
	if req.Active != nil {
		in.Active = *req.Active
	}
	if req.ValidUntil != "" {
		until, err := time.Parse("2006-01-02", req.ValidUntil)
		if err != nil {
			return ScheduleInput{}, errors.New("valid_until must be YYYY-MM-DD")
		}
		in.ValidUntil = &until
	}
	return in, nil
}

func toWeekdays(days []int) []time.Weekday {
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		out = append(out, time.Weekday(d))
	}
	return out
}

func toSlots(in []mealSlotPayload) []MealSlot {
	out := make([]MealSlot, 0, len(in))
	for _, s := range in {
		out = append(out, MealSlot{
			TimeOfDay:     s.TimeOfDay,
			Label:         s.Label,
			FoodRef:       s.FoodRef,
			QuantityGrams: s.QuantityGrams,
		})
	}
	return out
}

func toScheduleResponse(s Schedule) scheduleResponse {
	days := make([]int, 0, len(s.DaysOfWeek))
	for _, d := range s.DaysOfWeek {
		days = append(days, int(d))
	}
	slots := make([]mealSlotPayload, 0, len(s.Slots))
	for _, slot := range s.Slots {
		slots = append(slots, mealSlotPayload{
			TimeOfDay:     slot.TimeOfDay,
			Label:         slot.Label,
			FoodRef:       slot.FoodRef,
			QuantityGrams: slot.QuantityGrams,
		})
	}

	resp := scheduleResponse{
		ID:         s.ID,
		PetID:      s.PetID,
		Name:       s.Name,
		DaysOfWeek: days,
		Slots:      slots,
		ValidFrom:  s.ValidFrom.Format("2006-01-02"),
		Active:     s.Active,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
	if s.ValidUntil != nil {
		resp.ValidUntil = s.ValidUntil.Format("2006-01-02")
	}
	return resp
}

func toMealResponse(m Meal) mealResponse {
	return mealResponse{
		ID:            m.ID,
		ScheduleID:    m.ScheduleID,
		PetID:         m.PetID,
		Date:          recurrence.DateKey(m.Date),
		TimeOfDay:     m.TimeOfDay,
		Label:         m.Label,
		FoodRef:       m.FoodRef,
		QuantityGrams: m.QuantityGrams,
		Status:        string(m.Status),
		CompletedAt:   m.CompletedAt,
		SkipReason:    m.SkipReason,
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
