package carelog

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"druma-petcare/internal/domain/caregivers"
	"druma-petcare/internal/domain/pets"
	"druma-petcare/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, petsSvc *pets.Service, grantsSvc *caregivers.Service) {
	r.Route("/pets/{petID}/care", func(cr chi.Router) {
		cr.Post("/", createEntryHandler(svc, petsSvc, grantsSvc))
		cr.Get("/", listEntriesHandler(svc, petsSvc, grantsSvc))

		// Anular (void) un registro: owner o cuidador con care:void
		cr.Post("/{entryID}/void", voidEntryHandler(svc, petsSvc, grantsSvc))
	})
}

// createEntryRequest es el cuerpo para registrar un evento de cuidado.
type createEntryRequest struct {
	Category   Category `json:"category" enums:"EXERCISE,NUTRITION,VETERINARY,GROOMING,WEIGHT,NOTE"`
	OccurredAt string   `json:"occurred_at"` // RFC3339
	Title      string   `json:"title"`
	Notes      string   `json:"notes"`

	DurationMin int     `json:"duration_min,omitempty"`
	DistanceKm  float64 `json:"distance_km,omitempty"`
	Calories    float64 `json:"calories,omitempty"`
	WeightKg    float64 `json:"weight_kg,omitempty"`
	Clinic      string  `json:"clinic,omitempty"`
	VetName     string  `json:"vet_name,omitempty"`

	Source     Source     `json:"source"`     // opcional
	Visibility Visibility `json:"visibility"` // opcional
}

type entryResponse struct {
	ID         string    `json:"id"`
	PetID      string    `json:"pet_id"`
	Category   Category  `json:"category"`
	OccurredAt time.Time `json:"occurred_at"`
	RecordedAt time.Time `json:"recorded_at"`
	Title      string    `json:"title"`
	Notes      string    `json:"notes"`

	DurationMin int     `json:"duration_min,omitempty"`
	DistanceKm  float64 `json:"distance_km,omitempty"`
	Calories    float64 `json:"calories,omitempty"`
	WeightKg    float64 `json:"weight_kg,omitempty"`
	Clinic      string  `json:"clinic,omitempty"`
	VetName     string  `json:"vet_name,omitempty"`

	ActorType  ActorType   `json:"actor_type"`
	ActorID    string      `json:"actor_id"`
	Source     Source      `json:"source"`
	Visibility Visibility  `json:"visibility"`
	Status     EntryStatus `json:"status"`
}

// createEntryHandler godoc
// @Summary Registrar evento de cuidado
// @Description Registra ejercicio, nutrición, visita veterinaria, grooming, peso o nota para la mascota. El dueño siempre puede; un cuidador necesita grant activo con scope `care:log`.
// @Tags carelog
// @Accept json
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Param payload body createEntryRequest true "Datos del registro; occurred_at en RFC3339"
// @Success 201 {object} entryResponse
// @Failure 400 {string} string "invalid json / occurred_at inválido"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID}/care [post]
func createEntryHandler(svc *Service, petsSvc *pets.Service, grantsSvc *caregivers.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		petID := chi.URLParam(r, "petID")
		p, err := petsSvc.GetByID(r.Context(), petID)
		if err != nil {
			http.Error(w, "pet not found", http.StatusNotFound)
			return
		}

		actorType := ActorTypeOwnerUser
		if p.OwnerUserID != claims.UserID {
			if err := grantsSvc.Authorize(r.Context(), p.OwnerUserID, petID, claims.UserID, caregivers.ScopeCareLog); err != nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			actorType = ActorTypeCaregiverUser
		}

		var req createEntryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		t, err := time.Parse(time.RFC3339, req.OccurredAt)
		if err != nil {
			http.Error(w, "occurred_at must be RFC3339", http.StatusBadRequest)
			return
		}

		e, err := svc.Create(r.Context(), petID, Actor{Type: actorType, ID: claims.UserID}, CreateInput{
			Category:    req.Category,
			OccurredAt:  t,
			Title:       req.Title,
			Notes:       req.Notes,
			DurationMin: req.DurationMin,
			DistanceKm:  req.DistanceKm,
			Calories:    req.Calories,
			WeightKg:    req.WeightKg,
			Clinic:      req.Clinic,
			VetName:     req.VetName,
			Source:      req.Source,
			Visibility:  req.Visibility,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusCreated, toEntryResponse(e))
	}
}

// listEntriesHandler godoc
// @Summary Listar historial de cuidado
// @Description Lista el historial de una mascota, filtrable por categorías, rango de fechas y texto. El dueño siempre puede; un cuidador necesita `care:read`.
// @Tags carelog
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Param category query []string false "Categorías a incluir"
// @Param from query string false "Desde (RFC3339)"
// @Param to query string false "Hasta (RFC3339)"
// @Param q query string false "Búsqueda en título y notas"
// @Param limit query int false "Máximo de registros (1-200), default 50"
// @Success 200 {array} entryResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID}/care [get]
func listEntriesHandler(svc *Service, petsSvc *pets.Service, grantsSvc *caregivers.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		petID := chi.URLParam(r, "petID")
		p, err := petsSvc.GetByID(r.Context(), petID)
		if err != nil {
			http.Error(w, "pet not found", http.StatusNotFound)
			return
		}

		if p.OwnerUserID != claims.UserID {
			if err := grantsSvc.Authorize(r.Context(), p.OwnerUserID, petID, claims.UserID, caregivers.ScopeCareRead); err != nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		}

		filter := ListFilter{Query: strings.TrimSpace(r.URL.Query().Get("q"))}

		for _, c := range r.URL.Query()["category"] {
			if c = strings.TrimSpace(c); c != "" {
				filter.Categories = append(filter.Categories, Category(c))
			}
		}
		if v := r.URL.Query().Get("from"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				http.Error(w, "from must be RFC3339", http.StatusBadRequest)
				return
			}
			filter.From = &t
		}
		if v := r.URL.Query().Get("to"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				http.Error(w, "to must be RFC3339", http.StatusBadRequest)
				return
			}
			filter.To = &t
		}
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			filter.Limit = n
		}

		items, err := svc.ListByPet(r.Context(), petID, filter)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]entryResponse, 0, len(items))
		for _, e := range items {
			out = append(out, toEntryResponse(e))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// voidEntryHandler godoc
// @Summary Anular (void) un registro de cuidado
// @Tags carelog
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Param entryID path string true "ID del registro"
// @Success 200 {object} entryResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet/entry not found"
// @Router /pets/{petID}/care/{entryID}/void [post]
func voidEntryHandler(svc *Service, petsSvc *pets.Service, grantsSvc *caregivers.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		petID := chi.URLParam(r, "petID")
		p, err := petsSvc.GetByID(r.Context(), petID)
		if err != nil {
			http.Error(w, "pet not found", http.StatusNotFound)
			return
		}

		if p.OwnerUserID != claims.UserID {
			if err := grantsSvc.Authorize(r.Context(), p.OwnerUserID, petID, claims.UserID, caregivers.ScopeCareVoid); err != nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		}

		entryID := chi.URLParam(r, "entryID")
		e, err := svc.GetByID(r.Context(), entryID)
		if err != nil || e.PetID != petID {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}

		voided, err := svc.Void(r.Context(), entryID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, toEntryResponse(voided))
	}
}

func toEntryResponse(e Entry) entryResponse {
	return entryResponse{
		ID:          e.ID,
		PetID:       e.PetID,
		Category:    e.Category,
		OccurredAt:  e.OccurredAt,
		RecordedAt:  e.RecordedAt,
		Title:       e.Title,
		Notes:       e.Notes,
		DurationMin: e.DurationMin,
		DistanceKm:  e.DistanceKm,
		Calories:    e.Calories,
		WeightKg:    e.WeightKg,
		Clinic:      e.Clinic,
		VetName:     e.VetName,
		ActorType:   e.Actor.Type,
		ActorID:     e.Actor.ID,
		Source:      e.Source,
		Visibility:  e.Visibility,
		Status:      e.Status,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
