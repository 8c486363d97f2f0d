package providers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"druma-petcare/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/providers", func(pr chi.Router) {
		pr.Post("/", registerProviderHandler(svc))
		pr.Get("/", listProvidersHandler(svc))
		pr.Get("/{providerID}", getProviderHandler(svc))
		pr.Patch("/{providerID}", updateProviderHandler(svc))

		pr.Post("/{providerID}/availability", addAvailabilityHandler(svc))
		pr.Get("/{providerID}/availability", listAvailabilityHandler(svc))
		pr.Post("/{providerID}/availability/{ruleID}/deactivate", deactivateAvailabilityHandler(svc))

		pr.Get("/{providerID}/slots", slotsHandler(svc))
	})
}

type offeringPayload struct {
	Type        ServiceType `json:"type" enums:"walk,grooming,vet_consult,boarding"`
	PriceCents  int64       `json:"price_cents"`
	DurationMin int         `json:"duration_min"`
}

type registerProviderRequest struct {
	DisplayName string            `json:"display_name"`
	Bio         string            `json:"bio,omitempty"`
	City        string            `json:"city,omitempty"`
	Offerings   []offeringPayload `json:"offerings"`
}

type providerResponse struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	DisplayName string            `json:"display_name"`
	Bio         string            `json:"bio,omitempty"`
	City        string            `json:"city,omitempty"`
	Offerings   []offeringPayload `json:"offerings"`
	Active      bool              `json:"active"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type availabilityRequest struct {
	Service    ServiceType `json:"service"`
	DaysOfWeek []int       `json:"days_of_week"`
	StartTimes []string    `json:"start_times"` // HH:MM
	ValidFrom  string      `json:"valid_from"`  // YYYY-MM-DD
	ValidUntil string      `json:"valid_until,omitempty"`
}

type availabilityResponse struct {
	ID         string      `json:"id"`
	ProviderID string      `json:"provider_id"`
	Service    ServiceType `json:"service"`
	DaysOfWeek []int       `json:"days_of_week"`
	StartTimes []string    `json:"start_times"`
	ValidFrom  string      `json:"valid_from"`
	ValidUntil string      `json:"valid_until,omitempty"`
	Active     bool        `json:"active"`
}

type slotResponse struct {
	ProviderID  string      `json:"provider_id"`
	Service     ServiceType `json:"service"`
	Date        string      `json:"date"`
	StartTime   string      `json:"start_time"`
	DurationMin int         `json:"duration_min"`
	PriceCents  int64       `json:"price_cents"`
	Available   bool        `json:"available"`
}

// registerProviderHandler godoc
// @Summary Registrarse como proveedor
// @Description Crea el perfil de proveedor del usuario autenticado, con su catálogo de servicios. Un usuario tiene a lo sumo un perfil.
// @Tags providers
// @Accept json
// @Produce json
// @Param payload body registerProviderRequest true "Perfil y catálogo"
// @Success 201 {object} providerResponse
// @Failure 400 {string} string "datos inválidos"
// @Failure 401 {string} string "unauthorized"
// @Failure 409 {string} string "el usuario ya tiene perfil de proveedor"
// @Router /providers [post]
func registerProviderHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req registerProviderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		p, err := svc.Register(r.Context(), claims.UserID, RegisterInput{
			DisplayName: req.DisplayName,
			Bio:         req.Bio,
			City:        req.City,
			Offerings:   toOfferings(req.Offerings),
		})
		if err != nil {
			if errors.Is(err, ErrExists) {
				http.Error(w, "provider profile already exists", http.StatusConflict)
				return
			}
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toProviderResponse(p))
	}
}

// listProvidersHandler godoc
// @Summary Directorio de proveedores
// @Tags providers
// @Produce json
// @Param city query string false "Filtrar por ciudad"
// @Param service query string false "Filtrar por servicio ofrecido"
// @Success 200 {array} providerResponse
// @Router /providers [get]
func listProvidersHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context(), ListFilter{
			City:    strings.TrimSpace(r.URL.Query().Get("city")),
			Service: ServiceType(strings.TrimSpace(r.URL.Query().Get("service"))),
		})
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		out := make([]providerResponse, 0, len(items))
		for _, p := range items {
			out = append(out, toProviderResponse(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// getProviderHandler godoc
// @Summary Ver perfil de proveedor
// @Tags providers
// @Produce json
// @Param providerID path string true "ID del proveedor"
// @Success 200 {object} providerResponse
// @Failure 404 {string} string "provider not found"
// @Router /providers/{providerID} [get]
func getProviderHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.GetByID(r.Context(), chi.URLParam(r, "providerID"))
		if err != nil {
			http.Error(w, "provider not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, toProviderResponse(p))
	}
}

// updateProviderHandler godoc
// @Summary Editar perfil de proveedor
// @Description PATCH parcial. Solo el dueño del perfil.
// @Tags providers
// @Accept json
// @Produce json
// @Param providerID path string true "ID del proveedor"
// @Param payload body registerProviderRequest true "Campos a modificar"
// @Success 200 {object} providerResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "provider not found"
// @Router /providers/{providerID} [patch]
func updateProviderHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req struct {
			DisplayName *string           `json:"display_name"`
			Bio         *string           `json:"bio"`
			City        *string           `json:"city"`
			Offerings   []offeringPayload `json:"offerings"`
			Active      *bool             `json:"active"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in := UpdateInput{
			DisplayName: req.DisplayName,
			Bio:         req.Bio,
			City:        req.City,
			Active:      req.Active,
		}
		if req.Offerings != nil {
			in.Offerings = toOfferings(req.Offerings)
		}

		p, err := svc.Update(r.Context(), chi.URLParam(r, "providerID"), claims.UserID, in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toProviderResponse(p))
	}
}

// addAvailabilityHandler godoc
// @Summary Agregar disponibilidad semanal
// @Description Agrega una regla de disponibilidad (días + horas de inicio) para un servicio del catálogo. Solo el dueño del perfil.
// @Tags providers
// @Accept json
// @Produce json
// @Param providerID path string true "ID del proveedor"
// @Param payload body availabilityRequest true "Regla semanal; fechas YYYY-MM-DD, horas HH:MM"
// @Success 201 {object} availabilityResponse
// @Failure 400 {string} string "regla inválida"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "provider not found"
// @Router /providers/{providerID}/availability [post]
func addAvailabilityHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req availabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		validFrom, err := time.Parse("2006-01-02", req.ValidFrom)
		if err != nil {
			http.Error(w, "valid_from must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		in := AvailabilityInput{
			Service:    req.Service,
			StartTimes: req.StartTimes,
			ValidFrom:  validFrom,
		}
		for _, d := range req.DaysOfWeek {
			in.DaysOfWeek = append(in.DaysOfWeek, time.Weekday(d))
		}
		if req.ValidUntil != "" {
			until, err := time.Parse("2006-01-02", req.ValidUntil)
			if err != nil {
				http.Error(w, "valid_until must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			in.ValidUntil = &until
		}

		rule, err := svc.AddAvailability(r.Context(), chi.URLParam(r, "providerID"), claims.UserID, in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAvailabilityResponse(rule))
	}
}

// listAvailabilityHandler godoc
// @Summary Listar reglas de disponibilidad
// @Tags providers
// @Produce json
// @Param providerID path string true "ID del proveedor"
// @Success 200 {array} availabilityResponse
// @Failure 404 {string} string "provider not found"
// @Router /providers/{providerID}/availability [get]
func listAvailabilityHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := svc.GetByID(r.Context(), chi.URLParam(r, "providerID")); err != nil {
			http.Error(w, "provider not found", http.StatusNotFound)
			return
		}
		rules, err := svc.ListAvailability(r.Context(), chi.URLParam(r, "providerID"))
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		out := make([]availabilityResponse, 0, len(rules))
		for _, rule := range rules {
			out = append(out, toAvailabilityResponse(rule))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// deactivateAvailabilityHandler godoc
// @Summary Desactivar una regla de disponibilidad
// @Description Los turnos futuros dejan de ofrecerse; las reservas tomadas no se tocan. Idempotente.
// @Tags providers
// @Produce json
// @Param providerID path string true "ID del proveedor"
// @Param ruleID path string true "ID de la regla"
// @Success 200 {object} availabilityResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "rule not found"
// @Router /providers/{providerID}/availability/{ruleID}/deactivate [post]
func deactivateAvailabilityHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		rule, err := svc.DeactivateAvailability(r.Context(), chi.URLParam(r, "ruleID"), claims.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if rule.ProviderID != chi.URLParam(r, "providerID") {
			http.Error(w, "rule not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, toAvailabilityResponse(rule))
	}
}

// slotsHandler godoc
// @Summary Turnos disponibles para una fecha
// @Description Expande las reglas de disponibilidad del proveedor a turnos concretos y marca los ya reservados.
// @Tags providers
// @Produce json
// @Param providerID path string true "ID del proveedor"
// @Param date query string true "Fecha (YYYY-MM-DD)"
// @Success 200 {array} slotResponse
// @Failure 400 {string} string "fecha inválida"
// @Failure 404 {string} string "provider not found"
// @Router /providers/{providerID}/slots [get]
func slotsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
		if err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		slots, err := svc.Slots(r.Context(), chi.URLParam(r, "providerID"), date)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		out := make([]slotResponse, 0, len(slots))
		for _, s := range slots {
			out = append(out, slotResponse{
				ProviderID:  s.ProviderID,
				Service:     s.Service,
				Date:        s.Date.Format("2006-01-02"),
				StartTime:   s.StartTime,
				DurationMin: s.DurationMin,
				PriceCents:  s.PriceCents,
				Available:   s.Available,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func toOfferings(in []offeringPayload) []Offering {
	out := make([]Offering, 0, len(in))
	for _, o := range in {
		out = append(out, Offering{Type: o.Type, PriceCents: o.PriceCents, DurationMin: o.DurationMin})
	}
	return out
}

func toProviderResponse(p Provider) providerResponse {
	offs := make([]offeringPayload, 0, len(p.Offerings))
	for _, o := range p.Offerings {
		offs = append(offs, offeringPayload{Type: o.Type, PriceCents: o.PriceCents, DurationMin: o.DurationMin})
	}
	return providerResponse{
		ID:          p.ID,
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		Bio:         p.Bio,
		City:        p.City,
		Offerings:   offs,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toAvailabilityResponse(a AvailabilityRule) availabilityResponse {
	days := make([]int, 0, len(a.DaysOfWeek))
	for _, d := range a.DaysOfWeek {
		days = append(days, int(d))
	}
	resp := availabilityResponse{
		ID:         a.ID,
		ProviderID: a.ProviderID,
		Service:    a.Service,
		DaysOfWeek: days,
		StartTimes: a.StartTimes,
		ValidFrom:  a.ValidFrom.Format("2006-01-02"),
		Active:     a.Active,
	}
	if a.ValidUntil != nil {
		resp.ValidUntil = a.ValidUntil.Format("2006-01-02")
	}
	return resp
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
