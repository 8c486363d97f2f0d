package bookings

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"druma-petcare/internal/domain/providers"
	"druma-petcare/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, providersSvc *providers.Service) {
	r.Route("/bookings", func(br chi.Router) {
		br.Post("/", requestBookingHandler(svc))
		br.Get("/{bookingID}", getBookingHandler(svc, providersSvc))

		br.Post("/{bookingID}/confirm", transitionHandler(svc, StatusConfirmed))
		br.Post("/{bookingID}/decline", transitionHandler(svc, StatusDeclined))
		br.Post("/{bookingID}/start", transitionHandler(svc, StatusInProgress))
		br.Post("/{bookingID}/complete", transitionHandler(svc, StatusCompleted))
		br.Post("/{bookingID}/cancel", transitionHandler(svc, StatusCancelled))
	})

	r.Get("/me/bookings", listMyBookingsHandler(svc, providersSvc))
}

type requestBookingRequest struct {
	ProviderID string                `json:"provider_id"`
	PetID      string                `json:"pet_id"`
	Service    providers.ServiceType `json:"service"`
	Date       string                `json:"date"`       // YYYY-MM-DD
	StartTime  string                `json:"start_time"` // HH:MM
	Notes      string                `json:"notes,omitempty"`
}

type bookingResponse struct {
	ID           string                `json:"id"`
	ProviderID   string                `json:"provider_id"`
	PetID        string                `json:"pet_id"`
	OwnerUserID  string                `json:"owner_user_id"`
	Service      providers.ServiceType `json:"service"`
	Date         string                `json:"date"`
	StartTime    string                `json:"start_time"`
	DurationMin  int                   `json:"duration_min"`
	PriceCents   int64                 `json:"price_cents"`
	Status       Status                `json:"status"`
	Notes        string                `json:"notes,omitempty"`
	CancelReason string                `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

type transitionBookingRequest struct {
	Reason string `json:"reason,omitempty"` // para cancel/decline
}

// requestBookingHandler godoc
// @Summary Reservar un turno
// @Description Reserva un turno ofrecido por el proveedor para una mascota del usuario. Precio y duración quedan congelados al momento de reservar.
// @Tags bookings
// @Accept json
// @Produce json
// @Param payload body requestBookingRequest true "Turno a reservar"
// @Success 201 {object} bookingResponse
// @Failure 400 {string} string "datos inválidos / el proveedor no ofrece ese turno"
// @Failure 401 {string} string "unauthorized"
// @Failure 409 {string} string "el turno ya está tomado"
// @Router /bookings [post]
func requestBookingHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req requestBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		b, err := svc.Request(r.Context(), claims.UserID, RequestInput{
			ProviderID: req.ProviderID,
			PetID:      req.PetID,
			Service:    req.Service,
			Date:       date,
			StartTime:  req.StartTime,
			Notes:      req.Notes,
		})
		if err != nil {
			if errors.Is(err, ErrSlotTaken) {
				http.Error(w, "slot already taken", http.StatusConflict)
				return
			}
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toBookingResponse(b))
	}
}

// getBookingHandler godoc
// @Summary Ver una reserva
// @Description Solo el dueño de la reserva o el proveedor reservado.
// @Tags bookings
// @Produce json
// @Param bookingID path string true "ID de la reserva"
// @Success 200 {object} bookingResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "booking not found"
// @Router /bookings/{bookingID} [get]
func getBookingHandler(svc *Service, providersSvc *providers.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		b, err := svc.GetByID(r.Context(), chi.URLParam(r, "bookingID"))
		if err != nil {
			http.Error(w, "booking not found", http.StatusNotFound)
			return
		}

		if b.OwnerUserID != claims.UserID {
			p, err := providersSvc.GetByID(r.Context(), b.ProviderID)
			if err != nil || p.UserID != claims.UserID {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		}
		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

// transitionHandler godoc
// @Summary Transicionar una reserva
// @Description Mueve la reserva por su máquina de estados (confirm/decline/start/complete/cancel). Cada transición valida quién puede dispararla; los estados finales son inmutables (409).
// @Tags bookings
// @Accept json
// @Produce json
// @Param bookingID path string true "ID de la reserva"
// @Param payload body transitionBookingRequest false "reason para cancel/decline"
// @Success 200 {object} bookingResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "booking not found"
// @Failure 409 {string} string "transición inválida"
// @Router /bookings/{bookingID}/confirm [post]
func transitionHandler(svc *Service, target Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req transitionBookingRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}

		b, err := svc.Transition(r.Context(), chi.URLParam(r, "bookingID"), claims.UserID, target, req.Reason)
		if err != nil {
			if errors.Is(err, ErrInvalidTransition) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

// listMyBookingsHandler godoc
// @Summary Listar mis reservas
// @Description Reservas hechas por el usuario, más las recibidas si tiene perfil de proveedor (con `role=provider`).
// @Tags bookings
// @Produce json
// @Param role query string false "owner (default) | provider"
// @Success 200 {array} bookingResponse
// @Failure 401 {string} string "unauthorized"
// @Router /me/bookings [get]
func listMyBookingsHandler(svc *Service, providersSvc *providers.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var items []Booking
		var err error
		if r.URL.Query().Get("role") == "provider" {
			// Lado proveedor: reservas recibidas en su perfil.
			items, err = providerBookings(r, svc, providersSvc, claims.UserID)
		} else {
			items, err = svc.ListByOwner(r.Context(), claims.UserID)
		}
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]bookingResponse, 0, len(items))
		for _, b := range items {
			out = append(out, toBookingResponse(b))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func providerBookings(r *http.Request, svc *Service, providersSvc *providers.Service, userID string) ([]Booking, error) {
	p, err := providersSvc.GetByUserID(r.Context(), userID)
	if err != nil {
		return []Booking{}, nil // sin perfil de proveedor: lista vacía
	}
	return svc.ListByProvider(r.Context(), p.ID)
}

func toBookingResponse(b Booking) bookingResponse {
	return bookingResponse{
		ID:           b.ID,
		ProviderID:   b.ProviderID,
		PetID:        b.PetID,
		OwnerUserID:  b.OwnerUserID,
		Service:      b.Service,
		Date:         b.Date.Format("2006-01-02"),
		StartTime:    b.StartTime,
		DurationMin:  b.DurationMin,
		PriceCents:   b.PriceCents,
		Status:       b.Status,
		Notes:        b.Notes,
		CancelReason: b.CancelReason,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, providers.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNotFound), errors.Is(err, providers.ErrNotFound):
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
