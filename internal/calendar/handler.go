package calendar

import (
	"net/http"
	"strings"

	"druma-petcare/internal/middleware"

	"github.com/emersion/go-ical"
	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Get("/me/calendar.ics", feedHandler(svc))
}

// feedHandler godoc
// @Summary Feed iCalendar del usuario
// @Description Calendario con los horarios de alimentación de sus mascotas (eventos recurrentes con RRULE) y sus reservas vigentes. Apto para suscribirse desde cualquier cliente de calendario.
// @Tags calendar
// @Produce text/calendar
// @Success 200 {string} string "VCALENDAR"
// @Failure 401 {string} string "unauthorized"
// @Router /me/calendar.ics [get]
func feedHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		cal, err := svc.Feed(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="druma-petcare.ics"`)
		if err := ical.NewEncoder(w).Encode(cal); err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}
}
