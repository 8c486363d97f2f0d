package dashboard

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"druma-petcare/internal/domain/caregivers"
	"druma-petcare/internal/domain/pets"
	"druma-petcare/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, petsSvc *pets.Service, grantsSvc *caregivers.Service) {
	r.Get("/pets/{petID}/dashboard", summaryHandler(svc, petsSvc, grantsSvc))
}

// summaryHandler godoc
// @Summary Resumen diario de la mascota
// @Description Vista agregada del día: comidas por estado, actividad reciente del historial y reservas próximas. Cacheado con TTL corto. El dueño siempre puede; un cuidador necesita `pets:read`.
// @Tags dashboard
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Param date query string false "Fecha (YYYY-MM-DD), default hoy"
// @Success 200 {object} Summary
// @Failure 400 {string} string "fecha inválida"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID}/dashboard [get]
func summaryHandler(svc *Service, petsSvc *pets.Service, grantsSvc *caregivers.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		p, err := petsSvc.GetByID(r.Context(), chi.URLParam(r, "petID"))
		if err != nil {
			http.Error(w, "pet not found", http.StatusNotFound)
			return
		}
		if err := grantsSvc.Authorize(r.Context(), p.OwnerUserID, p.ID, claims.UserID, caregivers.ScopePetsRead); err != nil {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		date := time.Now().UTC()
		if v := r.URL.Query().Get("date"); v != "" {
			date, err = time.Parse("2006-01-02", v)
			if err != nil {
				http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
		}

		sum, err := svc.Summary(r.Context(), p.ID, date)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(sum)
	}
}
