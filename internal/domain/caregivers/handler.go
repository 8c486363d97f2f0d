package caregivers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"druma-petcare/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// petOwnerResolver es la vista mínima del servicio de pets que necesitan
// estos handlers; *pets.Service la satisface en el punto de wiring y así
// se evita el ciclo de imports pets ↔ caregivers.
type petOwnerResolver interface {
	OwnerOf(ctx context.Context, petID string) (string, error)
}

func RegisterRoutes(r chi.Router, svc *Service, petsSvc petOwnerResolver) {
	r.Route("/pets/{petID}/caregivers", func(cr chi.Router) {
		cr.Post("/", inviteHandler(svc, petsSvc))
		cr.Get("/", listByPetHandler(svc, petsSvc))
	})

	r.Post("/caregivers/{grantID}/accept", acceptHandler(svc))
	r.Post("/caregivers/{grantID}/revoke", revokeHandler(svc))

	// Delegaciones donde yo soy el cuidador
	r.Get("/me/caregiving", listMineHandler(svc))
}

type inviteRequest struct {
	GranteeUserID string   `json:"grantee_user_id"`
	Scopes        []string `json:"scopes"`
}

type grantResponse struct {
	ID            string     `json:"id"`
	PetID         string     `json:"pet_id"`
	OwnerUserID   string     `json:"owner_user_id"`
	GranteeUserID string     `json:"grantee_user_id"`
	Scopes        []Scope    `json:"scopes"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
}

// inviteHandler godoc
// @Summary Invitar cuidador
// @Description Invita a otro usuario como cuidador de la mascota, con scopes acotados. Solo el dueño puede invitar. Scopes vacíos aplican el default pets:read + care:read.
// @Tags caregivers
// @Accept json
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Param payload body inviteRequest true "Invitación"
// @Success 201 {object} grantResponse
// @Failure 400 {string} string "invalid json / scopes inválidos"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID}/caregivers [post]
func inviteHandler(svc *Service, petsSvc petOwnerResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		petID := chi.URLParam(r, "petID")
		ownerID, err := petsSvc.OwnerOf(r.Context(), petID)
		if err != nil {
			http.Error(w, "pet not found", http.StatusNotFound)
			return
		}
		if ownerID != claims.UserID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		var req inviteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		scopes := make([]Scope, 0, len(req.Scopes))
		for _, s := range req.Scopes {
			scopes = append(scopes, Scope(s))
		}

		g, err := svc.Invite(r.Context(), InviteInput{
			PetID:         petID,
			OwnerUserID:   claims.UserID,
			GranteeUserID: req.GranteeUserID,
			Scopes:        scopes,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusCreated, toGrantResponse(g))
	}
}

func listByPetHandler(svc *Service, petsSvc petOwnerResolver) http.HandlerFunc {
	// Solo el owner ve la lista de delegaciones de su mascota.
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		petID := chi.URLParam(r, "petID")
		ownerID, err := petsSvc.OwnerOf(r.Context(), petID)
		if err != nil {
			http.Error(w, "pet not found", http.StatusNotFound)
			return
		}
		if ownerID != claims.UserID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		items, err := svc.ListByPet(r.Context(), petID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]grantResponse, 0, len(items))
		for _, g := range items {
			out = append(out, toGrantResponse(g))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// acceptHandler godoc
// @Summary Aceptar invitación de cuidado
// @Tags caregivers
// @Produce json
// @Param grantID path string true "ID del grant"
// @Success 200 {object} grantResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "grant not found"
// @Failure 409 {string} string "grant revocado"
// @Router /caregivers/{grantID}/accept [post]
func acceptHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		g, err := svc.Accept(r.Context(), chi.URLParam(r, "grantID"), claims.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toGrantResponse(g))
	}
}

func revokeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		g, err := svc.Revoke(r.Context(), chi.URLParam(r, "grantID"), claims.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toGrantResponse(g))
	}
}

func listMineHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByGrantee(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]grantResponse, 0, len(items))
		for _, g := range items {
			out = append(out, toGrantResponse(g))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func toGrantResponse(g Grant) grantResponse {
	return grantResponse{
		ID:            g.ID,
		PetID:         g.PetID,
		OwnerUserID:   g.OwnerUserID,
		GranteeUserID: g.GranteeUserID,
		Scopes:        g.Scopes,
		Status:        g.Status,
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
		RevokedAt:     g.RevokedAt,
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "grant not found", http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrBadState):
		http.Error(w, "grant revocado", http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// writeJSON duplicado a propósito en handlers de distintos módulos;
// si se repite en más lugares conviene extraerlo a un helper común.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
