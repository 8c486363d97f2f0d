package pets

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"druma-petcare/internal/domain/caregivers"
	"druma-petcare/internal/middleware"
	"druma-petcare/internal/ports/objectstore"

	"github.com/go-chi/chi/v5"
)

// maxPhotoBytes limita el tamaño de la foto subida.
const maxPhotoBytes = 5 << 20

func RegisterRoutes(r chi.Router, svc *Service, grantsSvc *caregivers.Service, store objectstore.ObjectStore) {
	r.Route("/pets", func(pr chi.Router) {
		pr.Post("/", createPetHandler(svc))
		pr.Get("/", listMyPetsHandler(svc))
		pr.Get("/{petID}", getPetHandler(svc, grantsSvc))
		pr.Patch("/{petID}", updatePetHandler(svc, grantsSvc))
		pr.Post("/{petID}/photo", uploadPhotoHandler(svc, store))
	})

	// Mascotas de terceros a las que el usuario tiene acceso como cuidador.
	r.Get("/me/shared-pets", listSharedPetsHandler(svc, grantsSvc))
}

type petPayload struct {
	Name          string  `json:"name"`
	Species       string  `json:"species" enums:"dog,cat,bird,rabbit,other"`
	Breed         string  `json:"breed,omitempty"`
	Sex           string  `json:"sex,omitempty" enums:"male,female,unknown"`
	BirthDate     string  `json:"birth_date,omitempty"` // YYYY-MM-DD
	WeightKg      float64 `json:"weight_kg,omitempty"`
	ActivityLevel string  `json:"activity_level,omitempty" enums:"low,moderate,high"`
	Notes         string  `json:"notes,omitempty"`
}

type petResponse struct {
	ID            string    `json:"id"`
	OwnerUserID   string    `json:"owner_user_id"`
	Name          string    `json:"name"`
	Species       string    `json:"species"`
	Breed         string    `json:"breed,omitempty"`
	Sex           string    `json:"sex"`
	BirthDate     string    `json:"birth_date,omitempty"`
	WeightKg      float64   `json:"weight_kg,omitempty"`
	ActivityLevel string    `json:"activity_level"`
	PhotoURL      string    `json:"photo_url,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// createPetHandler godoc
// @Summary Registrar mascota
// @Tags pets
// @Accept json
// @Produce json
// @Param payload body petPayload true "Perfil de la mascota; birth_date en YYYY-MM-DD"
// @Success 201 {object} petResponse
// @Failure 400 {string} string "invalid json / datos inválidos"
// @Failure 401 {string} string "unauthorized"
// @Router /pets [post]
func createPetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req petPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in := CreateInput{
			Name:          req.Name,
			Species:       req.Species,
			Breed:         req.Breed,
			Sex:           req.Sex,
			WeightKg:      req.WeightKg,
			ActivityLevel: req.ActivityLevel,
			Notes:         req.Notes,
		}
		if req.BirthDate != "" {
			t, err := time.Parse("2006-01-02", req.BirthDate)
			if err != nil {
				http.Error(w, "birth_date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			in.BirthDate = &t
		}

		p, err := svc.Create(r.Context(), claims.UserID, in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toPetResponse(p))
	}
}

// listMyPetsHandler godoc
// @Summary Listar mis mascotas
// @Tags pets
// @Produce json
// @Success 200 {array} petResponse
// @Failure 401 {string} string "unauthorized"
// @Router /pets [get]
func listMyPetsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByOwner(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		out := make([]petResponse, 0, len(items))
		for _, p := range items {
			out = append(out, toPetResponse(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// getPetHandler godoc
// @Summary Ver perfil de una mascota
// @Description El dueño siempre puede; un cuidador necesita grant activo con `pets:read`.
// @Tags pets
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Success 200 {object} petResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID} [get]
func getPetHandler(svc *Service, grantsSvc *caregivers.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		p, err := svc.GetByID(r.Context(), chi.URLParam(r, "petID"))
		if err != nil {
			http.Error(w, "pet not found", http.StatusNotFound)
			return
		}

		if err := grantsSvc.Authorize(r.Context(), p.OwnerUserID, p.ID, claims.UserID, caregivers.ScopePetsRead); err != nil {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		writeJSON(w, http.StatusOK, toPetResponse(p))
	}
}

// updatePetHandler godoc
// @Summary Editar perfil de una mascota
// @Description PATCH parcial: solo los campos presentes se modifican. El dueño siempre puede; un cuidador necesita `pets:edit`.
// @Tags pets
// @Accept json
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Param payload body petPayload true "Campos a modificar"
// @Success 200 {object} petResponse
// @Failure 400 {string} string "invalid json / datos inválidos"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID} [patch]
func updatePetHandler(svc *Service, grantsSvc *caregivers.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		p, err := svc.GetByID(r.Context(), chi.URLParam(r, "petID"))
		if err != nil {
			http.Error(w, "pet not found", http.StatusNotFound)
			return
		}

		if err := grantsSvc.Authorize(r.Context(), p.OwnerUserID, p.ID, claims.UserID, caregivers.ScopePetsEdit); err != nil {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		var req struct {
			Name          *string  `json:"name"`
			Breed         *string  `json:"breed"`
			Sex           *string  `json:"sex"`
			WeightKg      *float64 `json:"weight_kg"`
			ActivityLevel *string  `json:"activity_level"`
			Notes         *string  `json:"notes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		updated, err := svc.Update(r.Context(), p.ID, UpdateInput{
			Name:          req.Name,
			Breed:         req.Breed,
			Sex:           req.Sex,
			WeightKg:      req.WeightKg,
			ActivityLevel: req.ActivityLevel,
			Notes:         req.Notes,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPetResponse(updated))
	}
}

// uploadPhotoHandler godoc
// @Summary Subir foto de la mascota
// @Description Sube la imagen al object store y guarda la URL en el perfil. Solo el dueño. Máximo 5 MB.
// @Tags pets
// @Accept octet-stream
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Success 200 {object} petResponse
// @Failure 400 {string} string "content-type no soportado"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Failure 502 {string} string "object store no disponible"
// @Router /pets/{petID}/photo [post]
func uploadPhotoHandler(svc *Service, store objectstore.ObjectStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		p, err := svc.GetByID(r.Context(), chi.URLParam(r, "petID"))
		if err != nil {
			http.Error(w, "pet not found", http.StatusNotFound)
			return
		}
		if p.OwnerUserID != claims.UserID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		contentType := r.Header.Get("Content-Type")
		ext, ok := photoExt(contentType)
		if !ok {
			http.Error(w, "content-type must be image/jpeg, image/png or image/webp", http.StatusBadRequest)
			return
		}

		objPath := path.Join("pets", p.ID, fmt.Sprintf("photo%s", ext))
		url, err := store.Put(r.Context(), objPath, contentType, http.MaxBytesReader(w, r.Body, maxPhotoBytes))
		if err != nil {
			http.Error(w, "object store unavailable", http.StatusBadGateway)
			return
		}

		updated, err := svc.SetPhoto(r.Context(), p.ID, url)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPetResponse(updated))
	}
}

// listSharedPetsHandler godoc
// @Summary Listar mascotas compartidas conmigo
// @Description Mascotas de otros dueños sobre las que el usuario tiene un grant activo de cuidador.
// @Tags pets
// @Produce json
// @Success 200 {array} petResponse
// @Failure 401 {string} string "unauthorized"
// @Router /me/shared-pets [get]
func listSharedPetsHandler(svc *Service, grantsSvc *caregivers.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		grants, err := grantsSvc.ListByGrantee(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]petResponse, 0, len(grants))
		seen := map[string]struct{}{}
		for _, g := range grants {
			if g.Status != caregivers.StatusActive {
				continue
			}
			if _, dup := seen[g.PetID]; dup {
				continue
			}
			seen[g.PetID] = struct{}{}

			p, err := svc.GetByID(r.Context(), g.PetID)
			if err != nil {
				continue // el grant puede sobrevivir a la mascota
			}
			out = append(out, toPetResponse(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func photoExt(contentType string) (string, bool) {
	switch contentType {
	case "image/jpeg":
		return ".jpg", true
	case "image/png":
		return ".png", true
	case "image/webp":
		return ".webp", true
	default:
		return "", false
	}
}

func toPetResponse(p Pet) petResponse {
	resp := petResponse{
		ID:            p.ID,
		OwnerUserID:   p.OwnerUserID,
		Name:          p.Name,
		Species:       string(p.Species),
		Breed:         p.Breed,
		Sex:           string(p.Sex),
		WeightKg:      p.WeightKg,
		ActivityLevel: string(p.ActivityLevel),
		PhotoURL:      p.PhotoURL,
		Notes:         p.Notes,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.BirthDate != nil {
		resp.BirthDate = p.BirthDate.Format("2006-01-02")
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
