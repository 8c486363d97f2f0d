package pets

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type CreateInput struct {
	Name          string
	Species       string
	Breed         string
	Sex           string
	BirthDate     *time.Time
	WeightKg      float64
	ActivityLevel string
	Notes         string
}

func (s *Service) Create(ctx context.Context, ownerUserID string, in CreateInput) (Pet, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" || strings.TrimSpace(in.Name) == "" {
		return Pet{}, ErrInvalidInput
	}

	species := Species(strings.TrimSpace(in.Species))
	if !ValidSpecies(species) {
		return Pet{}, ErrInvalidInput
	}
	if in.WeightKg < 0 {
		return Pet{}, ErrInvalidInput
	}

	sex := Sex(strings.TrimSpace(in.Sex))
	if sex == "" {
		sex = SexUnknown
	}

	activity := ActivityLevel(strings.TrimSpace(in.ActivityLevel))
	if activity == "" {
		activity = ActivityModerate
	}

	now := s.now()
	p := Pet{
		ID:            uuid.NewString(),
		OwnerUserID:   ownerUserID,
		Name:          strings.TrimSpace(in.Name),
		Species:       species,
		Breed:         strings.TrimSpace(in.Breed),
		Sex:           sex,
		BirthDate:     in.BirthDate,
		WeightKg:      in.WeightKg,
		ActivityLevel: activity,
		Notes:         strings.TrimSpace(in.Notes),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return Pet{}, err
	}
	return p, nil
}

// UpdateInput usa punteros para PATCH real: nil = no tocar.
type UpdateInput struct {
	Name          *string
	Breed         *string
	Sex           *string
	WeightKg      *float64
	ActivityLevel *string
	Notes         *string
}

func (s *Service) Update(ctx context.Context, petID string, in UpdateInput) (Pet, error) {
	p, err := s.repo.GetByID(ctx, petID)
	if err != nil {
		return Pet{}, ErrNotFound
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return Pet{}, ErrInvalidInput
		}
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Breed != nil {
		p.Breed = strings.TrimSpace(*in.Breed)
	}
	if in.Sex != nil {
		p.Sex = Sex(strings.TrimSpace(*in.Sex))
	}
	if in.WeightKg != nil {
		if *in.WeightKg < 0 {
			return Pet{}, ErrInvalidInput
		}
		p.WeightKg = *in.WeightKg
	}
	if in.ActivityLevel != nil {
		p.ActivityLevel = ActivityLevel(strings.TrimSpace(*in.ActivityLevel))
	}
	if in.Notes != nil {
		p.Notes = strings.TrimSpace(*in.Notes)
	}

	p.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, p); err != nil {
		return Pet{}, err
	}
	return p, nil
}

// SetPhoto guarda la URL pública de la foto (el archivo ya vive en el
// object store; acá solo se referencia).
func (s *Service) SetPhoto(ctx context.Context, petID, photoURL string) (Pet, error) {
	p, err := s.repo.GetByID(ctx, petID)
	if err != nil {
		return Pet{}, ErrNotFound
	}
	p.PhotoURL = strings.TrimSpace(photoURL)
	p.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, p); err != nil {
		return Pet{}, err
	}
	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Pet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Pet{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByOwner(ctx context.Context, ownerUserID string) ([]Pet, error) {
	return s.repo.ListByOwner(ctx, ownerUserID)
}
