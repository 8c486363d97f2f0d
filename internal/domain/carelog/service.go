package carelog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
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
	Category   Category
	OccurredAt time.Time
	Title      string
	Notes      string

	DurationMin int
	DistanceKm  float64
	Calories    float64
	WeightKg    float64
	Clinic      string
	VetName     string

	Source     Source
	Visibility Visibility
}

func (s *Service) Create(ctx context.Context, petID string, actor Actor, in CreateInput) (Entry, error) {
	if strings.TrimSpace(petID) == "" {
		return Entry{}, ErrInvalidInput
	}
	if !ValidCategory(in.Category) {
		return Entry{}, ErrInvalidInput
	}
	if in.OccurredAt.IsZero() {
		return Entry{}, ErrInvalidInput
	}
	if actor.Type == "" || strings.TrimSpace(actor.ID) == "" {
		return Entry{}, ErrInvalidInput
	}
	if in.DurationMin < 0 || in.DistanceKm < 0 || in.Calories < 0 || in.WeightKg < 0 {
		return Entry{}, ErrInvalidInput
	}
	// Un registro de peso sin peso no dice nada.
	if in.Category == CategoryWeight && in.WeightKg == 0 {
		return Entry{}, ErrInvalidInput
	}

	src := in.Source
	if src == "" {
		src = SourceManual
	}
	vis := in.Visibility
	if vis == "" {
		vis = VisibilityShared
	}

	e := Entry{
		ID:         uuid.NewString(),
		PetID:      petID,
		Category:   in.Category,
		OccurredAt: in.OccurredAt,
		RecordedAt: s.now(),
		Title:      strings.TrimSpace(in.Title),
		Notes:      strings.TrimSpace(in.Notes),

		DurationMin: in.DurationMin,
		DistanceKm:  in.DistanceKm,
		Calories:    in.Calories,
		WeightKg:    in.WeightKg,
		Clinic:      strings.TrimSpace(in.Clinic),
		VetName:     strings.TrimSpace(in.VetName),

		Actor:      actor,
		Source:     src,
		Visibility: vis,
		Status:     EntryStatusActive,
	}

	if err := s.repo.Create(ctx, e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Entry{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPet(ctx context.Context, petID string, filter ListFilter) ([]Entry, error) {
	return s.repo.ListByPet(ctx, petID, filter)
}

// Void anula el registro (no se borra: el historial es auditable).
func (s *Service) Void(ctx context.Context, id string) (Entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Entry{}, ErrInvalidInput
	}
	if err := s.repo.Void(ctx, id); err != nil {
		return Entry{}, err
	}
	return s.repo.GetByID(ctx, id)
}
