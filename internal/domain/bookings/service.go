package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"druma-petcare/internal/domain/providers"
	"druma-petcare/internal/platform/logger"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrSlotTaken         = errors.New("slot already taken")
	ErrInvalidTransition = errors.New("invalid booking transition")
)

type Service struct {
	repo      Repository
	providers *providers.Service
	log       logger.Logger
	now       func() time.Time
}

func NewService(repo Repository, providersSvc *providers.Service, log logger.Logger) *Service {
	return &Service{
		repo:      repo,
		providers: providersSvc,
		log:       log,
		now:       time.Now,
	}
}

// BookedStartTimes implementa providers.BookedLookup: horas de inicio
// ocupadas por reservas vigentes del proveedor en la fecha.
func (s *Service) BookedStartTimes(ctx context.Context, providerID string, date time.Time) (map[string]struct{}, error) {
	existing, err := s.repo.ListByProviderAndDate(ctx, providerID, date)
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(existing))
	for _, b := range existing {
		if b.Status.Blocking() {
			out[b.StartTime] = struct{}{}
		}
	}
	return out, nil
}

type RequestInput struct {
	ProviderID string
	PetID      string
	Service    providers.ServiceType
	Date       time.Time
	StartTime  string // HH:MM
	Notes      string
}

// Request toma un turno ofrecido por el proveedor. Valida que el turno exista
// en la disponibilidad de la fecha, que esté libre y que no se pise con otra
// reserva vigente. Precio y duración quedan como snapshot del catálogo.
func (s *Service) Request(ctx context.Context, ownerUserID string, in RequestInput) (Booking, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" || strings.TrimSpace(in.ProviderID) == "" || strings.TrimSpace(in.PetID) == "" {
		return Booking{}, ErrInvalidInput
	}

	slots, err := s.providers.Slots(ctx, in.ProviderID, in.Date)
	if err != nil {
		return Booking{}, err
	}
	var slot *providers.Slot
	for i := range slots {
		if slots[i].StartTime == in.StartTime && slots[i].Service == in.Service {
			slot = &slots[i]
			break
		}
	}
	if slot == nil {
		return Booking{}, fmt.Errorf("%w: el proveedor no ofrece ese turno", ErrInvalidInput)
	}
	if !slot.Available {
		return Booking{}, ErrSlotTaken
	}

	now := s.now()
	b := Booking{
		ID:          uuid.NewString(),
		ProviderID:  in.ProviderID,
		PetID:       in.PetID,
		OwnerUserID: ownerUserID,
		Service:     in.Service,
		Date:        in.Date,
		StartTime:   in.StartTime,
		DurationMin: slot.DurationMin,
		PriceCents:  slot.PriceCents,
		Status:      StatusRequested,
		Notes:       strings.TrimSpace(in.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Chequeo de solapamiento contra reservas vigentes (el turno puede estar
	// libre pero pisarse con una reserva más larga de otro servicio).
	existing, err := s.repo.ListByProviderAndDate(ctx, in.ProviderID, in.Date)
	if err != nil {
		return Booking{}, err
	}
	for _, other := range existing {
		if other.Status.Blocking() && b.Overlaps(other) {
			return Booking{}, ErrSlotTaken
		}
	}

	// El alta es condicional: si otra solicitud tomó el turno entre el
	// chequeo y el insert, el storage la rechaza.
	ok, err := s.repo.CreateIfFree(ctx, b)
	if err != nil {
		return Booking{}, err
	}
	if !ok {
		return Booking{}, ErrSlotTaken
	}

	s.log.Info("reserva creada", map[string]any{
		"booking_id":  b.ID,
		"provider_id": b.ProviderID,
		"pet_id":      b.PetID,
		"date":        b.Date.Format("2006-01-02"),
		"start":       b.StartTime,
	})
	return b, nil
}

// transitions define la máquina de estados de la reserva y quién puede
// disparar cada transición.
var transitions = map[Status]map[Status]string{
	StatusRequested: {
		StatusConfirmed: "provider",
		StatusDeclined:  "provider",
		StatusCancelled: "owner",
	},
	StatusConfirmed: {
		StatusInProgress: "provider",
		StatusCancelled:  "any", // owner o provider pueden cancelar antes de empezar
	},
	StatusInProgress: {
		StatusCompleted: "provider",
	},
}

// Transition mueve la reserva de estado validando la máquina y el rol del
// actor. Estados finales (completed/cancelled/declined) son inmutables.
func (s *Service) Transition(ctx context.Context, bookingID, userID string, target Status, reason string) (Booking, error) {
	b, err := s.repo.GetByID(ctx, strings.TrimSpace(bookingID))
	if err != nil {
		return Booking{}, ErrNotFound
	}

	role, err := s.actorRole(ctx, b, userID)
	if err != nil {
		return Booking{}, err
	}

	if b.Status.Terminal() {
		return Booking{}, fmt.Errorf("%w: la reserva ya está %s", ErrInvalidTransition, b.Status)
	}
	allowed, ok := transitions[b.Status][target]
	if !ok {
		return Booking{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, target)
	}
	if allowed != "any" && allowed != role {
		return Booking{}, ErrForbidden
	}

	b.Status = target
	if target == StatusCancelled || target == StatusDeclined {
		b.CancelReason = strings.TrimSpace(reason)
	}
	b.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, b); err != nil {
		return Booking{}, err
	}
	return b, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Booking, error) {
	b, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return Booking{}, ErrNotFound
	}
	return b, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerUserID string) ([]Booking, error) {
	return s.repo.ListByOwner(ctx, ownerUserID)
}

func (s *Service) ListByProvider(ctx context.Context, providerID string) ([]Booking, error) {
	return s.repo.ListByProvider(ctx, providerID)
}

// actorRole decide si el usuario actúa como dueño de la reserva o como el
// proveedor reservado.
func (s *Service) actorRole(ctx context.Context, b Booking, userID string) (string, error) {
	if b.OwnerUserID == userID {
		return "owner", nil
	}
	p, err := s.providers.GetByID(ctx, b.ProviderID)
	if err == nil && p.UserID == userID {
		return "provider", nil
	}
	return "", ErrForbidden
}
