package providers

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"druma-petcare/internal/platform/logger"
	"druma-petcare/internal/recurrence"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrExists       = errors.New("already exists")
)

// BookedLookup consulta los turnos ya reservados de un proveedor para una
// fecha. Lo implementa el módulo de reservas; acá solo se consume para marcar
// turnos como no disponibles.
type BookedLookup interface {
	BookedStartTimes(ctx context.Context, providerID string, date time.Time) (map[string]struct{}, error)
}

type Service struct {
	repo   Repository
	booked BookedLookup
	log    logger.Logger
	now    func() time.Time
}

func NewService(repo Repository, booked BookedLookup, log logger.Logger) *Service {
	return &Service{
		repo:   repo,
		booked: booked,
		log:    log,
		now:    time.Now,
	}
}

// SetBookedLookup inyecta la fuente de reservas después de construir el
// servicio de bookings; los dos paquetes se referencian mutuamente y alguien
// tiene que cerrar el ciclo en el armado.
func (s *Service) SetBookedLookup(b BookedLookup) {
	s.booked = b
}

type RegisterInput struct {
	DisplayName string
	Bio         string
	City        string
	Offerings   []Offering
}

// Register da de alta el perfil de proveedor del usuario. Un usuario tiene a
// lo sumo un perfil.
func (s *Service) Register(ctx context.Context, userID string, in RegisterInput) (Provider, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || strings.TrimSpace(in.DisplayName) == "" {
		return Provider{}, ErrInvalidInput
	}
	if err := validateOfferings(in.Offerings); err != nil {
		return Provider{}, err
	}

	if _, err := s.repo.GetByUserID(ctx, userID); err == nil {
		return Provider{}, ErrExists
	}

	now := s.now()
	p := Provider{
		ID:          uuid.NewString(),
		UserID:      userID,
		DisplayName: strings.TrimSpace(in.DisplayName),
		Bio:         strings.TrimSpace(in.Bio),
		City:        strings.TrimSpace(in.City),
		Offerings:   in.Offerings,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return Provider{}, err
	}
	return p, nil
}

type UpdateInput struct {
	DisplayName *string
	Bio         *string
	City        *string
	Offerings   []Offering
	Active      *bool
}

func (s *Service) Update(ctx context.Context, providerID, userID string, in UpdateInput) (Provider, error) {
	p, err := s.repo.GetByID(ctx, strings.TrimSpace(providerID))
	if err != nil {
		return Provider{}, ErrNotFound
	}
	if p.UserID != userID {
		return Provider{}, ErrForbidden
	}

	if in.DisplayName != nil {
		if strings.TrimSpace(*in.DisplayName) == "" {
			return Provider{}, ErrInvalidInput
		}
		p.DisplayName = strings.TrimSpace(*in.DisplayName)
	}
	if in.Bio != nil {
		p.Bio = strings.TrimSpace(*in.Bio)
	}
	if in.City != nil {
		p.City = strings.TrimSpace(*in.City)
	}
	if in.Offerings != nil {
		if err := validateOfferings(in.Offerings); err != nil {
			return Provider{}, err
		}
		p.Offerings = in.Offerings
	}
	if in.Active != nil {
		p.Active = *in.Active
	}

	p.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, p); err != nil {
		return Provider{}, err
	}
	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Provider, error) {
	p, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return Provider{}, ErrNotFound
	}
	return p, nil
}

// GetByUserID devuelve el perfil de proveedor del usuario, si tiene.
func (s *Service) GetByUserID(ctx context.Context, userID string) (Provider, error) {
	p, err := s.repo.GetByUserID(ctx, strings.TrimSpace(userID))
	if err != nil {
		return Provider{}, ErrNotFound
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Provider, error) {
	items, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].DisplayName < items[j].DisplayName
	})
	return items, nil
}

type AvailabilityInput struct {
	Service    ServiceType
	DaysOfWeek []time.Weekday
	StartTimes []string
	ValidFrom  time.Time
	ValidUntil *time.Time
}

// AddAvailability agrega una regla semanal de disponibilidad. El servicio
// tiene que estar en el catálogo del proveedor; las invariantes de la regla
// (días, horas, ventana) las valida el motor de recurrencias.
func (s *Service) AddAvailability(ctx context.Context, providerID, userID string, in AvailabilityInput) (AvailabilityRule, error) {
	p, err := s.repo.GetByID(ctx, strings.TrimSpace(providerID))
	if err != nil {
		return AvailabilityRule{}, ErrNotFound
	}
	if p.UserID != userID {
		return AvailabilityRule{}, ErrForbidden
	}

	off, ok := p.OfferingFor(in.Service)
	if !ok {
		return AvailabilityRule{}, errors.Join(ErrInvalidInput, errors.New("el proveedor no ofrece ese servicio"))
	}

	now := s.now()
	rule := AvailabilityRule{
		ID:         uuid.NewString(),
		ProviderID: p.ID,
		Service:    in.Service,
		DaysOfWeek: in.DaysOfWeek,
		StartTimes: in.StartTimes,
		ValidFrom:  in.ValidFrom,
		ValidUntil: in.ValidUntil,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := rule.Rule(off.DurationMin).Validate(); err != nil {
		return AvailabilityRule{}, errors.Join(ErrInvalidInput, err)
	}

	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return AvailabilityRule{}, err
	}
	return rule, nil
}

// DeactivateAvailability apaga una regla; los turnos futuros dejan de
// ofrecerse, las reservas ya tomadas no se tocan.
func (s *Service) DeactivateAvailability(ctx context.Context, ruleID, userID string) (AvailabilityRule, error) {
	rule, err := s.repo.GetRule(ctx, strings.TrimSpace(ruleID))
	if err != nil {
		return AvailabilityRule{}, ErrNotFound
	}
	p, err := s.repo.GetByID(ctx, rule.ProviderID)
	if err != nil {
		return AvailabilityRule{}, ErrNotFound
	}
	if p.UserID != userID {
		return AvailabilityRule{}, ErrForbidden
	}

	if !rule.Active {
		return rule, nil // idempotente
	}
	rule.Active = false
	rule.UpdatedAt = s.now()
	if err := s.repo.UpdateRule(ctx, rule); err != nil {
		return AvailabilityRule{}, err
	}
	return rule, nil
}

func (s *Service) ListAvailability(ctx context.Context, providerID string) ([]AvailabilityRule, error) {
	return s.repo.ListRulesByProvider(ctx, providerID)
}

// Slots calcula los turnos del proveedor para una fecha: expande las reglas
// de disponibilidad y marca como no disponibles los ya reservados. Las reglas
// malformadas se loguean y se saltan sin romper el resto.
func (s *Service) Slots(ctx context.Context, providerID string, date time.Time) ([]Slot, error) {
	p, err := s.repo.GetByID(ctx, strings.TrimSpace(providerID))
	if err != nil {
		return nil, ErrNotFound
	}
	if !p.Active {
		return []Slot{}, nil
	}

	avail, err := s.repo.ListRulesByProvider(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	rules := make([]recurrence.Rule, 0, len(avail))
	for _, a := range avail {
		off, ok := p.OfferingFor(a.Service)
		if !ok {
			continue // el servicio salió del catálogo; la regla quedó huérfana
		}
		rules = append(rules, a.Rule(off.DurationMin))
	}

	res := recurrence.Expand(rules, date, nil)
	for _, sk := range res.SkippedRules {
		s.log.Warn("regla de disponibilidad saltada", map[string]any{
			"rule_id":     sk.RuleID,
			"provider_id": p.ID,
			"reason":      sk.Reason,
		})
	}

	taken := map[string]struct{}{}
	if s.booked != nil {
		taken, err = s.booked.BookedStartTimes(ctx, p.ID, date)
		if err != nil {
			return nil, err
		}
	}

	slots := make([]Slot, 0, len(res.Candidates))
	for _, c := range res.Candidates {
		service := ServiceType(c.PayloadRef)
		off, ok := p.OfferingFor(service)
		if !ok {
			continue
		}
		_, booked := taken[c.TimeOfDay]
		slots = append(slots, Slot{
			ProviderID:  p.ID,
			Service:     service,
			Date:        date,
			StartTime:   c.TimeOfDay,
			DurationMin: int(c.Quantity),
			PriceCents:  off.PriceCents,
			Available:   !booked,
		})
	}
	return slots, nil
}

func validateOfferings(offs []Offering) error {
	if len(offs) == 0 {
		return errors.Join(ErrInvalidInput, errors.New("al menos un servicio ofrecido"))
	}
	seen := map[ServiceType]struct{}{}
	for _, o := range offs {
		if !ValidServiceType(o.Type) {
			return errors.Join(ErrInvalidInput, errors.New("servicio desconocido"))
		}
		if o.PriceCents <= 0 || o.DurationMin <= 0 {
			return errors.Join(ErrInvalidInput, errors.New("precio y duración deben ser > 0"))
		}
		if _, dup := seen[o.Type]; dup {
			return errors.Join(ErrInvalidInput, errors.New("servicio repetido"))
		}
		seen[o.Type] = struct{}{}
	}
	return nil
}
