package caregivers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrBadState     = errors.New("invalid state")
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

type InviteInput struct {
	PetID         string
	OwnerUserID   string
	GranteeUserID string
	Scopes        []Scope
}

// Invite crea (o actualiza) la delegación para (pet, grantee).
// Si ya existe un grant no-revocado para esa dupla, se reutiliza y solo se
// actualizan los scopes: un invite repetido nunca duplica grants.
func (s *Service) Invite(ctx context.Context, in InviteInput) (Grant, error) {
	petID := strings.TrimSpace(in.PetID)
	ownerID := strings.TrimSpace(in.OwnerUserID)
	granteeID := strings.TrimSpace(in.GranteeUserID)

	if petID == "" || ownerID == "" || granteeID == "" {
		return Grant{}, ErrInvalidInput
	}
	if ownerID == granteeID {
		return Grant{}, ErrInvalidInput
	}

	// Scopes vacíos => default útil: ver perfil + ver historial.
	// Con valores, validación estricta.
	scopes := []Scope{ScopePetsRead, ScopeCareRead}
	if len(in.Scopes) > 0 {
		normalized, err := normalizeScopes(in.Scopes)
		if err != nil {
			return Grant{}, err
		}
		scopes = normalized
	}

	now := s.now()

	// Reutilizar el grant vigente si existe (invited o active).
	existing, err := s.latestLiveGrant(ctx, petID, ownerID, granteeID)
	if err == nil {
		existing.Scopes = scopes
		existing.UpdatedAt = now
		if err := s.repo.Update(ctx, existing); err != nil {
			return Grant{}, err
		}
		return existing, nil
	}

	g := Grant{
		ID:            uuid.NewString(),
		PetID:         petID,
		OwnerUserID:   ownerID,
		GranteeUserID: granteeID,
		Scopes:        scopes,
		Status:        StatusInvited,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, g); err != nil {
		return Grant{}, err
	}
	return g, nil
}

// Accept activa la invitación. Idempotente si ya está activa.
func (s *Service) Accept(ctx context.Context, grantID, granteeUserID string) (Grant, error) {
	grantID = strings.TrimSpace(grantID)
	granteeUserID = strings.TrimSpace(granteeUserID)
	if grantID == "" || granteeUserID == "" {
		return Grant{}, ErrInvalidInput
	}

	g, err := s.repo.GetByID(ctx, grantID)
	if err != nil {
		return Grant{}, ErrNotFound
	}
	if g.GranteeUserID != granteeUserID {
		return Grant{}, ErrForbidden
	}

	switch g.Status {
	case StatusActive:
		return g, nil // idempotente
	case StatusRevoked:
		return Grant{}, ErrBadState
	case StatusInvited:
		// sigue abajo
	default:
		return Grant{}, ErrBadState
	}

	g.Status = StatusActive
	g.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, g); err != nil {
		return Grant{}, err
	}
	return g, nil
}

// Revoke corta el acceso. Solo el owner puede; idempotente si ya estaba revocado.
func (s *Service) Revoke(ctx context.Context, grantID, ownerUserID string) (Grant, error) {
	grantID = strings.TrimSpace(grantID)
	ownerUserID = strings.TrimSpace(ownerUserID)
	if grantID == "" || ownerUserID == "" {
		return Grant{}, ErrInvalidInput
	}

	g, err := s.repo.GetByID(ctx, grantID)
	if err != nil {
		return Grant{}, ErrNotFound
	}
	if g.OwnerUserID != ownerUserID {
		return Grant{}, ErrForbidden
	}

	if g.Status == StatusRevoked {
		return g, nil // idempotente
	}

	now := s.now()
	g.Status = StatusRevoked
	g.UpdatedAt = now
	g.RevokedAt = &now
	if err := s.repo.Update(ctx, g); err != nil {
		return Grant{}, err
	}
	return g, nil
}

// GetActiveGrant expone el grant activo de un delegado sobre una mascota.
// Lo usan los handlers de otros módulos para autorizar (owner bypass aparte).
func (s *Service) GetActiveGrant(ctx context.Context, petID, granteeUserID string) (Grant, error) {
	g, err := s.repo.GetActiveGrant(ctx, petID, granteeUserID)
	if err != nil {
		return Grant{}, ErrNotFound
	}
	return g, nil
}

func (s *Service) ListByPet(ctx context.Context, petID string) ([]Grant, error) {
	return s.repo.ListByPet(ctx, petID)
}

func (s *Service) ListByGrantee(ctx context.Context, granteeUserID string) ([]Grant, error) {
	return s.repo.ListByGrantee(ctx, granteeUserID)
}

// Authorize resuelve el caso común: owner bypass, o delegado con grant
// activo que incluya el scope.
func (s *Service) Authorize(ctx context.Context, petOwnerID, petID, userID string, scope Scope) error {
	if petOwnerID == userID {
		return nil
	}
	g, err := s.GetActiveGrant(ctx, petID, userID)
	if err != nil || !HasScope(g, scope) {
		return ErrForbidden
	}
	return nil
}

func (s *Service) latestLiveGrant(ctx context.Context, petID, ownerID, granteeID string) (Grant, error) {
	all, err := s.repo.ListByPet(ctx, petID)
	if err != nil {
		return Grant{}, err
	}

	var winner Grant
	found := false
	for _, g := range all {
		if g.OwnerUserID != ownerID || g.GranteeUserID != granteeID {
			continue
		}
		if g.Status == StatusRevoked {
			continue
		}
		if !found || g.UpdatedAt.After(winner.UpdatedAt) {
			winner = g
			found = true
		}
	}
	if !found {
		return Grant{}, ErrNotFound
	}
	return winner, nil
}

func normalizeScopes(in []Scope) ([]Scope, error) {
	seen := map[Scope]struct{}{}
	out := make([]Scope, 0, len(in))
	for _, s := range in {
		s = Scope(strings.TrimSpace(string(s)))
		if s == "" {
			continue
		}
		if _, ok := allScopes[s]; !ok {
			return nil, ErrInvalidInput
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, ErrInvalidInput
	}
	return out, nil
}
