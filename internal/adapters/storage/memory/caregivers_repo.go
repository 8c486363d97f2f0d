package memory

import (
	"context"
	"sort"
	"sync"

	"druma-petcare/internal/domain/caregivers"
)

type caregiverRepo struct {
	mu   sync.RWMutex
	byID map[string]caregivers.Grant
}

func NewCaregiverRepo() caregivers.Repository {
	return &caregiverRepo{
		byID: make(map[string]caregivers.Grant),
	}
}

func (r *caregiverRepo) Create(ctx context.Context, g caregivers.Grant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[g.ID] = g
	return nil
}

func (r *caregiverRepo) Update(ctx context.Context, g caregivers.Grant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[g.ID]; !ok {
		return ErrNotFound
	}
	r.byID[g.ID] = g
	return nil
}

func (r *caregiverRepo) GetByID(ctx context.Context, id string) (caregivers.Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.byID[id]
	if !ok {
		return caregivers.Grant{}, ErrNotFound
	}
	return g, nil
}

func (r *caregiverRepo) ListByPet(ctx context.Context, petID string) ([]caregivers.Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]caregivers.Grant, 0)
	for _, g := range r.byID {
		if g.PetID == petID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *caregiverRepo) ListByGrantee(ctx context.Context, granteeUserID string) ([]caregivers.Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]caregivers.Grant, 0)
	for _, g := range r.byID {
		if g.GranteeUserID == granteeUserID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *caregiverRepo) GetActiveGrant(ctx context.Context, petID, granteeUserID string) (caregivers.Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var winner caregivers.Grant
	found := false
	for _, g := range r.byID {
		if g.PetID != petID || g.GranteeUserID != granteeUserID || g.Status != caregivers.StatusActive {
			continue
		}
		if !found || g.UpdatedAt.After(winner.UpdatedAt) {
			winner = g
			found = true
		}
	}
	if !found {
		return caregivers.Grant{}, ErrNotFound
	}
	return winner, nil
}
