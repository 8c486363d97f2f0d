package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"druma-petcare/internal/domain/providers"
)

type providersRepo struct {
	mu       sync.RWMutex
	byID     map[string]providers.Provider
	rulesByID map[string]providers.AvailabilityRule
}

func NewProvidersRepo() providers.Repository {
	return &providersRepo{
		byID:      make(map[string]providers.Provider),
		rulesByID: make(map[string]providers.AvailabilityRule),
	}
}

func (r *providersRepo) Create(ctx context.Context, p providers.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = p
	return nil
}

func (r *providersRepo) Update(ctx context.Context, p providers.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[p.ID]; !ok {
		return ErrNotFound
	}
	r.byID[p.ID] = p
	return nil
}

func (r *providersRepo) GetByID(ctx context.Context, id string) (providers.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return providers.Provider{}, ErrNotFound
	}
	return p, nil
}

func (r *providersRepo) GetByUserID(ctx context.Context, userID string) (providers.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.byID {
		if p.UserID == userID {
			return p, nil
		}
	}
	return providers.Provider{}, ErrNotFound
}

func (r *providersRepo) List(ctx context.Context, f providers.ListFilter) ([]providers.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]providers.Provider, 0)
	for _, p := range r.byID {
		if f.City != "" && !strings.EqualFold(p.City, f.City) {
			continue
		}
		if f.Service != "" {
			if _, ok := p.OfferingFor(f.Service); !ok {
				continue
			}
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *providersRepo) CreateRule(ctx context.Context, a providers.AvailabilityRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rulesByID[a.ID] = a
	return nil
}

func (r *providersRepo) UpdateRule(ctx context.Context, a providers.AvailabilityRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rulesByID[a.ID]; !ok {
		return ErrNotFound
	}
	r.rulesByID[a.ID] = a
	return nil
}

func (r *providersRepo) GetRule(ctx context.Context, id string) (providers.AvailabilityRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.rulesByID[id]
	if !ok {
		return providers.AvailabilityRule{}, ErrNotFound
	}
	return a, nil
}

func (r *providersRepo) ListRulesByProvider(ctx context.Context, providerID string) ([]providers.AvailabilityRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]providers.AvailabilityRule, 0)
	for _, a := range r.rulesByID {
		if a.ProviderID == providerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
