package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"druma-petcare/internal/domain/carelog"
)

type carelogRepo struct {
	mu   sync.RWMutex
	byID map[string]carelog.Entry
}

func NewCarelogRepo() carelog.Repository {
	return &carelogRepo{
		byID: make(map[string]carelog.Entry),
	}
}

func (r *carelogRepo) Create(ctx context.Context, e carelog.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[e.ID] = e
	return nil
}

func (r *carelogRepo) GetByID(ctx context.Context, id string) (carelog.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byID[id]
	if !ok {
		return carelog.Entry{}, ErrNotFound
	}
	return e, nil
}

func (r *carelogRepo) ListByPet(ctx context.Context, petID string, filter carelog.ListFilter) ([]carelog.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]carelog.Entry, 0)
	for _, e := range r.byID {
		if e.PetID != petID {
			continue
		}
		if !matchesFilter(e, filter) {
			continue
		}
		out = append(out, e)
	}

	// Más reciente primero, como espera el timeline.
	sort.Slice(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *carelogRepo) Void(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	e.Status = carelog.EntryStatusVoided
	r.byID[id] = e
	return nil
}

func matchesFilter(e carelog.Entry, f carelog.ListFilter) bool {
	if len(f.Categories) > 0 {
		found := false
		for _, c := range f.Categories {
			if e.Category == c {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && e.OccurredAt.Before(*f.From) {
		return false
	}
	if f.To != nil && e.OccurredAt.After(*f.To) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(e.Title), q) && !strings.Contains(strings.ToLower(e.Notes), q) {
			return false
		}
	}
	return true
}
