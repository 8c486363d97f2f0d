package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"druma-petcare/internal/domain/bookings"
	"druma-petcare/internal/recurrence"
)

type bookingsRepo struct {
	mu   sync.RWMutex
	byID map[string]bookings.Booking
}

func NewBookingsRepo() bookings.Repository {
	return &bookingsRepo{byID: make(map[string]bookings.Booking)}
}

// CreateIfFree escanea e inserta bajo el mismo lock: dos solicitudes
// concurrentes del mismo turno resuelven acá, no en el servicio.
func (r *bookingsRepo) CreateIfFree(ctx context.Context, b bookings.Booking) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, other := range r.byID {
		if other.Status.Blocking() && b.Overlaps(other) {
			return false, nil
		}
	}
	r.byID[b.ID] = b
	return true, nil
}

func (r *bookingsRepo) Update(ctx context.Context, b bookings.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[b.ID]; !ok {
		return ErrNotFound
	}
	r.byID[b.ID] = b
	return nil
}

func (r *bookingsRepo) GetByID(ctx context.Context, id string) (bookings.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.byID[id]
	if !ok {
		return bookings.Booking{}, ErrNotFound
	}
	return b, nil
}

func (r *bookingsRepo) ListByProviderAndDate(ctx context.Context, providerID string, date time.Time) ([]bookings.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	day := recurrence.DateKey(date)
	out := make([]bookings.Booking, 0)
	for _, b := range r.byID {
		if b.ProviderID == providerID && recurrence.DateKey(b.Date) == day {
			out = append(out, b)
		}
	}
	sortBookings(out)
	return out, nil
}

func (r *bookingsRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]bookings.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]bookings.Booking, 0)
	for _, b := range r.byID {
		if b.OwnerUserID == ownerUserID {
			out = append(out, b)
		}
	}
	sortBookings(out)
	return out, nil
}

func (r *bookingsRepo) ListByProvider(ctx context.Context, providerID string) ([]bookings.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]bookings.Booking, 0)
	for _, b := range r.byID {
		if b.ProviderID == providerID {
			out = append(out, b)
		}
	}
	sortBookings(out)
	return out, nil
}

func sortBookings(bs []bookings.Booking) {
	sort.Slice(bs, func(i, j int) bool {
		if !bs[i].Date.Equal(bs[j].Date) {
			return bs[i].Date.Before(bs[j].Date)
		}
		return bs[i].StartTime < bs[j].StartTime
	})
}
