package bookings

import (
	"context"
	"time"
)

type Repository interface {
	// CreateIfFree inserta la reserva solo si no se pisa con otra vigente
	// (requested/confirmed/in_progress) del mismo proveedor. Devuelve false
	// si el turno ya estaba tomado. Segunda línea de defensa detrás del
	// chequeo de solapamiento del servicio: dos solicitudes concurrentes
	// resuelven en el storage, no en memoria.
	CreateIfFree(ctx context.Context, b Booking) (bool, error)

	Update(ctx context.Context, b Booking) error
	GetByID(ctx context.Context, id string) (Booking, error)

	ListByProviderAndDate(ctx context.Context, providerID string, date time.Time) ([]Booking, error)
	ListByOwner(ctx context.Context, ownerUserID string) ([]Booking, error)
	ListByProvider(ctx context.Context, providerID string) ([]Booking, error)
}
