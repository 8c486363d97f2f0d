package bookings

import (
	"time"

	"druma-petcare/internal/domain/providers"
)

// Status es el estado de una reserva.
// @Enum requested, confirmed, in_progress, completed, cancelled, declined
type Status string

const (
	StatusRequested  Status = "requested"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusDeclined   Status = "declined"
)

// Terminal indica si la reserva ya no admite transiciones.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusDeclined:
		return true
	default:
		return false
	}
}

// Blocking indica si la reserva ocupa el turno a efectos de conflictos.
func (s Status) Blocking() bool {
	switch s {
	case StatusRequested, StatusConfirmed, StatusInProgress:
		return true
	default:
		return false
	}
}

// Booking es una reserva de un turno de proveedor para una mascota.
// PriceCents y DurationMin son snapshot del catálogo al momento de reservar:
// cambios de precio posteriores no afectan reservas tomadas.
type Booking struct {
	ID string

	ProviderID  string
	PetID       string
	OwnerUserID string

	Service   providers.ServiceType
	Date      time.Time // fecha calendario
	StartTime string    // HH:MM

	DurationMin int
	PriceCents  int64

	Status       Status
	Notes        string
	CancelReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// interval devuelve los minutos desde medianoche [inicio, fin) del turno.
func (b Booking) interval() (int, int) {
	start := minutesOfDay(b.StartTime)
	return start, start + b.DurationMin
}

// Overlaps decide si dos reservas del mismo proveedor y fecha se pisan.
func (b Booking) Overlaps(other Booking) bool {
	if b.ProviderID != other.ProviderID {
		return false
	}
	if b.Date.Format("2006-01-02") != other.Date.Format("2006-01-02") {
		return false
	}
	aStart, aEnd := b.interval()
	bStart, bEnd := other.interval()
	return aStart < bEnd && bStart < aEnd
}

func minutesOfDay(hhmm string) int {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0
	}
	return t.Hour()*60 + t.Minute()
}
