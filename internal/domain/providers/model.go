package providers

import (
	"time"

	"druma-petcare/internal/recurrence"

	"github.com/samber/mo"
)

// ServiceType define los servicios ofrecidos en el marketplace.
// @Enum walk, grooming, vet_consult, boarding
type ServiceType string

const (
	ServiceWalk       ServiceType = "walk"
	ServiceGrooming   ServiceType = "grooming"
	ServiceVetConsult ServiceType = "vet_consult"
	ServiceBoarding   ServiceType = "boarding"
)

func ValidServiceType(s ServiceType) bool {
	switch s {
	case ServiceWalk, ServiceGrooming, ServiceVetConsult, ServiceBoarding:
		return true
	default:
		return false
	}
}

// Offering es un servicio concreto del proveedor con precio y duración.
type Offering struct {
	Type        ServiceType
	PriceCents  int64
	DurationMin int
}

// Provider es el perfil público de un prestador de servicios.
type Provider struct {
	ID     string
	UserID string

	DisplayName string
	Bio         string
	City        string

	Offerings []Offering
	Active    bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OfferingFor busca el servicio ofrecido por tipo.
func (p Provider) OfferingFor(t ServiceType) (Offering, bool) {
	for _, o := range p.Offerings {
		if o.Type == t {
			return o, true
		}
	}
	return Offering{}, false
}

// AvailabilityRule define la disponibilidad semanal del proveedor para un
// servicio: qué días y a qué horas arranca cada turno. La expansión a turnos
// concretos por fecha la hace el motor de recurrencias.
type AvailabilityRule struct {
	ID         string
	ProviderID string

	Service    ServiceType
	DaysOfWeek []time.Weekday
	StartTimes []string // HH:MM

	ValidFrom  time.Time
	ValidUntil *time.Time
	Active     bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Rule proyecta la disponibilidad al tipo genérico del motor. La duración del
// turno viaja como Quantity (minutos) y el servicio como PayloadRef.
func (a AvailabilityRule) Rule(durationMin int) recurrence.Rule {
	entries := make([]recurrence.Entry, 0, len(a.StartTimes))
	for _, at := range a.StartTimes {
		entries = append(entries, recurrence.Entry{
			TimeOfDay:  at,
			Label:      string(a.Service),
			PayloadRef: string(a.Service),
			Quantity:   float64(durationMin),
		})
	}

	until := mo.None[time.Time]()
	if a.ValidUntil != nil {
		until = mo.Some(*a.ValidUntil)
	}

	return recurrence.Rule{
		ID:         a.ID,
		OwnerID:    a.ProviderID,
		SubjectID:  a.ProviderID,
		DaysOfWeek: a.DaysOfWeek,
		Entries:    entries,
		ValidFrom:  a.ValidFrom,
		ValidUntil: until,
		Active:     a.Active,
	}
}

// Slot es un turno concreto ofrecido para una fecha. No se persiste: se
// calcula expandiendo las reglas de disponibilidad contra las reservas.
type Slot struct {
	ProviderID  string
	Service     ServiceType
	Date        time.Time
	StartTime   string // HH:MM
	DurationMin int
	PriceCents  int64
	Available   bool
}
