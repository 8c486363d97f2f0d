package feeding

import (
	"time"

	"druma-petcare/internal/recurrence"

	"github.com/samber/mo"
)

// MealSlot es una comida dentro del horario: hora, etiqueta, alimento y porción.
type MealSlot struct {
	TimeOfDay     string // HH:MM
	Label         string // "breakfast", "dinner", ...
	FoodRef       string // referencia al alimento (catálogo u objeto externo)
	QuantityGrams float64
}

// Schedule define el horario de alimentación semanal de una mascota.
// Es la regla de recurrencia del dominio feeding; las comidas concretas
// (Meal) se materializan con el motor de recurrencias.
type Schedule struct {
	ID          string
	PetID       string
	OwnerUserID string

	Name string // "dieta de invierno", etc.

	DaysOfWeek []time.Weekday
	Slots      []MealSlot

	ValidFrom  time.Time
	ValidUntil *time.Time // nil = sin fin
	Active     bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Rule proyecta el horario al tipo genérico del motor de recurrencias.
func (s Schedule) Rule() recurrence.Rule {
	entries := make([]recurrence.Entry, 0, len(s.Slots))
	for _, slot := range s.Slots {
		entries = append(entries, recurrence.Entry{
			TimeOfDay:  slot.TimeOfDay,
			Label:      slot.Label,
			PayloadRef: slot.FoodRef,
			Quantity:   slot.QuantityGrams,
		})
	}

	until := mo.None[time.Time]()
	if s.ValidUntil != nil {
		until = mo.Some(*s.ValidUntil)
	}

	return recurrence.Rule{
		ID:         s.ID,
		OwnerID:    s.OwnerUserID,
		SubjectID:  s.PetID,
		DaysOfWeek: s.DaysOfWeek,
		Entries:    entries,
		ValidFrom:  s.ValidFrom,
		ValidUntil: until,
		Active:     s.Active,
	}
}

// Meal es una comida materializada para una fecha concreta.
// Label/FoodRef/QuantityGrams son snapshot del slot al momento de generar:
// editar el horario después no reescribe comidas ya materializadas.
// ScheduleID es referencia débil: borrar el horario no borra el histórico.
type Meal struct {
	ID         string
	ScheduleID string
	PetID      string

	Date      time.Time // fecha calendario
	TimeOfDay string    // HH:MM

	Label         string
	FoodRef       string
	QuantityGrams float64

	Status      recurrence.Status
	CompletedAt *time.Time
	SkipReason  string

	CreatedAt time.Time
}

// Occurrence proyecta la comida al tipo genérico del motor (para dedup
// y transiciones).
func (m Meal) Occurrence() recurrence.Occurrence {
	return recurrence.Occurrence{
		ID:          m.ID,
		RuleID:      m.ScheduleID,
		SubjectID:   m.PetID,
		Date:        m.Date,
		TimeOfDay:   m.TimeOfDay,
		Label:       m.Label,
		PayloadRef:  m.FoodRef,
		Quantity:    m.QuantityGrams,
		Status:      m.Status,
		CompletedAt: m.CompletedAt,
		SkipReason:  m.SkipReason,
	}
}

func mealFromOccurrence(o recurrence.Occurrence) Meal {
	return Meal{
		ID:            o.ID,
		ScheduleID:    o.RuleID,
		PetID:         o.SubjectID,
		Date:          o.Date,
		TimeOfDay:     o.TimeOfDay,
		Label:         o.Label,
		FoodRef:       o.PayloadRef,
		QuantityGrams: o.Quantity,
		Status:        o.Status,
		CompletedAt:   o.CompletedAt,
		SkipReason:    o.SkipReason,
	}
}
