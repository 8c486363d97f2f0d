package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/mo"
)

var (
	ErrInvalidRule       = errors.New("invalid rule")
	ErrInvalidTransition = errors.New("invalid transition")
)

// Status es el estado de una ocurrencia materializada.
// @Enum scheduled, completed, skipped, modified
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
	StatusModified  Status = "modified"
)

// Terminal indica si el estado ya no admite transiciones.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusSkipped, StatusModified:
		return true
	default:
		return false
	}
}

// Entry es una entrada horaria de la regla: a qué hora, qué y cuánto.
// PayloadRef referencia la carga (p.ej. un alimento o un servicio); se copia
// a la ocurrencia al generar, no es un link vivo.
type Entry struct {
	TimeOfDay  string // HH:MM, 24h
	Label      string
	PayloadRef string
	Quantity   float64
}

// Rule define una recurrencia semanal: qué días, a qué horas, desde/hasta cuándo.
// Independiente de cualquier fecha concreta (eso lo resuelve Expand).
type Rule struct {
	ID        string
	OwnerID   string
	SubjectID string

	DaysOfWeek []time.Weekday // 0 = domingo ... 6 = sábado
	Entries    []Entry

	ValidFrom  time.Time // fecha calendario, inclusive
	ValidUntil mo.Option[time.Time] // inclusive; None = sin fin

	Active bool
}

// Occurrence es una materialización concreta de una Rule para una fecha.
// Los campos Label/PayloadRef/Quantity son snapshot de la Entry al momento de
// generar: editar la regla después no reescribe la historia.
type Occurrence struct {
	ID        string // lo asigna quien persiste; Expand lo deja vacío para ser determinista
	RuleID    string
	SubjectID string

	Date      time.Time // fecha calendario (solo y/m/d relevante)
	TimeOfDay string    // HH:MM

	Label      string
	PayloadRef string
	Quantity   float64

	Status      Status
	CompletedAt *time.Time
	SkipReason  string
}

// Key es la tupla de deduplicación: a lo sumo una ocurrencia por
// (regla, fecha, hora, payload). Regenerar nunca duplica.
func (o Occurrence) Key() string {
	return o.RuleID + "|" + DateKey(o.Date) + "|" + o.TimeOfDay + "|" + o.PayloadRef
}

// DateKey normaliza una fecha calendario a YYYY-MM-DD (ignora hora y zona).
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// NewRule valida invariantes al construir: días y entradas no vacíos si la
// regla está activa, días en [0,6], horas HH:MM válidas y ventana coherente.
func NewRule(id, ownerID, subjectID string, days []time.Weekday, entries []Entry, validFrom time.Time, validUntil mo.Option[time.Time], active bool) (Rule, error) {
	r := Rule{
		ID:         strings.TrimSpace(id),
		OwnerID:    strings.TrimSpace(ownerID),
		SubjectID:  strings.TrimSpace(subjectID),
		DaysOfWeek: days,
		Entries:    entries,
		ValidFrom:  validFrom,
		ValidUntil: validUntil,
		Active:     active,
	}
	if r.ID == "" || r.OwnerID == "" || r.SubjectID == "" {
		return Rule{}, fmt.Errorf("%w: id, owner y subject son obligatorios", ErrInvalidRule)
	}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// Validate revisa los invariantes de la regla. Expand lo usa también para
// saltar reglas malformadas sin abortar el resto.
func (r Rule) Validate() error {
	if r.Active && len(r.DaysOfWeek) == 0 {
		return fmt.Errorf("%w: days_of_week vacío en regla activa", ErrInvalidRule)
	}
	if r.Active && len(r.Entries) == 0 {
		return fmt.Errorf("%w: entries vacío en regla activa", ErrInvalidRule)
	}
	for _, d := range r.DaysOfWeek {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("%w: día fuera de rango: %d", ErrInvalidRule, int(d))
		}
	}
	for _, e := range r.Entries {
		if _, err := ParseTimeOfDay(e.TimeOfDay); err != nil {
			return fmt.Errorf("%w: hora inválida %q", ErrInvalidRule, e.TimeOfDay)
		}
	}
	if r.ValidFrom.IsZero() {
		return fmt.Errorf("%w: valid_from es obligatorio", ErrInvalidRule)
	}
	if until, ok := r.ValidUntil.Get(); ok {
		if DateKey(until) < DateKey(r.ValidFrom) {
			return fmt.Errorf("%w: valid_until anterior a valid_from", ErrInvalidRule)
		}
	}
	return nil
}

// appliesOn decide si la regla genera ocurrencias para la fecha dada.
func (r Rule) appliesOn(date time.Time) bool {
	if !r.Active {
		return false
	}
	match := false
	for _, d := range r.DaysOfWeek {
		if date.Weekday() == d {
			match = true
			break
		}
	}
	if !match {
		return false
	}
	day := DateKey(date)
	if day < DateKey(r.ValidFrom) {
		return false
	}
	if until, ok := r.ValidUntil.Get(); ok && day > DateKey(until) {
		return false
	}
	return true
}

// ParseTimeOfDay valida una hora HH:MM (24h) y la devuelve como duración
// desde medianoche.
func ParseTimeOfDay(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
