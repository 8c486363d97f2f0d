package carelog

import "time"

type Actor struct {
	Type ActorType
	ID   string
}

// Entry es un registro del historial de cuidado de una mascota:
// ejercicio, nutrición, visita veterinaria, grooming, peso o nota libre.
// Append-only: nunca se borra, se anula (voided).
type Entry struct {
	ID    string
	PetID string

	Category Category

	OccurredAt time.Time
	RecordedAt time.Time

	Title string
	Notes string

	// Detalle tipado según categoría; cero = no aplica.
	DurationMin int     // exercise
	DistanceKm  float64 // exercise
	Calories    float64 // nutrition
	WeightKg    float64 // weight
	Clinic      string  // veterinary
	VetName     string  // veterinary

	Actor      Actor
	Source     Source
	Visibility Visibility
	Status     EntryStatus
}
