package pets

import "time"

// Species define las especies soportadas.
// @Enum dog, cat, bird, rabbit, other
type Species string

const (
	SpeciesDog    Species = "dog"
	SpeciesCat    Species = "cat"
	SpeciesBird   Species = "bird"
	SpeciesRabbit Species = "rabbit"
	SpeciesOther  Species = "other"
)

func ValidSpecies(s Species) bool {
	switch s {
	case SpeciesDog, SpeciesCat, SpeciesBird, SpeciesRabbit, SpeciesOther:
		return true
	default:
		return false
	}
}

// Sex define el sexo de la mascota.
// @Enum male, female, unknown
type Sex string

const (
	SexMale    Sex = "male"
	SexFemale  Sex = "female"
	SexUnknown Sex = "unknown"
)

// ActivityLevel clasifica el nivel de actividad (lo usa el dashboard
// y sirve de referencia para porciones de comida).
// @Enum low, moderate, high
type ActivityLevel string

const (
	ActivityLow      ActivityLevel = "low"
	ActivityModerate ActivityLevel = "moderate"
	ActivityHigh     ActivityLevel = "high"
)

// Pet es el perfil de una mascota registrada en el marketplace.
type Pet struct {
	ID          string
	OwnerUserID string

	Name    string
	Species Species
	Breed   string
	Sex     Sex

	BirthDate     *time.Time
	WeightKg      float64 // 0 = no registrado
	ActivityLevel ActivityLevel
	PhotoURL      string // objeto en el object store; puede estar vacío

	Notes string

	CreatedAt time.Time
	UpdatedAt time.Time
}
