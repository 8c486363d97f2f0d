package carelog

// Category clasifica los registros del historial.
type Category string

const (
	CategoryExercise   Category = "EXERCISE"
	CategoryNutrition  Category = "NUTRITION"
	CategoryVeterinary Category = "VETERINARY"
	CategoryGrooming   Category = "GROOMING"
	CategoryWeight     Category = "WEIGHT"
	CategoryNote       Category = "NOTE"
)

func ValidCategory(c Category) bool {
	switch c {
	case CategoryExercise, CategoryNutrition, CategoryVeterinary,
		CategoryGrooming, CategoryWeight, CategoryNote:
		return true
	default:
		return false
	}
}

type ActorType string

const (
	ActorTypeOwnerUser     ActorType = "OWNER_USER"
	ActorTypeCaregiverUser ActorType = "CAREGIVER_USER"
	ActorTypeProviderUser  ActorType = "PROVIDER_USER"
	ActorTypeSystem        ActorType = "SYSTEM"
)

type Source string

const (
	SourceManual      Source = "manual"
	SourceFeeding     Source = "feeding"     // generado al completar una comida
	SourceBooking     Source = "booking"     // generado al completar un servicio
	SourceIntegration Source = "integration" // dispositivos/terceros
)

type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityShared  Visibility = "shared_with_caregivers"
)

type EntryStatus string

const (
	EntryStatusActive EntryStatus = "active"
	EntryStatusVoided EntryStatus = "voided"
)
