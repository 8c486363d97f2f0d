package caregivers

import "time"

// Scope define qué puede hacer un cuidador delegado sobre una mascota.
type Scope string

const (
	ScopePetsRead        Scope = "pets:read"
	ScopePetsEdit        Scope = "pets:edit"
	ScopeCareRead        Scope = "care:read"
	ScopeCareLog         Scope = "care:log"
	ScopeCareVoid        Scope = "care:void"
	ScopeFeedingRead     Scope = "feeding:read"
	ScopeFeedingManage   Scope = "feeding:manage"
	ScopeMealsTransition Scope = "meals:transition"
)

var allScopes = map[Scope]struct{}{
	ScopePetsRead:        {},
	ScopePetsEdit:        {},
	ScopeCareRead:        {},
	ScopeCareLog:         {},
	ScopeCareVoid:        {},
	ScopeFeedingRead:     {},
	ScopeFeedingManage:   {},
	ScopeMealsTransition: {},
}

type Status string

const (
	StatusInvited Status = "invited"
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// Grant es una delegación de cuidado: el dueño comparte una mascota con
// otro usuario (paseador, cuidador, familiar) con scopes acotados.
type Grant struct {
	ID string

	PetID string

	OwnerUserID   string // quien comparte
	GranteeUserID string // cuidador delegado

	Scopes []Scope
	Status Status

	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// HasScope revisa si el grant incluye el scope pedido.
func HasScope(g Grant, s Scope) bool {
	for _, gs := range g.Scopes {
		if gs == s {
			return true
		}
	}
	return false
}
