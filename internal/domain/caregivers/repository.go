package caregivers

import "context"

type Repository interface {
	Create(ctx context.Context, g Grant) error
	Update(ctx context.Context, g Grant) error
	GetByID(ctx context.Context, id string) (Grant, error)
	ListByPet(ctx context.Context, petID string) ([]Grant, error)
	ListByGrantee(ctx context.Context, granteeUserID string) ([]Grant, error)

	// GetActiveGrant devuelve el grant activo para (pet, grantee) o error
	// si no hay ninguno. Si hubiera más de uno por data sucia, gana el de
	// UpdatedAt más reciente.
	GetActiveGrant(ctx context.Context, petID, granteeUserID string) (Grant, error)
}
