package providers

import "context"

// ListFilter filtra el directorio de proveedores.
type ListFilter struct {
	City    string
	Service ServiceType
}

type Repository interface {
	Create(ctx context.Context, p Provider) error
	Update(ctx context.Context, p Provider) error
	GetByID(ctx context.Context, id string) (Provider, error)
	GetByUserID(ctx context.Context, userID string) (Provider, error)
	List(ctx context.Context, f ListFilter) ([]Provider, error)

	CreateRule(ctx context.Context, r AvailabilityRule) error
	UpdateRule(ctx context.Context, r AvailabilityRule) error
	GetRule(ctx context.Context, id string) (AvailabilityRule, error)
	ListRulesByProvider(ctx context.Context, providerID string) ([]AvailabilityRule, error)
}
