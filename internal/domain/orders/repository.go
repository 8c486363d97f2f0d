package orders

import (
	"context"
	"time"
)

type Repository interface {
	CreateProduct(ctx context.Context, p Product) error
	UpdateProduct(ctx context.Context, p Product) error
	GetProduct(ctx context.Context, id string) (Product, error)
	ListProducts(ctx context.Context, onlyActive bool) ([]Product, error)

	// AdjustStock suma delta al stock del producto solo si el resultado no
	// queda negativo. Devuelve false si el producto no existe o no alcanza
	// el stock. La condición se resuelve en el storage: dos pedidos
	// concurrentes no pueden sobrevender.
	AdjustStock(ctx context.Context, productID string, delta int, at time.Time) (bool, error)

	CreateOrder(ctx context.Context, o Order) error
	UpdateOrder(ctx context.Context, o Order) error
	GetOrder(ctx context.Context, id string) (Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]Order, error)
}
