package orders

import "time"

// Product es un artículo del catálogo de la tienda (alimento, accesorios).
type Product struct {
	ID          string
	SKU         string
	Name        string
	Description string
	PriceCents  int64
	Stock       int
	Active      bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderStatus es el estado de un pedido.
// @Enum pending, paid, shipped, delivered, cancelled
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// Terminal indica si el pedido ya no admite transiciones.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Item es una línea del pedido. SKU, nombre y precio unitario son snapshot
// del producto al momento de comprar: cambios de catálogo posteriores no
// tocan pedidos existentes.
type Item struct {
	ProductID      string
	SKU            string
	Name           string
	UnitPriceCents int64
	Quantity       int
}

// Order es un pedido de la tienda.
type Order struct {
	ID     string
	UserID string

	Items      []Item
	TotalCents int64

	Status          OrderStatus
	ShippingAddress string
	CancelReason    string

	CreatedAt time.Time
	UpdatedAt time.Time
}
