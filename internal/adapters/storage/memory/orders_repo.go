package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"druma-petcare/internal/domain/orders"
)

type ordersRepo struct {
	mu       sync.RWMutex
	products map[string]orders.Product
	orders   map[string]orders.Order
}

func NewOrdersRepo() orders.Repository {
	return &ordersRepo{
		products: make(map[string]orders.Product),
		orders:   make(map[string]orders.Order),
	}
}

func (r *ordersRepo) CreateProduct(ctx context.Context, p orders.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
	return nil
}

func (r *ordersRepo) UpdateProduct(ctx context.Context, p orders.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[p.ID]; !ok {
		return ErrNotFound
	}
	r.products[p.ID] = p
	return nil
}

func (r *ordersRepo) GetProduct(ctx context.Context, id string) (orders.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return orders.Product{}, ErrNotFound
	}
	return p, nil
}

// AdjustStock lee y escribe bajo el mismo lock: el chequeo de stock y el
// descuento son una sola operación.
func (r *ordersRepo) AdjustStock(ctx context.Context, productID string, delta int, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[productID]
	if !ok || p.Stock+delta < 0 {
		return false, nil
	}
	p.Stock += delta
	p.UpdatedAt = at
	r.products[productID] = p
	return true, nil
}

func (r *ordersRepo) ListProducts(ctx context.Context, onlyActive bool) ([]orders.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]orders.Product, 0)
	for _, p := range r.products {
		if onlyActive && !p.Active {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *ordersRepo) CreateOrder(ctx context.Context, o orders.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = o
	return nil
}

func (r *ordersRepo) UpdateOrder(ctx context.Context, o orders.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[o.ID]; !ok {
		return ErrNotFound
	}
	r.orders[o.ID] = o
	return nil
}

func (r *ordersRepo) GetOrder(ctx context.Context, id string) (orders.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return orders.Order{}, ErrNotFound
	}
	return o, nil
}

func (r *ordersRepo) ListOrdersByUser(ctx context.Context, userID string) ([]orders.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]orders.Order, 0)
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
