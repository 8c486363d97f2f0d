package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"druma-petcare/internal/platform/logger"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrOutOfStock        = errors.New("out of stock")
	ErrInvalidTransition = errors.New("invalid order transition")
)

type Service struct {
	repo Repository
	log  logger.Logger
	now  func() time.Time
}

func NewService(repo Repository, log logger.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

type ProductInput struct {
	SKU         string
	Name        string
	Description string
	PriceCents  int64
	Stock       int
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	if strings.TrimSpace(in.SKU) == "" || strings.TrimSpace(in.Name) == "" {
		return Product{}, ErrInvalidInput
	}
	if in.PriceCents <= 0 || in.Stock < 0 {
		return Product{}, ErrInvalidInput
	}

	now := s.now()
	p := Product{
		ID:          uuid.NewString(),
		SKU:         strings.TrimSpace(in.SKU),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		PriceCents:  in.PriceCents,
		Stock:       in.Stock,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return Product{}, err
	}
	return p, nil
}

type ProductUpdate struct {
	Name        *string
	Description *string
	PriceCents  *int64
	Stock       *int
	Active      *bool
}

func (s *Service) UpdateProduct(ctx context.Context, productID string, in ProductUpdate) (Product, error) {
	p, err := s.repo.GetProduct(ctx, strings.TrimSpace(productID))
	if err != nil {
		return Product{}, ErrNotFound
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return Product{}, ErrInvalidInput
		}
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.PriceCents != nil {
		if *in.PriceCents <= 0 {
			return Product{}, ErrInvalidInput
		}
		p.PriceCents = *in.PriceCents
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			return Product{}, ErrInvalidInput
		}
		p.Stock = *in.Stock
	}
	if in.Active != nil {
		p.Active = *in.Active
	}

	p.UpdatedAt = s.now()
	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	p, err := s.repo.GetProduct(ctx, strings.TrimSpace(id))
	if err != nil {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (s *Service) ListProducts(ctx context.Context, onlyActive bool) ([]Product, error) {
	return s.repo.ListProducts(ctx, onlyActive)
}

type OrderLine struct {
	ProductID string
	Quantity  int
}

// CreateOrder arma el pedido congelando precio y nombre de cada producto, y
// descuenta stock. Si una línea falla (producto inactivo, sin stock, error de
// storage) el pedido entero se rechaza y lo ya descontado se repone.
func (s *Service) CreateOrder(ctx context.Context, userID, shippingAddress string, lines []OrderLine) (Order, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || len(lines) == 0 {
		return Order{}, ErrInvalidInput
	}

	// Primera pasada: validar todo antes de tocar stock.
	products := make([]Product, len(lines))
	for i, l := range lines {
		if l.Quantity <= 0 {
			return Order{}, fmt.Errorf("%w: quantity debe ser > 0", ErrInvalidInput)
		}
		p, err := s.repo.GetProduct(ctx, l.ProductID)
		if err != nil {
			return Order{}, fmt.Errorf("%w: producto %s", ErrNotFound, l.ProductID)
		}
		if !p.Active {
			return Order{}, fmt.Errorf("%w: producto %s inactivo", ErrInvalidInput, p.SKU)
		}
		if p.Stock < l.Quantity {
			return Order{}, fmt.Errorf("%w: %s", ErrOutOfStock, p.SKU)
		}
		products[i] = p
	}

	now := s.now()
	o := Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		Status:          StatusPending,
		ShippingAddress: strings.TrimSpace(shippingAddress),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for i, l := range lines {
		p := products[i]
		o.Items = append(o.Items, Item{
			ProductID:      p.ID,
			SKU:            p.SKU,
			Name:           p.Name,
			UnitPriceCents: p.PriceCents,
			Quantity:       l.Quantity,
		})
		o.TotalCents += p.PriceCents * int64(l.Quantity)
	}

	// Segunda pasada: descuento condicional por línea. El storage rechaza el
	// descuento si otro pedido se adelantó y el stock ya no alcanza.
	applied := 0
	for i, l := range lines {
		ok, err := s.repo.AdjustStock(ctx, products[i].ID, -l.Quantity, now)
		if err == nil && !ok {
			err = fmt.Errorf("%w: %s", ErrOutOfStock, products[i].SKU)
		}
		if err != nil {
			s.restock(ctx, lines[:applied], products, now)
			return Order{}, err
		}
		applied++
	}

	if err := s.repo.CreateOrder(ctx, o); err != nil {
		s.restock(ctx, lines, products, now)
		return Order{}, err
	}

	s.log.Info("pedido creado", map[string]any{
		"order_id":    o.ID,
		"user_id":     o.UserID,
		"items":       len(o.Items),
		"total_cents": o.TotalCents,
	})
	return o, nil
}

// restock repone los descuentos ya aplicados de un pedido que no llegó a
// guardarse.
func (s *Service) restock(ctx context.Context, lines []OrderLine, products []Product, now time.Time) {
	for i, l := range lines {
		if _, err := s.repo.AdjustStock(ctx, products[i].ID, l.Quantity, now); err != nil {
			s.log.Warn("no se pudo reponer stock", map[string]any{
				"product_id": products[i].ID,
				"quantity":   l.Quantity,
				"error":      err.Error(),
			})
		}
	}
}

// transitions define la máquina de estados del pedido.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending: {StatusPaid, StatusCancelled},
	StatusPaid:    {StatusShipped, StatusCancelled},
	StatusShipped: {StatusDelivered},
}

// Transition mueve el pedido de estado. Cancelar repone el stock de las
// líneas. Estados finales (delivered/cancelled) son inmutables.
func (s *Service) Transition(ctx context.Context, orderID, userID string, target OrderStatus, reason string) (Order, error) {
	o, err := s.repo.GetOrder(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return Order{}, ErrNotFound
	}
	if o.UserID != userID {
		return Order{}, ErrForbidden
	}

	if o.Status.Terminal() {
		return Order{}, fmt.Errorf("%w: el pedido ya está %s", ErrInvalidTransition, o.Status)
	}
	ok := false
	for _, t := range transitions[o.Status] {
		if t == target {
			ok = true
			break
		}
	}
	if !ok {
		return Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, target)
	}

	now := s.now()
	if target == StatusCancelled {
		o.CancelReason = strings.TrimSpace(reason)
		for _, it := range o.Items {
			// ok=false: el producto pudo salir del catálogo; el pedido se
			// cancela igual
			if _, err := s.repo.AdjustStock(ctx, it.ProductID, it.Quantity, now); err != nil {
				return Order{}, err
			}
		}
	}

	o.Status = target
	o.UpdatedAt = now
	if err := s.repo.UpdateOrder(ctx, o); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (Order, error) {
	o, err := s.repo.GetOrder(ctx, strings.TrimSpace(id))
	if err != nil {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return s.repo.ListOrdersByUser(ctx, userID)
}
