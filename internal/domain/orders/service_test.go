package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"druma-petcare/internal/platform/logger"
)

type testRepo struct {
	products map[string]Product
	orders   map[string]Order

	// fallas inyectables para simular un storage que revienta a mitad del
	// descuento o al guardar el pedido.
	adjustCalls   int
	failAdjustAt  int // 1-based; 0 = nunca falla
	denyAdjust    bool
	failSaveOrder bool
}

func newTestRepo() *testRepo {
	return &testRepo{products: map[string]Product{}, orders: map[string]Order{}}
}

func (r *testRepo) CreateProduct(_ context.Context, p Product) error {
	r.products[p.ID] = p
	return nil
}

func (r *testRepo) UpdateProduct(_ context.Context, p Product) error {
	if _, ok := r.products[p.ID]; !ok {
		return errors.New("product not found")
	}
	r.products[p.ID] = p
	return nil
}

func (r *testRepo) GetProduct(_ context.Context, id string) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, errors.New("product not found")
	}
	return p, nil
}

func (r *testRepo) AdjustStock(_ context.Context, productID string, delta int, at time.Time) (bool, error) {
	r.adjustCalls++
	if r.failAdjustAt > 0 && r.adjustCalls == r.failAdjustAt {
		return false, errors.New("storage caído")
	}
	if r.denyAdjust && delta < 0 {
		return false, nil
	}
	p, ok := r.products[productID]
	if !ok || p.Stock+delta < 0 {
		return false, nil
	}
	p.Stock += delta
	p.UpdatedAt = at
	r.products[productID] = p
	return true, nil
}

func (r *testRepo) ListProducts(_ context.Context, onlyActive bool) ([]Product, error) {
	var out []Product
	for _, p := range r.products {
		if onlyActive && !p.Active {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *testRepo) CreateOrder(_ context.Context, o Order) error {
	if r.failSaveOrder {
		return errors.New("storage caído")
	}
	r.orders[o.ID] = o
	return nil
}

func (r *testRepo) UpdateOrder(_ context.Context, o Order) error {
	if _, ok := r.orders[o.ID]; !ok {
		return errors.New("order not found")
	}
	r.orders[o.ID] = o
	return nil
}

func (r *testRepo) GetOrder(_ context.Context, id string) (Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return Order{}, errors.New("order not found")
	}
	return o, nil
}

func (r *testRepo) ListOrdersByUser(_ context.Context, userID string) ([]Order, error) {
	var out []Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func newTestService(repo *testRepo) *Service {
	svc := NewService(repo, logger.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC) }
	return svc
}

func seedFood(t *testing.T, svc *Service, stock int) Product {
	t.Helper()
	p, err := svc.CreateProduct(context.Background(), ProductInput{
		SKU:        "FOOD-A",
		Name:       "Croquetas adulto 3kg",
		PriceCents: 4500,
		Stock:      stock,
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	return p
}

func TestCreateOrderSnapshotsPriceAndDecrementsStock(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)
	p := seedFood(t, svc, 10)

	o, err := svc.CreateOrder(context.Background(), "user-1", "Av. Siempre Viva 123", []OrderLine{
		{ProductID: p.ID, Quantity: 2},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if o.TotalCents != 9000 {
		t.Fatalf("total incorrecto: %d", o.TotalCents)
	}
	if o.Items[0].UnitPriceCents != 4500 || o.Items[0].Name != "Croquetas adulto 3kg" {
		t.Fatalf("snapshot de línea incorrecto: %+v", o.Items[0])
	}

	cur, _ := repo.GetProduct(context.Background(), p.ID)
	if cur.Stock != 8 {
		t.Fatalf("stock no descontado: %d", cur.Stock)
	}

	// Subir el precio después no toca el pedido.
	newPrice := int64(9900)
	if _, err := svc.UpdateProduct(context.Background(), p.ID, ProductUpdate{PriceCents: &newPrice}); err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	saved, _ := repo.GetOrder(context.Background(), o.ID)
	if saved.Items[0].UnitPriceCents != 4500 {
		t.Fatalf("el cambio de precio reescribió el pedido: %+v", saved.Items[0])
	}
}

func TestCreateOrderIsAllOrNothing(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)
	a := seedFood(t, svc, 10)

	b, err := svc.CreateProduct(context.Background(), ProductInput{
		SKU: "TOY-B", Name: "Pelota", PriceCents: 1500, Stock: 0,
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	_, err = svc.CreateOrder(context.Background(), "user-1", "", []OrderLine{
		{ProductID: a.ID, Quantity: 1},
		{ProductID: b.ID, Quantity: 1}, // sin stock
	})
	if !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("esperaba ErrOutOfStock, obtuve %v", err)
	}

	// La línea válida no descontó nada.
	cur, _ := repo.GetProduct(context.Background(), a.ID)
	if cur.Stock != 10 {
		t.Fatalf("el pedido fallido descontó stock: %d", cur.Stock)
	}
}

func TestCreateOrderRestoresStockWhenStorageFailsMidway(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)
	a := seedFood(t, svc, 5)

	b, err := svc.CreateProduct(context.Background(), ProductInput{
		SKU: "TOY-B", Name: "Pelota", PriceCents: 1500, Stock: 5,
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	// La primera línea descuenta bien; la segunda revienta en el storage.
	repo.failAdjustAt = 2

	_, err = svc.CreateOrder(context.Background(), "user-1", "", []OrderLine{
		{ProductID: a.ID, Quantity: 1},
		{ProductID: b.ID, Quantity: 1},
	})
	if err == nil {
		t.Fatal("esperaba error del storage")
	}

	// Lo ya descontado se repuso y no quedó ningún pedido a medias.
	curA, _ := repo.GetProduct(context.Background(), a.ID)
	if curA.Stock != 5 {
		t.Fatalf("el stock de la primera línea no se repuso: %d", curA.Stock)
	}
	if len(repo.orders) != 0 {
		t.Fatalf("quedó un pedido guardado: %d", len(repo.orders))
	}
}

func TestCreateOrderRestoresStockWhenSaveFails(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)
	p := seedFood(t, svc, 5)

	repo.failSaveOrder = true

	_, err := svc.CreateOrder(context.Background(), "user-1", "", []OrderLine{
		{ProductID: p.ID, Quantity: 3},
	})
	if err == nil {
		t.Fatal("esperaba error del storage")
	}

	cur, _ := repo.GetProduct(context.Background(), p.ID)
	if cur.Stock != 5 {
		t.Fatalf("el stock no se repuso tras fallar el guardado: %d", cur.Stock)
	}
	if len(repo.orders) != 0 {
		t.Fatalf("quedó un pedido guardado: %d", len(repo.orders))
	}
}

func TestCreateOrderRejectsWhenStockVanishesBetweenPasses(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)
	p := seedFood(t, svc, 5)

	// Otro pedido se adelanta entre la validación y el descuento: el storage
	// rechaza el descuento condicional aunque la validación haya pasado.
	repo.denyAdjust = true

	_, err := svc.CreateOrder(context.Background(), "user-1", "", []OrderLine{
		{ProductID: p.ID, Quantity: 3},
	})
	if !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("esperaba ErrOutOfStock, obtuve %v", err)
	}
	if len(repo.orders) != 0 {
		t.Fatalf("quedó un pedido guardado: %d", len(repo.orders))
	}
}

func TestOrderStateMachine(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)
	p := seedFood(t, svc, 5)

	o, err := svc.CreateOrder(context.Background(), "user-1", "", []OrderLine{{ProductID: p.ID, Quantity: 1}})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	// pending no puede saltar a delivered.
	if _, err := svc.Transition(context.Background(), o.ID, "user-1", StatusDelivered, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pending->delivered: esperaba ErrInvalidTransition, obtuve %v", err)
	}

	// Solo el dueño del pedido.
	if _, err := svc.Transition(context.Background(), o.ID, "otro", StatusPaid, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("esperaba ErrForbidden, obtuve %v", err)
	}

	for _, target := range []OrderStatus{StatusPaid, StatusShipped, StatusDelivered} {
		if o, err = svc.Transition(context.Background(), o.ID, "user-1", target, ""); err != nil {
			t.Fatalf("transición a %s: %v", target, err)
		}
	}

	if _, err := svc.Transition(context.Background(), o.ID, "user-1", StatusCancelled, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("terminal: esperaba ErrInvalidTransition, obtuve %v", err)
	}
}

func TestCancelRestoresStock(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)
	p := seedFood(t, svc, 5)

	o, err := svc.CreateOrder(context.Background(), "user-1", "", []OrderLine{{ProductID: p.ID, Quantity: 3}})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	cur, _ := repo.GetProduct(context.Background(), p.ID)
	if cur.Stock != 2 {
		t.Fatalf("stock tras compra: %d", cur.Stock)
	}

	if _, err := svc.Transition(context.Background(), o.ID, "user-1", StatusCancelled, "me arrepentí"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	cur, _ = repo.GetProduct(context.Background(), p.ID)
	if cur.Stock != 5 {
		t.Fatalf("el stock no se repuso al cancelar: %d", cur.Stock)
	}
}
