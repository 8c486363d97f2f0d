package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"druma-petcare/internal/domain/orders"
)

type OrdersRepo struct {
	db *sql.DB
}

func NewOrdersRepo(db *sql.DB) *OrdersRepo {
	return &OrdersRepo{db: db}
}

func (r *OrdersRepo) CreateProduct(ctx context.Context, p orders.Product) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (
			id, sku, name, description,
			price_cents, stock, active,
			created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?)
	`,
		p.ID,
		p.SKU,
		p.Name,
		p.Description,
		p.PriceCents,
		p.Stock,
		p.Active,
		fmtTime(p.CreatedAt),
		fmtTime(p.UpdatedAt),
	)
	return err
}

func (r *OrdersRepo) UpdateProduct(ctx context.Context, p orders.Product) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET
			sku = ?,
			name = ?,
			description = ?,
			price_cents = ?,
			stock = ?,
			active = ?,
			updated_at = ?
		WHERE id = ?
	`,
		p.SKU,
		p.Name,
		p.Description,
		p.PriceCents,
		p.Stock,
		p.Active,
		fmtTime(p.UpdatedAt),
		p.ID,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustStock descuenta o repone con un UPDATE condicional: la base decide
// si el stock alcanza, no la memoria del proceso.
func (r *OrdersRepo) AdjustStock(ctx context.Context, productID string, delta int, at time.Time) (bool, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return false, nil
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + ?, updated_at = ?
		WHERE id = ? AND stock + ? >= 0
	`, delta, fmtTime(at), productID, delta)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *OrdersRepo) GetProduct(ctx context.Context, id string) (orders.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return orders.Product{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT
			id, sku, name, description,
			price_cents, stock, active,
			created_at, updated_at
		FROM products
		WHERE id = ?
	`, id)

	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return orders.Product{}, ErrNotFound
	}
	return p, err
}

func (r *OrdersRepo) ListProducts(ctx context.Context, onlyActive bool) ([]orders.Product, error) {
	query := `
		SELECT
			id, sku, name, description,
			price_cents, stock, active,
			created_at, updated_at
		FROM products
	`
	if onlyActive {
		query += " WHERE active = 1"
	}
	query += " ORDER BY name ASC"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]orders.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	return out, rows.Err()
}

func (r *OrdersRepo) CreateOrder(ctx context.Context, o orders.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO orders (
			id, user_id,
			items, total_cents,
			status, shipping_address, cancel_reason,
			created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?)
	`,
		o.ID,
		o.UserID,
		string(items),
		o.TotalCents,
		string(o.Status),
		o.ShippingAddress,
		o.CancelReason,
		fmtTime(o.CreatedAt),
		fmtTime(o.UpdatedAt),
	)
	return err
}

func (r *OrdersRepo) UpdateOrder(ctx context.Context, o orders.Order) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET
			status = ?,
			cancel_reason = ?,
			updated_at = ?
		WHERE id = ?
	`,
		string(o.Status),
		o.CancelReason,
		fmtTime(o.UpdatedAt),
		o.ID,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *OrdersRepo) GetOrder(ctx context.Context, id string) (orders.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return orders.Order{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT
			id, user_id,
			items, total_cents,
			status, shipping_address, cancel_reason,
			created_at, updated_at
		FROM orders
		WHERE id = ?
	`, id)

	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return orders.Order{}, ErrNotFound
	}
	return o, err
}

func (r *OrdersRepo) ListOrdersByUser(ctx context.Context, userID string) ([]orders.Order, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id, user_id,
			items, total_cents,
			status, shipping_address, cancel_reason,
			created_at, updated_at
		FROM orders
		WHERE user_id = ?
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]orders.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}

	return out, rows.Err()
}

func scanProduct(row rowScanner) (orders.Product, error) {
	var p orders.Product
	var createdAt, updatedAt string

	if err := row.Scan(
		&p.ID,
		&p.SKU,
		&p.Name,
		&p.Description,
		&p.PriceCents,
		&p.Stock,
		&p.Active,
		&createdAt,
		&updatedAt,
	); err != nil {
		return orders.Product{}, err
	}

	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return orders.Product{}, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return orders.Product{}, err
	}

	return p, nil
}

func scanOrder(row rowScanner) (orders.Order, error) {
	var o orders.Order
	var items, status string
	var createdAt, updatedAt string

	if err := row.Scan(
		&o.ID,
		&o.UserID,
		&items,
		&o.TotalCents,
		&status,
		&o.ShippingAddress,
		&o.CancelReason,
		&createdAt,
		&updatedAt,
	); err != nil {
		return orders.Order{}, err
	}

	o.Status = orders.OrderStatus(status)
	if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
		return orders.Order{}, err
	}

	var err error
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return orders.Order{}, err
	}
	if o.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return orders.Order{}, err
	}

	return o, nil
}
