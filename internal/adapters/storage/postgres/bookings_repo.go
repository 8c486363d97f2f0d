package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"druma-petcare/internal/domain/bookings"
	"druma-petcare/internal/domain/providers"
	"druma-petcare/internal/recurrence"
)

type BookingsRepo struct {
	db *sql.DB
}

func NewBookingsRepo(db *sql.DB) *BookingsRepo {
	return &BookingsRepo{db: db}
}

// CreateIfFree se apoya en el índice único parcial
// (provider_id, date, start_time) sobre reservas vigentes: dos solicitudes
// concurrentes del mismo turno resuelven en la base, no en memoria.
func (r *BookingsRepo) CreateIfFree(ctx context.Context, b bookings.Booking) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO bookings (
			id, provider_id, pet_id, owner_user_id,
			service, date, start_time,
			duration_min, price_cents,
			status, notes, cancel_reason,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (provider_id, date, start_time)
			WHERE status IN ('requested','confirmed','in_progress')
			DO NOTHING
	`,
		b.ID,
		b.ProviderID,
		b.PetID,
		b.OwnerUserID,
		string(b.Service),
		b.Date,
		b.StartTime,
		b.DurationMin,
		b.PriceCents,
		string(b.Status),
		b.Notes,
		b.CancelReason,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *BookingsRepo) Update(ctx context.Context, b bookings.Booking) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET
			status = $2,
			notes = $3,
			cancel_reason = $4,
			updated_at = $5
		WHERE id = $1
	`,
		b.ID,
		string(b.Status),
		b.Notes,
		b.CancelReason,
		b.UpdatedAt,
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

func (r *BookingsRepo) GetByID(ctx context.Context, id string) (bookings.Booking, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return bookings.Booking{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT
			id, provider_id, pet_id, owner_user_id,
			service, date, start_time,
			duration_min, price_cents,
			status, notes, cancel_reason,
			created_at, updated_at
		FROM bookings
		WHERE id = $1
	`, id)

	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return bookings.Booking{}, ErrNotFound
	}
	return b, err
}

func (r *BookingsRepo) ListByProviderAndDate(ctx context.Context, providerID string, date time.Time) ([]bookings.Booking, error) {
	return r.list(ctx, `
		SELECT
			id, provider_id, pet_id, owner_user_id,
			service, date, start_time,
			duration_min, price_cents,
			status, notes, cancel_reason,
			created_at, updated_at
		FROM bookings
		WHERE provider_id = $1 AND date = $2
		ORDER BY start_time ASC
	`, providerID, recurrence.DateKey(date))
}

func (r *BookingsRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]bookings.Booking, error) {
	return r.list(ctx, `
		SELECT
			id, provider_id, pet_id, owner_user_id,
			service, date, start_time,
			duration_min, price_cents,
			status, notes, cancel_reason,
			created_at, updated_at
		FROM bookings
		WHERE owner_user_id = $1
		ORDER BY date ASC, start_time ASC
	`, ownerUserID)
}

func (r *BookingsRepo) ListByProvider(ctx context.Context, providerID string) ([]bookings.Booking, error) {
	return r.list(ctx, `
		SELECT
			id, provider_id, pet_id, owner_user_id,
			service, date, start_time,
			duration_min, price_cents,
			status, notes, cancel_reason,
			created_at, updated_at
		FROM bookings
		WHERE provider_id = $1
		ORDER BY date ASC, start_time ASC
	`, providerID)
}

func (r *BookingsRepo) list(ctx context.Context, query string, args ...any) ([]bookings.Booking, error) {
	if s, ok := args[0].(string); ok && strings.TrimSpace(s) == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]bookings.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}

	return out, rows.Err()
}

func scanBooking(row rowScanner) (bookings.Booking, error) {
	var b bookings.Booking
	var service, status string

	if err := row.Scan(
		&b.ID,
		&b.ProviderID,
		&b.PetID,
		&b.OwnerUserID,
		&service,
		&b.Date,
		&b.StartTime,
		&b.DurationMin,
		&b.PriceCents,
		&status,
		&b.Notes,
		&b.CancelReason,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		return bookings.Booking{}, err
	}

	b.Service = providers.ServiceType(service)
	b.Status = bookings.Status(status)

	return b, nil
}
