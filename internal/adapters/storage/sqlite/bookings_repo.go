package sqlite

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
		INSERT OR IGNORE INTO bookings (
			id, provider_id, pet_id, owner_user_id,
			service, date, start_time,
			duration_min, price_cents,
			status, notes, cancel_reason,
			created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`,
		b.ID,
		b.ProviderID,
		b.PetID,
		b.OwnerUserID,
		string(b.Service),
		recurrence.DateKey(b.Date),
		b.StartTime,
		b.DurationMin,
		b.PriceCents,
		string(b.Status),
		b.Notes,
		b.CancelReason,
		fmtTime(b.CreatedAt),
		fmtTime(b.UpdatedAt),
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
			status = ?,
			notes = ?,
			cancel_reason = ?,
			updated_at = ?
		WHERE id = ?
	`,
		string(b.Status),
		b.Notes,
		b.CancelReason,
		fmtTime(b.UpdatedAt),
		b.ID,
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
		WHERE id = ?
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
		WHERE provider_id = ? AND date = ?
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
		WHERE owner_user_id = ?
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
		WHERE provider_id = ?
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
	var date, createdAt, updatedAt string

	if err := row.Scan(
		&b.ID,
		&b.ProviderID,
		&b.PetID,
		&b.OwnerUserID,
		&service,
		&date,
		&b.StartTime,
		&b.DurationMin,
		&b.PriceCents,
		&status,
		&b.Notes,
		&b.CancelReason,
		&createdAt,
		&updatedAt,
	); err != nil {
		return bookings.Booking{}, err
	}

	b.Service = providers.ServiceType(service)
	b.Status = bookings.Status(status)

	var err error
	if b.Date, err = time.Parse("2006-01-02", date); err != nil {
		return bookings.Booking{}, err
	}
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return bookings.Booking{}, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return bookings.Booking{}, err
	}

	return b, nil
}
