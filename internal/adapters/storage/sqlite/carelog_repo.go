package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"druma-petcare/internal/domain/carelog"
)

type CarelogRepo struct {
	db *sql.DB
}

func NewCarelogRepo(db *sql.DB) *CarelogRepo {
	return &CarelogRepo{db: db}
}

func (r *CarelogRepo) Create(ctx context.Context, e carelog.Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO care_entries (
			id, pet_id,
			category, occurred_at, recorded_at,
			title, notes,
			duration_min, distance_km, calories, weight_kg, clinic, vet_name,
			actor_type, actor_id,
			source, visibility,
			status
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`,
		e.ID,
		e.PetID,
		string(e.Category),
		fmtTime(e.OccurredAt),
		fmtTime(e.RecordedAt),
		e.Title,
		e.Notes,
		e.DurationMin,
		e.DistanceKm,
		e.Calories,
		e.WeightKg,
		e.Clinic,
		e.VetName,
		string(e.Actor.Type),
		e.Actor.ID,
		string(e.Source),
		string(e.Visibility),
		string(e.Status),
	)
	return err
}

func (r *CarelogRepo) GetByID(ctx context.Context, id string) (carelog.Entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return carelog.Entry{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT
			id, pet_id,
			category, occurred_at, recorded_at,
			title, notes,
			duration_min, distance_km, calories, weight_kg, clinic, vet_name,
			actor_type, actor_id,
			source, visibility,
			status
		FROM care_entries
		WHERE id = ?
	`, id)

	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return carelog.Entry{}, ErrNotFound
	}
	return e, err
}

func (r *CarelogRepo) ListByPet(ctx context.Context, petID string, filter carelog.ListFilter) ([]carelog.Entry, error) {
	petID = strings.TrimSpace(petID)
	if petID == "" {
		return nil, nil
	}

	sb := strings.Builder{}
	sb.WriteString(`
		SELECT
			id, pet_id,
			category, occurred_at, recorded_at,
			title, notes,
			duration_min, distance_km, calories, weight_kg, clinic, vet_name,
			actor_type, actor_id,
			source, visibility,
			status
		FROM care_entries
		WHERE pet_id = ?
	`)

	args := []any{petID}

	if len(filter.Categories) > 0 {
		placeholders := make([]string, 0, len(filter.Categories))
		for _, c := range filter.Categories {
			placeholders = append(placeholders, "?")
			args = append(args, string(c))
		}
		sb.WriteString(" AND category IN (" + strings.Join(placeholders, ",") + ")")
	}

	if filter.From != nil {
		sb.WriteString(" AND occurred_at >= ?")
		args = append(args, fmtTime(*filter.From))
	}
	if filter.To != nil {
		sb.WriteString(" AND occurred_at <= ?")
		args = append(args, fmtTime(*filter.To))
	}

	// LIKE en SQLite ya es case-insensitive para ASCII
	if strings.TrimSpace(filter.Query) != "" {
		sb.WriteString(" AND (title LIKE ? OR notes LIKE ?)")
		q := "%" + strings.TrimSpace(filter.Query) + "%"
		args = append(args, q, q)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	sb.WriteString(" ORDER BY occurred_at DESC LIMIT ?")
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]carelog.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}

	return out, rows.Err()
}

func (r *CarelogRepo) Void(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNotFound
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE care_entries
		SET status = 'voided'
		WHERE id = ?
	`, id)
	if err != nil {
		return err
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanEntry(row rowScanner) (carelog.Entry, error) {
	var e carelog.Entry
	var category, actorType, source, vis, status string
	var occurredAt, recordedAt string

	if err := row.Scan(
		&e.ID,
		&e.PetID,
		&category,
		&occurredAt,
		&recordedAt,
		&e.Title,
		&e.Notes,
		&e.DurationMin,
		&e.DistanceKm,
		&e.Calories,
		&e.WeightKg,
		&e.Clinic,
		&e.VetName,
		&actorType,
		&e.Actor.ID,
		&source,
		&vis,
		&status,
	); err != nil {
		return carelog.Entry{}, err
	}

	e.Category = carelog.Category(category)
	e.Actor.Type = carelog.ActorType(actorType)
	e.Source = carelog.Source(source)
	e.Visibility = carelog.Visibility(vis)
	e.Status = carelog.EntryStatus(status)

	var err error
	if e.OccurredAt, err = parseTime(occurredAt); err != nil {
		return carelog.Entry{}, err
	}
	if e.RecordedAt, err = parseTime(recordedAt); err != nil {
		return carelog.Entry{}, err
	}

	return e, nil
}
