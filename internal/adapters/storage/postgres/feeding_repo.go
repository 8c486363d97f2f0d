package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"druma-petcare/internal/domain/feeding"
	"druma-petcare/internal/recurrence"
)

type FeedingRepo struct {
	db *sql.DB
}

func NewFeedingRepo(db *sql.DB) *FeedingRepo {
	return &FeedingRepo{db: db}
}

// Los días y slots van como jsonb: estructura anidada que siempre se lee
// completa, no hace falta consultarla por columna.

func (r *FeedingRepo) CreateSchedule(ctx context.Context, s feeding.Schedule) error {
	days, slots, err := scheduleJSON(s)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO feeding_schedules (
			id, pet_id, owner_user_id, name,
			days_of_week, slots,
			valid_from, valid_until, active,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		s.ID,
		s.PetID,
		s.OwnerUserID,
		s.Name,
		days,
		slots,
		s.ValidFrom,
		toNullDate(s.ValidUntil),
		s.Active,
		s.CreatedAt,
		s.UpdatedAt,
	)
	return err
}

func (r *FeedingRepo) UpdateSchedule(ctx context.Context, s feeding.Schedule) error {
	days, slots, err := scheduleJSON(s)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE feeding_schedules
		SET
			name = $2,
			days_of_week = $3,
			slots = $4,
			valid_from = $5,
			valid_until = $6,
			active = $7,
			updated_at = $8
		WHERE id = $1
	`,
		s.ID,
		s.Name,
		days,
		slots,
		s.ValidFrom,
		toNullDate(s.ValidUntil),
		s.Active,
		s.UpdatedAt,
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

func (r *FeedingRepo) GetSchedule(ctx context.Context, id string) (feeding.Schedule, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return feeding.Schedule{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT
			id, pet_id, owner_user_id, name,
			days_of_week, slots,
			valid_from, valid_until, active,
			created_at, updated_at
		FROM feeding_schedules
		WHERE id = $1
	`, id)

	s, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return feeding.Schedule{}, ErrNotFound
	}
	return s, err
}

func (r *FeedingRepo) ListSchedulesByPet(ctx context.Context, petID string) ([]feeding.Schedule, error) {
	petID = strings.TrimSpace(petID)
	if petID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id, pet_id, owner_user_id, name,
			days_of_week, slots,
			valid_from, valid_until, active,
			created_at, updated_at
		FROM feeding_schedules
		WHERE pet_id = $1
		ORDER BY created_at ASC
	`, petID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]feeding.Schedule, 0)
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	return out, rows.Err()
}

// CreateMealIfAbsent se apoya en el índice único
// (schedule_id, date, time_of_day, food_ref): dos materializaciones
// concurrentes resuelven en la base, no en memoria.
func (r *FeedingRepo) CreateMealIfAbsent(ctx context.Context, m feeding.Meal) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO meals (
			id, schedule_id, pet_id,
			date, time_of_day,
			label, food_ref, quantity_grams,
			status, completed_at, skip_reason,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (schedule_id, date, time_of_day, food_ref) DO NOTHING
	`,
		m.ID,
		m.ScheduleID,
		m.PetID,
		m.Date,
		m.TimeOfDay,
		m.Label,
		m.FoodRef,
		m.QuantityGrams,
		string(m.Status),
		toNullTime(m.CompletedAt),
		m.SkipReason,
		m.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *FeedingRepo) GetMeal(ctx context.Context, id string) (feeding.Meal, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return feeding.Meal{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT
			id, schedule_id, pet_id,
			date, time_of_day,
			label, food_ref, quantity_grams,
			status, completed_at, skip_reason,
			created_at
		FROM meals
		WHERE id = $1
	`, id)

	m, err := scanMeal(row)
	if err == sql.ErrNoRows {
		return feeding.Meal{}, ErrNotFound
	}
	return m, err
}

func (r *FeedingRepo) UpdateMeal(ctx context.Context, m feeding.Meal) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE meals
		SET
			label = $2,
			food_ref = $3,
			quantity_grams = $4,
			status = $5,
			completed_at = $6,
			skip_reason = $7
		WHERE id = $1
	`,
		m.ID,
		m.Label,
		m.FoodRef,
		m.QuantityGrams,
		string(m.Status),
		toNullTime(m.CompletedAt),
		m.SkipReason,
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

func (r *FeedingRepo) ListMealsByPetAndDate(ctx context.Context, petID string, date time.Time) ([]feeding.Meal, error) {
	return r.ListMealsByPetRange(ctx, petID, date, date)
}

func (r *FeedingRepo) ListMealsByPetRange(ctx context.Context, petID string, from, to time.Time) ([]feeding.Meal, error) {
	petID = strings.TrimSpace(petID)
	if petID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id, schedule_id, pet_id,
			date, time_of_day,
			label, food_ref, quantity_grams,
			status, completed_at, skip_reason,
			created_at
		FROM meals
		WHERE pet_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC, time_of_day ASC
	`, petID, recurrence.DateKey(from), recurrence.DateKey(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectMeals(rows)
}

func (r *FeedingRepo) ListOverdueScheduled(ctx context.Context, cutoff time.Time) ([]feeding.Meal, error) {
	// date es DATE y time_of_day es HH:MM: la comparación compuesta se hace
	// reconstruyendo el timestamp en la consulta.
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id, schedule_id, pet_id,
			date, time_of_day,
			label, food_ref, quantity_grams,
			status, completed_at, skip_reason,
			created_at
		FROM meals
		WHERE status = 'scheduled'
		  AND date + time_of_day::interval <= $1
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectMeals(rows)
}

func collectMeals(rows *sql.Rows) ([]feeding.Meal, error) {
	out := make([]feeding.Meal, 0)
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scheduleJSON(s feeding.Schedule) (days, slots []byte, err error) {
	days, err = json.Marshal(s.DaysOfWeek)
	if err != nil {
		return nil, nil, err
	}
	slots, err = json.Marshal(s.Slots)
	if err != nil {
		return nil, nil, err
	}
	return days, slots, nil
}

func scanSchedule(row rowScanner) (feeding.Schedule, error) {
	var s feeding.Schedule
	var days, slots []byte
	var until sql.NullTime

	if err := row.Scan(
		&s.ID,
		&s.PetID,
		&s.OwnerUserID,
		&s.Name,
		&days,
		&slots,
		&s.ValidFrom,
		&until,
		&s.Active,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return feeding.Schedule{}, err
	}

	if err := json.Unmarshal(days, &s.DaysOfWeek); err != nil {
		return feeding.Schedule{}, err
	}
	if err := json.Unmarshal(slots, &s.Slots); err != nil {
		return feeding.Schedule{}, err
	}
	if until.Valid {
		t := until.Time
		s.ValidUntil = &t
	}

	return s, nil
}

func scanMeal(row rowScanner) (feeding.Meal, error) {
	var m feeding.Meal
	var status string
	var completedAt sql.NullTime

	if err := row.Scan(
		&m.ID,
		&m.ScheduleID,
		&m.PetID,
		&m.Date,
		&m.TimeOfDay,
		&m.Label,
		&m.FoodRef,
		&m.QuantityGrams,
		&status,
		&completedAt,
		&m.SkipReason,
		&m.CreatedAt,
	); err != nil {
		return feeding.Meal{}, err
	}

	m.Status = recurrence.Status(status)
	if completedAt.Valid {
		t := completedAt.Time
		m.CompletedAt = &t
	}

	return m, nil
}
