package sqlite

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

func (r *FeedingRepo) CreateSchedule(ctx context.Context, s feeding.Schedule) error {
	slots, err := json.Marshal(s.Slots)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO feeding_schedules (
			id, pet_id, owner_user_id, name,
			days_of_week, slots,
			valid_from, valid_until, active,
			created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?)
	`,
		s.ID,
		s.PetID,
		s.OwnerUserID,
		s.Name,
		encodeWeekdays(s.DaysOfWeek),
		string(slots),
		fmtTime(s.ValidFrom),
		fmtNullTime(s.ValidUntil),
		s.Active,
		fmtTime(s.CreatedAt),
		fmtTime(s.UpdatedAt),
	)
	return err
}

func (r *FeedingRepo) UpdateSchedule(ctx context.Context, s feeding.Schedule) error {
	slots, err := json.Marshal(s.Slots)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE feeding_schedules
		SET
			name = ?,
			days_of_week = ?,
			slots = ?,
			valid_from = ?,
			valid_until = ?,
			active = ?,
			updated_at = ?
		WHERE id = ?
	`,
		s.Name,
		encodeWeekdays(s.DaysOfWeek),
		string(slots),
		fmtTime(s.ValidFrom),
		fmtNullTime(s.ValidUntil),
		s.Active,
		fmtTime(s.UpdatedAt),
		s.ID,
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
		WHERE id = ?
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
		WHERE pet_id = ?
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

func (r *FeedingRepo) CreateMealIfAbsent(ctx context.Context, m feeding.Meal) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO meals (
			id, schedule_id, pet_id,
			date, time_of_day,
			label, food_ref, quantity_grams,
			status, completed_at, skip_reason,
			created_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
	`,
		m.ID,
		m.ScheduleID,
		m.PetID,
		recurrence.DateKey(m.Date),
		m.TimeOfDay,
		m.Label,
		m.FoodRef,
		m.QuantityGrams,
		string(m.Status),
		fmtNullTime(m.CompletedAt),
		m.SkipReason,
		fmtTime(m.CreatedAt),
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
		WHERE id = ?
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
			label = ?,
			food_ref = ?,
			quantity_grams = ?,
			status = ?,
			completed_at = ?,
			skip_reason = ?
		WHERE id = ?
	`,
		m.Label,
		m.FoodRef,
		m.QuantityGrams,
		string(m.Status),
		fmtNullTime(m.CompletedAt),
		m.SkipReason,
		m.ID,
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
		WHERE pet_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC, time_of_day ASC
	`, petID, recurrence.DateKey(from), recurrence.DateKey(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectMeals(rows)
}

func (r *FeedingRepo) ListOverdueScheduled(ctx context.Context, cutoff time.Time) ([]feeding.Meal, error) {
	// date es YYYY-MM-DD y time_of_day HH:MM: concatenados ordenan
	// lexicográficamente igual que el timestamp.
	cutoff = cutoff.UTC()
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id, schedule_id, pet_id,
			date, time_of_day,
			label, food_ref, quantity_grams,
			status, completed_at, skip_reason,
			created_at
		FROM meals
		WHERE status = 'scheduled'
		  AND date || ' ' || time_of_day <= ?
	`, cutoff.Format("2006-01-02 15:04"))
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

func scanSchedule(row rowScanner) (feeding.Schedule, error) {
	var s feeding.Schedule
	var days int64
	var slots string
	var validFrom, createdAt, updatedAt string
	var validUntil sql.NullString

	if err := row.Scan(
		&s.ID,
		&s.PetID,
		&s.OwnerUserID,
		&s.Name,
		&days,
		&slots,
		&validFrom,
		&validUntil,
		&s.Active,
		&createdAt,
		&updatedAt,
	); err != nil {
		return feeding.Schedule{}, err
	}

	s.DaysOfWeek = decodeWeekdays(days)
	if err := json.Unmarshal([]byte(slots), &s.Slots); err != nil {
		return feeding.Schedule{}, err
	}

	var err error
	if s.ValidFrom, err = parseTime(validFrom); err != nil {
		return feeding.Schedule{}, err
	}
	if s.ValidUntil, err = parseNullTime(validUntil); err != nil {
		return feeding.Schedule{}, err
	}
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return feeding.Schedule{}, err
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return feeding.Schedule{}, err
	}

	return s, nil
}

func scanMeal(row rowScanner) (feeding.Meal, error) {
	var m feeding.Meal
	var status string
	var date, createdAt string
	var completedAt sql.NullString

	if err := row.Scan(
		&m.ID,
		&m.ScheduleID,
		&m.PetID,
		&date,
		&m.TimeOfDay,
		&m.Label,
		&m.FoodRef,
		&m.QuantityGrams,
		&status,
		&completedAt,
		&m.SkipReason,
		&createdAt,
	); err != nil {
		return feeding.Meal{}, err
	}

	m.Status = recurrence.Status(status)

	var err error
	if m.Date, err = time.Parse("2006-01-02", date); err != nil {
		return feeding.Meal{}, err
	}
	if m.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return feeding.Meal{}, err
	}
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return feeding.Meal{}, err
	}

	return m, nil
}
