// Package sqlite implementa los repositorios sobre SQLite (modernc.org/sqlite,
// driver puro Go). Pensado para instalaciones chicas o desarrollo con
// persistencia local sin levantar Postgres. Los timestamps se guardan como
// texto RFC3339 y los días de la semana como bitmask.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// SQLite no banca escritores concurrentes sobre la misma conexión
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate crea el esquema si no existe. Sin versionado: el esquema es
// aditivo y esto alcanza para el caso de uso embebido.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS pets (
			id TEXT PRIMARY KEY,
			owner_user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			species TEXT NOT NULL,
			breed TEXT NOT NULL DEFAULT '',
			sex TEXT NOT NULL,
			birth_date TEXT,
			weight_kg REAL NOT NULL DEFAULT 0,
			activity_level TEXT NOT NULL,
			photo_url TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pets_owner ON pets(owner_user_id)`,

		`CREATE TABLE IF NOT EXISTS caregiver_grants (
			id TEXT PRIMARY KEY,
			pet_id TEXT NOT NULL,
			owner_user_id TEXT NOT NULL,
			grantee_user_id TEXT NOT NULL,
			scopes TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			revoked_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_grants_pet ON caregiver_grants(pet_id)`,
		`CREATE INDEX IF NOT EXISTS idx_grants_grantee ON caregiver_grants(grantee_user_id)`,

		`CREATE TABLE IF NOT EXISTS care_entries (
			id TEXT PRIMARY KEY,
			pet_id TEXT NOT NULL,
			category TEXT NOT NULL,
			occurred_at TEXT NOT NULL,
			recorded_at TEXT NOT NULL,
			title TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			duration_min INTEGER NOT NULL DEFAULT 0,
			distance_km REAL NOT NULL DEFAULT 0,
			calories REAL NOT NULL DEFAULT 0,
			weight_kg REAL NOT NULL DEFAULT 0,
			clinic TEXT NOT NULL DEFAULT '',
			vet_name TEXT NOT NULL DEFAULT '',
			actor_type TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			source TEXT NOT NULL,
			visibility TEXT NOT NULL,
			status TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_care_entries_pet ON care_entries(pet_id, occurred_at)`,

		`CREATE TABLE IF NOT EXISTS feeding_schedules (
			id TEXT PRIMARY KEY,
			pet_id TEXT NOT NULL,
			owner_user_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			days_of_week INTEGER NOT NULL,
			slots TEXT NOT NULL,
			valid_from TEXT NOT NULL,
			valid_until TEXT,
			active INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_schedules_pet ON feeding_schedules(pet_id)`,

		`CREATE TABLE IF NOT EXISTS meals (
			id TEXT PRIMARY KEY,
			schedule_id TEXT NOT NULL,
			pet_id TEXT NOT NULL,
			date TEXT NOT NULL,
			time_of_day TEXT NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			food_ref TEXT NOT NULL,
			quantity_grams REAL NOT NULL,
			status TEXT NOT NULL,
			completed_at TEXT,
			skip_reason TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			UNIQUE (schedule_id, date, time_of_day, food_ref)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_meals_pet_date ON meals(pet_id, date)`,

		`CREATE TABLE IF NOT EXISTS providers (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL,
			bio TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			offerings TEXT NOT NULL,
			active INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS availability_rules (
			id TEXT PRIMARY KEY,
			provider_id TEXT NOT NULL,
			service TEXT NOT NULL,
			days_of_week INTEGER NOT NULL,
			start_times TEXT NOT NULL,
			valid_from TEXT NOT NULL,
			valid_until TEXT,
			active INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rules_provider ON availability_rules(provider_id)`,

		`CREATE TABLE IF NOT EXISTS bookings (
			id TEXT PRIMARY KEY,
			provider_id TEXT NOT NULL,
			pet_id TEXT NOT NULL,
			owner_user_id TEXT NOT NULL,
			service TEXT NOT NULL,
			date TEXT NOT NULL,
			start_time TEXT NOT NULL,
			duration_min INTEGER NOT NULL,
			price_cents INTEGER NOT NULL,
			status TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			cancel_reason TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_provider_date ON bookings(provider_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_owner ON bookings(owner_user_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_bookings_slot
			ON bookings(provider_id, date, start_time)
			WHERE status IN ('requested','confirmed','in_progress')`,

		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			sku TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price_cents INTEGER NOT NULL,
			stock INTEGER NOT NULL,
			active INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			items TEXT NOT NULL,
			total_cents INTEGER NOT NULL,
			status TEXT NOT NULL,
			shipping_address TEXT NOT NULL,
			cancel_reason TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// helpers de codificación

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func fmtNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: fmtTime(*t), Valid: true}
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func encodeWeekdays(days []time.Weekday) int64 {
	var mask int64
	for _, d := range days {
		if d >= time.Sunday && d <= time.Saturday {
			mask |= 1 << uint(d)
		}
	}
	return mask
}

func decodeWeekdays(mask int64) []time.Weekday {
	var days []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if mask&(1<<uint(d)) != 0 {
			days = append(days, d)
		}
	}
	return days
}

type rowScanner interface {
	Scan(dest ...any) error
}
