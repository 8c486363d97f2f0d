package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"druma-petcare/internal/domain/providers"
)

type ProvidersRepo struct {
	db *sql.DB
}

func NewProvidersRepo(db *sql.DB) *ProvidersRepo {
	return &ProvidersRepo{db: db}
}

func (r *ProvidersRepo) Create(ctx context.Context, p providers.Provider) error {
	offerings, err := json.Marshal(p.Offerings)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO providers (
			id, user_id,
			display_name, bio, city,
			offerings, active,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		p.ID,
		p.UserID,
		p.DisplayName,
		p.Bio,
		p.City,
		offerings,
		p.Active,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

func (r *ProvidersRepo) Update(ctx context.Context, p providers.Provider) error {
	offerings, err := json.Marshal(p.Offerings)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE providers
		SET
			display_name = $2,
			bio = $3,
			city = $4,
			offerings = $5,
			active = $6,
			updated_at = $7
		WHERE id = $1
	`,
		p.ID,
		p.DisplayName,
		p.Bio,
		p.City,
		offerings,
		p.Active,
		p.UpdatedAt,
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

func (r *ProvidersRepo) GetByID(ctx context.Context, id string) (providers.Provider, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return providers.Provider{}, ErrNotFound
	}
	return r.getBy(ctx, "id", id)
}

func (r *ProvidersRepo) GetByUserID(ctx context.Context, userID string) (providers.Provider, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return providers.Provider{}, ErrNotFound
	}
	return r.getBy(ctx, "user_id", userID)
}

func (r *ProvidersRepo) getBy(ctx context.Context, column, value string) (providers.Provider, error) {
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT
			id, user_id,
			display_name, bio, city,
			offerings, active,
			created_at, updated_at
		FROM providers
		WHERE %s = $1
	`, column), value)

	p, err := scanProvider(row)
	if err == sql.ErrNoRows {
		return providers.Provider{}, ErrNotFound
	}
	return p, err
}

func (r *ProvidersRepo) List(ctx context.Context, f providers.ListFilter) ([]providers.Provider, error) {
	sb := strings.Builder{}
	sb.WriteString(`
		SELECT
			id, user_id,
			display_name, bio, city,
			offerings, active,
			created_at, updated_at
		FROM providers
		WHERE 1=1
	`)

	args := []any{}
	argN := 1

	if strings.TrimSpace(f.City) != "" {
		sb.WriteString(fmt.Sprintf(" AND LOWER(city) = LOWER($%d)", argN))
		args = append(args, strings.TrimSpace(f.City))
		argN++
	}
	// offerings es jsonb [{"Type":"walk",...}]: filtramos por tipo contenido
	if f.Service != "" {
		sb.WriteString(fmt.Sprintf(` AND offerings @> $%d::jsonb`, argN))
		args = append(args, fmt.Sprintf(`[{"Type":%q}]`, string(f.Service)))
		argN++
	}

	sb.WriteString(" ORDER BY created_at ASC")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]providers.Provider, 0)
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	return out, rows.Err()
}

func (r *ProvidersRepo) CreateRule(ctx context.Context, a providers.AvailabilityRule) error {
	days, starts, err := ruleJSON(a)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO availability_rules (
			id, provider_id, service,
			days_of_week, start_times,
			valid_from, valid_until, active,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		a.ID,
		a.ProviderID,
		string(a.Service),
		days,
		starts,
		a.ValidFrom,
		toNullDate(a.ValidUntil),
		a.Active,
		a.CreatedAt,
		a.UpdatedAt,
	)
	return err
}

func (r *ProvidersRepo) UpdateRule(ctx context.Context, a providers.AvailabilityRule) error {
	days, starts, err := ruleJSON(a)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE availability_rules
		SET
			service = $2,
			days_of_week = $3,
			start_times = $4,
			valid_from = $5,
			valid_until = $6,
			active = $7,
			updated_at = $8
		WHERE id = $1
	`,
		a.ID,
		string(a.Service),
		days,
		starts,
		a.ValidFrom,
		toNullDate(a.ValidUntil),
		a.Active,
		a.UpdatedAt,
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

func (r *ProvidersRepo) GetRule(ctx context.Context, id string) (providers.AvailabilityRule, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return providers.AvailabilityRule{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT
			id, provider_id, service,
			days_of_week, start_times,
			valid_from, valid_until, active,
			created_at, updated_at
		FROM availability_rules
		WHERE id = $1
	`, id)

	a, err := scanRule(row)
	if err == sql.ErrNoRows {
		return providers.AvailabilityRule{}, ErrNotFound
	}
	return a, err
}

func (r *ProvidersRepo) ListRulesByProvider(ctx context.Context, providerID string) ([]providers.AvailabilityRule, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id, provider_id, service,
			days_of_week, start_times,
			valid_from, valid_until, active,
			created_at, updated_at
		FROM availability_rules
		WHERE provider_id = $1
		ORDER BY created_at ASC
	`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]providers.AvailabilityRule, 0)
	for rows.Next() {
		a, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}

	return out, rows.Err()
}

func ruleJSON(a providers.AvailabilityRule) (days, starts []byte, err error) {
	days, err = json.Marshal(a.DaysOfWeek)
	if err != nil {
		return nil, nil, err
	}
	starts, err = json.Marshal(a.StartTimes)
	if err != nil {
		return nil, nil, err
	}
	return days, starts, nil
}

func scanProvider(row rowScanner) (providers.Provider, error) {
	var p providers.Provider
	var offerings []byte

	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.DisplayName,
		&p.Bio,
		&p.City,
		&offerings,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return providers.Provider{}, err
	}

	if err := json.Unmarshal(offerings, &p.Offerings); err != nil {
		return providers.Provider{}, err
	}

	return p, nil
}

func scanRule(row rowScanner) (providers.AvailabilityRule, error) {
	var a providers.AvailabilityRule
	var service string
	var days, starts []byte
	var until sql.NullTime

	if err := row.Scan(
		&a.ID,
		&a.ProviderID,
		&service,
		&days,
		&starts,
		&a.ValidFrom,
		&until,
		&a.Active,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return providers.AvailabilityRule{}, err
	}

	a.Service = providers.ServiceType(service)
	if err := json.Unmarshal(days, &a.DaysOfWeek); err != nil {
		return providers.AvailabilityRule{}, err
	}
	if err := json.Unmarshal(starts, &a.StartTimes); err != nil {
		return providers.AvailabilityRule{}, err
	}
	if until.Valid {
		t := until.Time
		a.ValidUntil = &t
	}

	return a, nil
}
