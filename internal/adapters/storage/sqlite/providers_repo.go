package sqlite

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
		) VALUES (?,?,?,?,?,?,?,?,?)
	`,
		p.ID,
		p.UserID,
		p.DisplayName,
		p.Bio,
		p.City,
		string(offerings),
		p.Active,
		fmtTime(p.CreatedAt),
		fmtTime(p.UpdatedAt),
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
			display_name = ?,
			bio = ?,
			city = ?,
			offerings = ?,
			active = ?,
			updated_at = ?
		WHERE id = ?
	`,
		p.DisplayName,
		p.Bio,
		p.City,
		string(offerings),
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
		WHERE %s = ?
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
	if strings.TrimSpace(f.City) != "" {
		sb.WriteString(" AND LOWER(city) = LOWER(?)")
		args = append(args, strings.TrimSpace(f.City))
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
		// el filtro por servicio se resuelve sobre el json deserializado
		if f.Service != "" {
			if _, ok := p.OfferingFor(f.Service); !ok {
				continue
			}
		}
		out = append(out, p)
	}

	return out, rows.Err()
}

func (r *ProvidersRepo) CreateRule(ctx context.Context, a providers.AvailabilityRule) error {
	starts, err := json.Marshal(a.StartTimes)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO availability_rules (
			id, provider_id, service,
			days_of_week, start_times,
			valid_from, valid_until, active,
			created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?)
	`,
		a.ID,
		a.ProviderID,
		string(a.Service),
		encodeWeekdays(a.DaysOfWeek),
		string(starts),
		fmtTime(a.ValidFrom),
		fmtNullTime(a.ValidUntil),
		a.Active,
		fmtTime(a.CreatedAt),
		fmtTime(a.UpdatedAt),
	)
	return err
}

func (r *ProvidersRepo) UpdateRule(ctx context.Context, a providers.AvailabilityRule) error {
	starts, err := json.Marshal(a.StartTimes)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE availability_rules
		SET
			service = ?,
			days_of_week = ?,
			start_times = ?,
			valid_from = ?,
			valid_until = ?,
			active = ?,
			updated_at = ?
		WHERE id = ?
	`,
		string(a.Service),
		encodeWeekdays(a.DaysOfWeek),
		string(starts),
		fmtTime(a.ValidFrom),
		fmtNullTime(a.ValidUntil),
		a.Active,
		fmtTime(a.UpdatedAt),
		a.ID,
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
		WHERE id = ?
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
		WHERE provider_id = ?
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

func scanProvider(row rowScanner) (providers.Provider, error) {
	var p providers.Provider
	var offerings string
	var createdAt, updatedAt string

	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.DisplayName,
		&p.Bio,
		&p.City,
		&offerings,
		&p.Active,
		&createdAt,
		&updatedAt,
	); err != nil {
		return providers.Provider{}, err
	}

	if err := json.Unmarshal([]byte(offerings), &p.Offerings); err != nil {
		return providers.Provider{}, err
	}

	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return providers.Provider{}, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return providers.Provider{}, err
	}

	return p, nil
}

func scanRule(row rowScanner) (providers.AvailabilityRule, error) {
	var a providers.AvailabilityRule
	var service string
	var days int64
	var starts string
	var validFrom, createdAt, updatedAt string
	var validUntil sql.NullString

	if err := row.Scan(
		&a.ID,
		&a.ProviderID,
		&service,
		&days,
		&starts,
		&validFrom,
		&validUntil,
		&a.Active,
		&createdAt,
		&updatedAt,
	); err != nil {
		return providers.AvailabilityRule{}, err
	}

	a.Service = providers.ServiceType(service)
	a.DaysOfWeek = decodeWeekdays(days)
	if err := json.Unmarshal([]byte(starts), &a.StartTimes); err != nil {
		return providers.AvailabilityRule{}, err
	}

	var err error
	if a.ValidFrom, err = parseTime(validFrom); err != nil {
		return providers.AvailabilityRule{}, err
	}
	if a.ValidUntil, err = parseNullTime(validUntil); err != nil {
		return providers.AvailabilityRule{}, err
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return providers.AvailabilityRule{}, err
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return providers.AvailabilityRule{}, err
	}

	return a, nil
}
