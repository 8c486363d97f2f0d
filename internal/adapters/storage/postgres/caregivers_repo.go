package postgres

import (
	"context"
	"database/sql"
	"strings"

	"druma-petcare/internal/domain/caregivers"
)

type CaregiversRepo struct {
	db *sql.DB
}

func NewCaregiversRepo(db *sql.DB) *CaregiversRepo {
	return &CaregiversRepo{db: db}
}

func (r *CaregiversRepo) Create(ctx context.Context, g caregivers.Grant) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO caregiver_grants (
			id, pet_id, owner_user_id, grantee_user_id,
			scopes, status,
			created_at, updated_at, revoked_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		g.ID,
		g.PetID,
		g.OwnerUserID,
		g.GranteeUserID,
		scopesToTextArray(g.Scopes),
		string(g.Status),
		g.CreatedAt,
		g.UpdatedAt,
		toNullTime(g.RevokedAt),
	)
	return err
}

func (r *CaregiversRepo) Update(ctx context.Context, g caregivers.Grant) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE caregiver_grants
		SET
			scopes = $2,
			status = $3,
			updated_at = $4,
			revoked_at = $5
		WHERE id = $1
	`,
		g.ID,
		scopesToTextArray(g.Scopes),
		string(g.Status),
		g.UpdatedAt,
		toNullTime(g.RevokedAt),
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

func (r *CaregiversRepo) GetByID(ctx context.Context, id string) (caregivers.Grant, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return caregivers.Grant{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT
			id, pet_id, owner_user_id, grantee_user_id,
			scopes, status,
			created_at, updated_at, revoked_at
		FROM caregiver_grants
		WHERE id = $1
	`, id)

	g, err := scanGrant(row)
	if err == sql.ErrNoRows {
		return caregivers.Grant{}, ErrNotFound
	}
	return g, err
}

func (r *CaregiversRepo) ListByPet(ctx context.Context, petID string) ([]caregivers.Grant, error) {
	return r.list(ctx, `
		SELECT
			id, pet_id, owner_user_id, grantee_user_id,
			scopes, status,
			created_at, updated_at, revoked_at
		FROM caregiver_grants
		WHERE pet_id = $1
		ORDER BY created_at ASC
	`, petID)
}

func (r *CaregiversRepo) ListByGrantee(ctx context.Context, granteeUserID string) ([]caregivers.Grant, error) {
	return r.list(ctx, `
		SELECT
			id, pet_id, owner_user_id, grantee_user_id,
			scopes, status,
			created_at, updated_at, revoked_at
		FROM caregiver_grants
		WHERE grantee_user_id = $1
		ORDER BY created_at ASC
	`, granteeUserID)
}

func (r *CaregiversRepo) GetActiveGrant(ctx context.Context, petID, granteeUserID string) (caregivers.Grant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT
			id, pet_id, owner_user_id, grantee_user_id,
			scopes, status,
			created_at, updated_at, revoked_at
		FROM caregiver_grants
		WHERE pet_id = $1 AND grantee_user_id = $2 AND status = 'active'
		ORDER BY updated_at DESC
		LIMIT 1
	`, petID, granteeUserID)

	g, err := scanGrant(row)
	if err == sql.ErrNoRows {
		return caregivers.Grant{}, ErrNotFound
	}
	return g, err
}

func (r *CaregiversRepo) list(ctx context.Context, query, arg string) ([]caregivers.Grant, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]caregivers.Grant, 0)
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}

	return out, rows.Err()
}

func scanGrant(row rowScanner) (caregivers.Grant, error) {
	var g caregivers.Grant
	var status string
	var scopes []string
	var revokedAt sql.NullTime

	if err := row.Scan(
		&g.ID,
		&g.PetID,
		&g.OwnerUserID,
		&g.GranteeUserID,
		&scopes,
		&status,
		&g.CreatedAt,
		&g.UpdatedAt,
		&revokedAt,
	); err != nil {
		return caregivers.Grant{}, err
	}

	g.Status = caregivers.Status(status)
	g.Scopes = textArrayToScopes(scopes)
	if revokedAt.Valid {
		t := revokedAt.Time
		g.RevokedAt = &t
	}

	return g, nil
}

// helpers
func scopesToTextArray(in []caregivers.Scope) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}

func textArrayToScopes(in []string) []caregivers.Scope {
	out := make([]caregivers.Scope, 0, len(in))
	for _, s := range in {
		out = append(out, caregivers.Scope(s))
	}
	return out
}
