package sqlite

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
		) VALUES (?,?,?,?,?,?,?,?,?)
	`,
		g.ID,
		g.PetID,
		g.OwnerUserID,
		g.GranteeUserID,
		joinScopes(g.Scopes),
		string(g.Status),
		fmtTime(g.CreatedAt),
		fmtTime(g.UpdatedAt),
		fmtNullTime(g.RevokedAt),
	)
	return err
}

func (r *CaregiversRepo) Update(ctx context.Context, g caregivers.Grant) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE caregiver_grants
		SET
			scopes = ?,
			status = ?,
			updated_at = ?,
			revoked_at = ?
		WHERE id = ?
	`,
		joinScopes(g.Scopes),
		string(g.Status),
		fmtTime(g.UpdatedAt),
		fmtNullTime(g.RevokedAt),
		g.ID,
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
		WHERE id = ?
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
		WHERE pet_id = ?
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
		WHERE grantee_user_id = ?
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
		WHERE pet_id = ? AND grantee_user_id = ? AND status = 'active'
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
	var scopes, status string
	var createdAt, updatedAt string
	var revokedAt sql.NullString

	if err := row.Scan(
		&g.ID,
		&g.PetID,
		&g.OwnerUserID,
		&g.GranteeUserID,
		&scopes,
		&status,
		&createdAt,
		&updatedAt,
		&revokedAt,
	); err != nil {
		return caregivers.Grant{}, err
	}

	g.Status = caregivers.Status(status)
	g.Scopes = splitScopes(scopes)

	var err error
	if g.CreatedAt, err = parseTime(createdAt); err != nil {
		return caregivers.Grant{}, err
	}
	if g.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return caregivers.Grant{}, err
	}
	if g.RevokedAt, err = parseNullTime(revokedAt); err != nil {
		return caregivers.Grant{}, err
	}

	return g, nil
}

// SQLite no tiene arrays: los scopes van separados por coma.
func joinScopes(in []caregivers.Scope) string {
	parts := make([]string, 0, len(in))
	for _, s := range in {
		parts = append(parts, string(s))
	}
	return strings.Join(parts, ",")
}

func splitScopes(s string) []caregivers.Scope {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]caregivers.Scope, 0, len(parts))
	for _, p := range parts {
		out = append(out, caregivers.Scope(p))
	}
	return out
}
