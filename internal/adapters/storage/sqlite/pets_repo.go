package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"druma-petcare/internal/domain/pets"
)

type PetsRepo struct {
	db *sql.DB
}

func NewPetsRepo(db *sql.DB) *PetsRepo {
	return &PetsRepo{db: db}
}

func (r *PetsRepo) Create(ctx context.Context, p pets.Pet) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pets (
			id, owner_user_id,
			name, species, breed, sex,
			birth_date, weight_kg, activity_level, photo_url, notes,
			created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
	`,
		p.ID,
		p.OwnerUserID,
		p.Name,
		string(p.Species),
		p.Breed,
		string(p.Sex),
		fmtNullTime(p.BirthDate),
		p.WeightKg,
		string(p.ActivityLevel),
		p.PhotoURL,
		p.Notes,
		fmtTime(p.CreatedAt),
		fmtTime(p.UpdatedAt),
	)
	return err
}

func (r *PetsRepo) Update(ctx context.Context, p pets.Pet) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE pets
		SET
			name = ?,
			species = ?,
			breed = ?,
			sex = ?,
			birth_date = ?,
			weight_kg = ?,
			activity_level = ?,
			photo_url = ?,
			notes = ?,
			updated_at = ?
		WHERE id = ?
	`,
		p.Name,
		string(p.Species),
		p.Breed,
		string(p.Sex),
		fmtNullTime(p.BirthDate),
		p.WeightKg,
		string(p.ActivityLevel),
		p.PhotoURL,
		p.Notes,
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

func (r *PetsRepo) GetByID(ctx context.Context, id string) (pets.Pet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return pets.Pet{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT
			id, owner_user_id,
			name, species, breed, sex,
			birth_date, weight_kg, activity_level, photo_url, notes,
			created_at, updated_at
		FROM pets
		WHERE id = ?
	`, id)

	p, err := scanPet(row)
	if err == sql.ErrNoRows {
		return pets.Pet{}, ErrNotFound
	}
	return p, err
}

func (r *PetsRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]pets.Pet, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id, owner_user_id,
			name, species, breed, sex,
			birth_date, weight_kg, activity_level, photo_url, notes,
			created_at, updated_at
		FROM pets
		WHERE owner_user_id = ?
		ORDER BY created_at ASC
	`, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]pets.Pet, 0)
	for rows.Next() {
		p, err := scanPet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	return out, rows.Err()
}

func scanPet(row rowScanner) (pets.Pet, error) {
	var p pets.Pet
	var species, sex, activity string
	var birthDate sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(
		&p.ID,
		&p.OwnerUserID,
		&p.Name,
		&species,
		&p.Breed,
		&sex,
		&birthDate,
		&p.WeightKg,
		&activity,
		&p.PhotoURL,
		&p.Notes,
		&createdAt,
		&updatedAt,
	); err != nil {
		return pets.Pet{}, err
	}

	p.Species = pets.Species(species)
	p.Sex = pets.Sex(sex)
	p.ActivityLevel = pets.ActivityLevel(activity)

	var err error
	if p.BirthDate, err = parseNullTime(birthDate); err != nil {
		return pets.Pet{}, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return pets.Pet{}, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return pets.Pet{}, err
	}

	return p, nil
}
