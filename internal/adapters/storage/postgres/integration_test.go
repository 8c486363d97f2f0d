package postgres

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"druma-petcare/internal/domain/feeding"
	"druma-petcare/internal/domain/pets"
	"druma-petcare/internal/recurrence"
)

// testSchema replica el esquema productivo para las tablas bajo prueba.
const testSchema = `
CREATE TABLE IF NOT EXISTS pets (
	id             TEXT PRIMARY KEY,
	owner_user_id  TEXT NOT NULL,
	name           TEXT NOT NULL,
	species        TEXT NOT NULL,
	breed          TEXT NOT NULL DEFAULT '',
	sex            TEXT NOT NULL DEFAULT '',
	birth_date     DATE,
	weight_kg      DOUBLE PRECISION NOT NULL DEFAULT 0,
	activity_level TEXT NOT NULL DEFAULT '',
	photo_url      TEXT NOT NULL DEFAULT '',
	notes          TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS feeding_schedules (
	id            TEXT PRIMARY KEY,
	pet_id        TEXT NOT NULL,
	owner_user_id TEXT NOT NULL,
	name          TEXT NOT NULL DEFAULT '',
	days_of_week  JSONB NOT NULL,
	slots         JSONB NOT NULL,
	valid_from    TIMESTAMPTZ NOT NULL,
	valid_until   TIMESTAMPTZ,
	active        BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS meals (
	id             TEXT PRIMARY KEY,
	schedule_id    TEXT NOT NULL,
	pet_id         TEXT NOT NULL,
	date           DATE NOT NULL,
	time_of_day    TEXT NOT NULL,
	label          TEXT NOT NULL DEFAULT '',
	food_ref       TEXT NOT NULL,
	quantity_grams DOUBLE PRECISION NOT NULL,
	status         TEXT NOT NULL,
	completed_at   TIMESTAMPTZ,
	skip_reason    TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL,
	UNIQUE (schedule_id, date, time_of_day, food_ref)
);
`

var testDB *sql.DB

func TestMain(m *testing.M) {
	flag.Parse()

	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("petcare_test"),
		postgres.WithUsername("petcare"),
		postgres.WithPassword("petcare"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "no se pudo levantar postgres: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "no se pudo terminar el contenedor: %v\n", err)
		}
	}()

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Fprintf(os.Stderr, "connection string: %v\n", err)
		os.Exit(1)
	}

	testDB, err = Open(dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "no se pudo conectar: %v\n", err)
		os.Exit(1)
	}
	defer testDB.Close()

	if _, err := testDB.ExecContext(ctx, testSchema); err != nil {
		fmt.Fprintf(os.Stderr, "no se pudo crear el esquema: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func setupTestDB(t *testing.T) *sql.DB {
	if testing.Short() {
		t.Skip("test de integración: se salta en modo -short")
	}

	t.Cleanup(func() {
		_, err := testDB.ExecContext(context.Background(), "TRUNCATE pets, feeding_schedules, meals")
		if err != nil {
			t.Logf("no se pudieron truncar las tablas: %v", err)
		}
	})
	return testDB
}

func TestPetsRepo_CRUD(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPetsRepo(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	birth := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	p := pets.Pet{
		ID:            uuid.NewString(),
		OwnerUserID:   "owner-1",
		Name:          "Rocky",
		Species:       "dog",
		Breed:         "mestizo",
		Sex:           "male",
		BirthDate:     &birth,
		WeightKg:      12.5,
		ActivityLevel: "high",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Species, got.Species)
	assert.Equal(t, p.WeightKg, got.WeightKg)
	require.NotNil(t, got.BirthDate)
	assert.Equal(t, birth.Format("2006-01-02"), got.BirthDate.Format("2006-01-02"))

	got.Name = "Rocco"
	got.WeightKg = 13
	got.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, repo.Update(ctx, got))

	updated, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rocco", updated.Name)
	assert.Equal(t, float64(13), updated.WeightKg)

	mine, err := repo.ListByOwner(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)

	_, err = repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.Update(ctx, pets.Pet{ID: uuid.NewString(), UpdatedAt: now})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFeedingRepo_ScheduleRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFeedingRepo(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	until := now.AddDate(0, 3, 0)
	s := feeding.Schedule{
		ID:          uuid.NewString(),
		PetID:       "pet-1",
		OwnerUserID: "owner-1",
		Name:        "dieta de invierno",
		DaysOfWeek:  []time.Weekday{time.Monday, time.Thursday},
		Slots: []feeding.MealSlot{
			{TimeOfDay: "08:00", Label: "desayuno", FoodRef: "croquetas", QuantityGrams: 150},
			{TimeOfDay: "19:30", Label: "cena", FoodRef: "croquetas", QuantityGrams: 200},
		},
		ValidFrom:  now,
		ValidUntil: &until,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, repo.CreateSchedule(ctx, s))

	got, err := repo.GetSchedule(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.DaysOfWeek, got.DaysOfWeek)
	assert.Equal(t, s.Slots, got.Slots)
	require.NotNil(t, got.ValidUntil)

	got.Active = false
	got.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, repo.UpdateSchedule(ctx, got))

	list, err := repo.ListSchedulesByPet(ctx, "pet-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Active)
}

func TestFeedingRepo_MealDedupOnUniqueIndex(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFeedingRepo(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	scheduleID := uuid.NewString()

	m := feeding.Meal{
		ID:            uuid.NewString(),
		ScheduleID:    scheduleID,
		PetID:         "pet-1",
		Date:          day,
		TimeOfDay:     "08:00",
		Label:         "desayuno",
		FoodRef:       "croquetas",
		QuantityGrams: 150,
		Status:        recurrence.StatusScheduled,
		CreatedAt:     now,
	}
	ok, err := repo.CreateMealIfAbsent(ctx, m)
	require.NoError(t, err)
	assert.True(t, ok)

	// mismo (schedule, fecha, hora, alimento) con otro id: el índice lo frena
	dup := m
	dup.ID = uuid.NewString()
	ok, err = repo.CreateMealIfAbsent(ctx, dup)
	require.NoError(t, err)
	assert.False(t, ok)

	// otra hora sí entra
	other := m
	other.ID = uuid.NewString()
	other.TimeOfDay = "19:30"
	ok, err = repo.CreateMealIfAbsent(ctx, other)
	require.NoError(t, err)
	assert.True(t, ok)

	meals, err := repo.ListMealsByPetAndDate(ctx, "pet-1", day)
	require.NoError(t, err)
	require.Len(t, meals, 2)
	assert.Equal(t, "08:00", meals[0].TimeOfDay)
	assert.Equal(t, "19:30", meals[1].TimeOfDay)
}

func TestFeedingRepo_ListOverdueScheduled(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFeedingRepo(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	scheduleID := uuid.NewString()

	mk := func(tod string, status recurrence.Status) feeding.Meal {
		return feeding.Meal{
			ID:            uuid.NewString(),
			ScheduleID:    scheduleID,
			PetID:         "pet-1",
			Date:          day,
			TimeOfDay:     tod,
			FoodRef:       "croquetas",
			QuantityGrams: 150,
			Status:        status,
			CreatedAt:     now,
		}
	}
	for _, m := range []feeding.Meal{
		mk("08:00", recurrence.StatusScheduled),
		mk("12:00", recurrence.StatusCompleted),
		mk("19:30", recurrence.StatusScheduled),
	} {
		ok, err := repo.CreateMealIfAbsent(ctx, m)
		require.NoError(t, err)
		require.True(t, ok)
	}

	// corte a mediodía: solo el desayuno sigue programado y vencido
	cutoff := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	overdue, err := repo.ListOverdueScheduled(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "08:00", overdue[0].TimeOfDay)

	// fin del día: la cena también venció, la completada nunca aparece
	overdue, err = repo.ListOverdueScheduled(ctx, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, overdue, 2)
}
