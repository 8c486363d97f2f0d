package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"druma-petcare/internal/domain/bookings"
	"druma-petcare/internal/domain/feeding"
	"druma-petcare/internal/domain/orders"
	"druma-petcare/internal/domain/pets"
	"druma-petcare/internal/domain/providers"
	"druma-petcare/internal/recurrence"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "petcare.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("segunda migración: %v", err)
	}
}

func TestWeekdayMaskRoundTrip(t *testing.T) {
	cases := [][]time.Weekday{
		nil,
		{time.Monday},
		{time.Sunday, time.Saturday},
		{time.Monday, time.Wednesday, time.Friday},
		{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday},
	}
	for _, days := range cases {
		got := decodeWeekdays(encodeWeekdays(days))
		if len(got) != len(days) {
			t.Fatalf("roundtrip %v: obtuve %v", days, got)
		}
		for i := range days {
			if got[i] != days[i] {
				t.Fatalf("roundtrip %v: obtuve %v", days, got)
			}
		}
	}
}

func TestPetsRepo_CRUD(t *testing.T) {
	repo := NewPetsRepo(openTestDB(t))
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	birth := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	p := pets.Pet{
		ID:            uuid.NewString(),
		OwnerUserID:   "owner-1",
		Name:          "Rocky",
		Species:       "dog",
		Sex:           "male",
		BirthDate:     &birth,
		WeightKg:      12.5,
		ActivityLevel: "high",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Rocky" || got.WeightKg != 12.5 {
		t.Fatalf("mascota inesperada: %+v", got)
	}
	if got.BirthDate == nil || !got.BirthDate.Equal(birth) {
		t.Fatalf("birth_date perdido en el roundtrip: %v", got.BirthDate)
	}

	got.Name = "Rocco"
	got.UpdatedAt = now.Add(time.Minute)
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}

	mine, err := repo.ListByOwner(ctx, "owner-1")
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(mine) != 1 || mine[0].Name != "Rocco" {
		t.Fatalf("listado inesperado: %+v", mine)
	}

	if _, err := repo.GetByID(ctx, "no-existe"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("esperaba ErrNotFound, obtuve %v", err)
	}
}

func TestFeedingRepo_ScheduleRoundTrip(t *testing.T) {
	repo := NewFeedingRepo(openTestDB(t))
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	s := feeding.Schedule{
		ID:          uuid.NewString(),
		PetID:       "pet-1",
		OwnerUserID: "owner-1",
		Name:        "dieta base",
		DaysOfWeek:  []time.Weekday{time.Monday, time.Thursday},
		Slots: []feeding.MealSlot{
			{TimeOfDay: "08:00", Label: "desayuno", FoodRef: "croquetas", QuantityGrams: 150},
		},
		ValidFrom: now,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateSchedule(ctx, s); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	got, err := repo.GetSchedule(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	if len(got.DaysOfWeek) != 2 || got.DaysOfWeek[0] != time.Monday || got.DaysOfWeek[1] != time.Thursday {
		t.Fatalf("días perdidos en el bitmask: %v", got.DaysOfWeek)
	}
	if len(got.Slots) != 1 || got.Slots[0].FoodRef != "croquetas" {
		t.Fatalf("slots inesperados: %+v", got.Slots)
	}
	if got.ValidUntil != nil {
		t.Fatalf("valid_until debería ser nil: %v", got.ValidUntil)
	}
}

func TestFeedingRepo_MealDedup(t *testing.T) {
	repo := NewFeedingRepo(openTestDB(t))
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	scheduleID := uuid.NewString()

	m := feeding.Meal{
		ID:            uuid.NewString(),
		ScheduleID:    scheduleID,
		PetID:         "pet-1",
		Date:          day,
		TimeOfDay:     "08:00",
		FoodRef:       "croquetas",
		QuantityGrams: 150,
		Status:        recurrence.StatusScheduled,
		CreatedAt:     now,
	}
	ok, err := repo.CreateMealIfAbsent(ctx, m)
	if err != nil || !ok {
		t.Fatalf("primera inserción: ok=%v err=%v", ok, err)
	}

	dup := m
	dup.ID = uuid.NewString()
	ok, err = repo.CreateMealIfAbsent(ctx, dup)
	if err != nil {
		t.Fatalf("duplicado: %v", err)
	}
	if ok {
		t.Fatal("el índice único debería frenar el duplicado")
	}

	meals, err := repo.ListMealsByPetAndDate(ctx, "pet-1", day)
	if err != nil {
		t.Fatalf("ListMealsByPetAndDate: %v", err)
	}
	if len(meals) != 1 {
		t.Fatalf("esperaba 1 comida, obtuve %d", len(meals))
	}
}

func TestFeedingRepo_ListOverdueScheduled(t *testing.T) {
	repo := NewFeedingRepo(openTestDB(t))
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	scheduleID := uuid.NewString()

	for _, tc := range []struct {
		tod    string
		status recurrence.Status
	}{
		{"08:00", recurrence.StatusScheduled},
		{"12:00", recurrence.StatusCompleted},
		{"19:30", recurrence.StatusScheduled},
	} {
		ok, err := repo.CreateMealIfAbsent(ctx, feeding.Meal{
			ID:            uuid.NewString(),
			ScheduleID:    scheduleID,
			PetID:         "pet-1",
			Date:          day,
			TimeOfDay:     tc.tod,
			FoodRef:       "croquetas",
			QuantityGrams: 150,
			Status:        tc.status,
			CreatedAt:     now,
		})
		if err != nil || !ok {
			t.Fatalf("insertar %s: ok=%v err=%v", tc.tod, ok, err)
		}
	}

	overdue, err := repo.ListOverdueScheduled(ctx, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ListOverdueScheduled: %v", err)
	}
	if len(overdue) != 1 || overdue[0].TimeOfDay != "08:00" {
		t.Fatalf("vencidas inesperadas: %+v", overdue)
	}
}

func TestBookingsRepo_SlotUniqueWhileActive(t *testing.T) {
	repo := NewBookingsRepo(openTestDB(t))
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	b := bookings.Booking{
		ID:          uuid.NewString(),
		ProviderID:  "prov-1",
		PetID:       "pet-1",
		OwnerUserID: "owner-1",
		Service:     providers.ServiceWalk,
		Date:        day,
		StartTime:   "09:00",
		DurationMin: 60,
		PriceCents:  3500,
		Status:      bookings.StatusRequested,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	ok, err := repo.CreateIfFree(ctx, b)
	if err != nil || !ok {
		t.Fatalf("primera reserva: ok=%v err=%v", ok, err)
	}

	// Mismo proveedor, fecha y hora: el índice único parcial la frena.
	rival := b
	rival.ID = uuid.NewString()
	rival.OwnerUserID = "owner-2"
	rival.PetID = "pet-2"
	ok, err = repo.CreateIfFree(ctx, rival)
	if err != nil {
		t.Fatalf("reserva rival: %v", err)
	}
	if ok {
		t.Fatal("el índice único debería frenar el doble turno")
	}

	// Cancelada la primera, el turno vuelve a estar libre.
	b.Status = bookings.StatusCancelled
	b.UpdatedAt = now.Add(time.Minute)
	if err := repo.Update(ctx, b); err != nil {
		t.Fatalf("Update: %v", err)
	}
	ok, err = repo.CreateIfFree(ctx, rival)
	if err != nil || !ok {
		t.Fatalf("turno liberado: ok=%v err=%v", ok, err)
	}
}

func TestOrdersRepo_AdjustStockIsConditional(t *testing.T) {
	repo := NewOrdersRepo(openTestDB(t))
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	p := orders.Product{
		ID:         uuid.NewString(),
		SKU:        "FOOD-A",
		Name:       "Croquetas adulto 3kg",
		PriceCents: 4500,
		Stock:      5,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := repo.CreateProduct(ctx, p); err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	ok, err := repo.AdjustStock(ctx, p.ID, -3, now)
	if err != nil || !ok {
		t.Fatalf("descuento: ok=%v err=%v", ok, err)
	}

	// No hay stock para otras 3 unidades: la base rechaza sin tocar nada.
	ok, err = repo.AdjustStock(ctx, p.ID, -3, now)
	if err != nil {
		t.Fatalf("descuento excedido: %v", err)
	}
	if ok {
		t.Fatal("el descuento no debía pasar con stock insuficiente")
	}
	cur, err := repo.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if cur.Stock != 2 {
		t.Fatalf("stock esperado 2, obtuve %d", cur.Stock)
	}

	// Reponer siempre pasa.
	ok, err = repo.AdjustStock(ctx, p.ID, 3, now)
	if err != nil || !ok {
		t.Fatalf("reposición: ok=%v err=%v", ok, err)
	}

	// Producto inexistente: false sin error.
	ok, err = repo.AdjustStock(ctx, uuid.NewString(), 1, now)
	if err != nil || ok {
		t.Fatalf("producto inexistente: ok=%v err=%v", ok, err)
	}
}
