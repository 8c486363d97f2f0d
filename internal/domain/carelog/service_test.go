package carelog

import (
	"context"
	"errors"
	"testing"
	"time"
)

type testRepo struct {
	byID map[string]Entry
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Entry{}}
}

func (r *testRepo) Create(_ context.Context, e Entry) error {
	r.byID[e.ID] = e
	return nil
}

func (r *testRepo) GetByID(_ context.Context, id string) (Entry, error) {
	e, ok := r.byID[id]
	if !ok {
		return Entry{}, errors.New("entry not found")
	}
	return e, nil
}

func (r *testRepo) ListByPet(_ context.Context, petID string, filter ListFilter) ([]Entry, error) {
	var out []Entry
	for _, e := range r.byID {
		if e.PetID != petID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *testRepo) Void(_ context.Context, id string) error {
	e, ok := r.byID[id]
	if !ok {
		return errors.New("entry not found")
	}
	e.Status = EntryStatusVoided
	r.byID[id] = e
	return nil
}

func newTestService() *Service {
	svc := NewService(newTestRepo())
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestCreateAppliesDefaults(t *testing.T) {
	svc := newTestService()
	actor := Actor{Type: ActorTypeOwnerUser, ID: "owner-1"}

	e, err := svc.Create(context.Background(), "pet-1", actor, CreateInput{
		Category:    CategoryExercise,
		OccurredAt:  time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		Title:       "  paseo largo ",
		DurationMin: 45,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if e.Title != "paseo largo" {
		t.Fatalf("título sin trim: %q", e.Title)
	}
	if e.Source != SourceManual || e.Visibility != VisibilityShared {
		t.Fatalf("defaults incorrectos: source=%s visibility=%s", e.Source, e.Visibility)
	}
	if e.Status != EntryStatusActive {
		t.Fatalf("esperaba estado activo, obtuve %s", e.Status)
	}
	if !e.RecordedAt.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("RecordedAt debería salir del reloj del servicio: %v", e.RecordedAt)
	}
}

func TestCreateRejectsInvalid(t *testing.T) {
	svc := newTestService()
	actor := Actor{Type: ActorTypeOwnerUser, ID: "owner-1"}
	occurred := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		petID string
		actor Actor
		in    CreateInput
	}{
		{"sin mascota", "", actor, CreateInput{Category: CategoryNote, OccurredAt: occurred}},
		{"categoría inválida", "pet-1", actor, CreateInput{Category: "SWIMMING", OccurredAt: occurred}},
		{"sin fecha", "pet-1", actor, CreateInput{Category: CategoryNote}},
		{"sin actor", "pet-1", Actor{}, CreateInput{Category: CategoryNote, OccurredAt: occurred}},
		{"métricas negativas", "pet-1", actor, CreateInput{Category: CategoryExercise, OccurredAt: occurred, DistanceKm: -2}},
		{"peso sin peso", "pet-1", actor, CreateInput{Category: CategoryWeight, OccurredAt: occurred}},
	}
	for _, tc := range cases {
		if _, err := svc.Create(context.Background(), tc.petID, tc.actor, tc.in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: esperaba ErrInvalidInput, obtuve %v", tc.name, err)
		}
	}
}

func TestVoidKeepsEntry(t *testing.T) {
	svc := newTestService()
	actor := Actor{Type: ActorTypeOwnerUser, ID: "owner-1"}

	e, err := svc.Create(context.Background(), "pet-1", actor, CreateInput{
		Category:   CategoryVeterinary,
		OccurredAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		Title:      "vacuna anual",
		Clinic:     "veterinaria del centro",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	voided, err := svc.Void(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("Void: %v", err)
	}
	if voided.Status != EntryStatusVoided {
		t.Fatalf("esperaba voided, obtuve %s", voided.Status)
	}
	// el registro sigue existiendo, solo queda anulado
	got, err := svc.GetByID(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("GetByID tras anular: %v", err)
	}
	if got.Title != "vacuna anual" {
		t.Fatalf("el contenido no debería cambiar al anular: %+v", got)
	}
}

func TestVoidRequiresID(t *testing.T) {
	svc := newTestService()
	if _, err := svc.Void(context.Background(), "  "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("esperaba ErrInvalidInput, obtuve %v", err)
	}
}
