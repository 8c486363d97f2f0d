package bookings

import (
	"context"
	"errors"
	"testing"
	"time"

	"druma-petcare/internal/domain/providers"
	"druma-petcare/internal/platform/logger"
)

type testRepo struct {
	byID map[string]Booking

	// Simula que otra solicitud ganó el turno entre el chequeo del servicio
	// y el alta en el storage.
	conflictOnCreate bool
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Booking{}}
}

func (r *testRepo) CreateIfFree(_ context.Context, b Booking) (bool, error) {
	if r.conflictOnCreate {
		return false, nil
	}
	for _, other := range r.byID {
		if other.Status.Blocking() && b.Overlaps(other) {
			return false, nil
		}
	}
	r.byID[b.ID] = b
	return true, nil
}

func (r *testRepo) Update(_ context.Context, b Booking) error {
	if _, ok := r.byID[b.ID]; !ok {
		return errors.New("booking not found")
	}
	r.byID[b.ID] = b
	return nil
}

func (r *testRepo) GetByID(_ context.Context, id string) (Booking, error) {
	b, ok := r.byID[id]
	if !ok {
		return Booking{}, errors.New("booking not found")
	}
	return b, nil
}

func (r *testRepo) ListByProviderAndDate(_ context.Context, providerID string, date time.Time) ([]Booking, error) {
	var out []Booking
	for _, b := range r.byID {
		if b.ProviderID == providerID && b.Date.Format("2006-01-02") == date.Format("2006-01-02") {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *testRepo) ListByOwner(_ context.Context, ownerID string) ([]Booking, error) {
	var out []Booking
	for _, b := range r.byID {
		if b.OwnerUserID == ownerID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *testRepo) ListByProvider(_ context.Context, providerID string) ([]Booking, error) {
	var out []Booking
	for _, b := range r.byID {
		if b.ProviderID == providerID {
			out = append(out, b)
		}
	}
	return out, nil
}

// providerRepo es el repo en memoria mínimo para el servicio de proveedores.
type providerRepo struct {
	providers map[string]providers.Provider
	rules     map[string]providers.AvailabilityRule
}

func (r *providerRepo) Create(_ context.Context, p providers.Provider) error {
	r.providers[p.ID] = p
	return nil
}

func (r *providerRepo) Update(_ context.Context, p providers.Provider) error {
	r.providers[p.ID] = p
	return nil
}

func (r *providerRepo) GetByID(_ context.Context, id string) (providers.Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return providers.Provider{}, errors.New("provider not found")
	}
	return p, nil
}

func (r *providerRepo) GetByUserID(_ context.Context, userID string) (providers.Provider, error) {
	for _, p := range r.providers {
		if p.UserID == userID {
			return p, nil
		}
	}
	return providers.Provider{}, errors.New("provider not found")
}

func (r *providerRepo) List(_ context.Context, _ providers.ListFilter) ([]providers.Provider, error) {
	var out []providers.Provider
	for _, p := range r.providers {
		out = append(out, p)
	}
	return out, nil
}

func (r *providerRepo) CreateRule(_ context.Context, a providers.AvailabilityRule) error {
	r.rules[a.ID] = a
	return nil
}

func (r *providerRepo) UpdateRule(_ context.Context, a providers.AvailabilityRule) error {
	r.rules[a.ID] = a
	return nil
}

func (r *providerRepo) GetRule(_ context.Context, id string) (providers.AvailabilityRule, error) {
	a, ok := r.rules[id]
	if !ok {
		return providers.AvailabilityRule{}, errors.New("rule not found")
	}
	return a, nil
}

func (r *providerRepo) ListRulesByProvider(_ context.Context, providerID string) ([]providers.AvailabilityRule, error) {
	var out []providers.AvailabilityRule
	for _, a := range r.rules {
		if a.ProviderID == providerID {
			out = append(out, a)
		}
	}
	return out, nil
}

// fixture arma un proveedor con paseos los lunes 09:00 y 10:00, y el
// servicio de reservas enganchado como BookedLookup.
func fixture(t *testing.T) (*Service, providers.Provider) {
	t.Helper()

	pRepo := &providerRepo{
		providers: map[string]providers.Provider{},
		rules:     map[string]providers.AvailabilityRule{},
	}
	bRepo := newTestRepo()

	provSvc := providers.NewService(pRepo, nil, logger.NewNop())
	svc := NewService(bRepo, provSvc, logger.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC) }

	// El lookup de reservados cierra el ciclo providers <- bookings.
	provSvc2 := providers.NewService(pRepo, svc, logger.NewNop())
	svc.providers = provSvc2

	p, err := provSvc2.Register(context.Background(), "walker-user", providers.RegisterInput{
		DisplayName: "Paseos Luna",
		City:        "Lima",
		Offerings:   []providers.Offering{{Type: providers.ServiceWalk, PriceCents: 3500, DurationMin: 60}},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := provSvc2.AddAvailability(context.Background(), p.ID, "walker-user", providers.AvailabilityInput{
		Service:    providers.ServiceWalk,
		DaysOfWeek: []time.Weekday{time.Monday},
		StartTimes: []string{"09:00", "10:00"},
		ValidFrom:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("AddAvailability: %v", err)
	}
	return svc, p
}

var monday = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func TestRequestSnapshotsPriceAndDuration(t *testing.T) {
	svc, p := fixture(t)

	b, err := svc.Request(context.Background(), "owner-1", RequestInput{
		ProviderID: p.ID,
		PetID:      "pet-1",
		Service:    providers.ServiceWalk,
		Date:       monday,
		StartTime:  "09:00",
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if b.Status != StatusRequested {
		t.Fatalf("estado inicial incorrecto: %s", b.Status)
	}
	if b.PriceCents != 3500 || b.DurationMin != 60 {
		t.Fatalf("snapshot de precio/duración incorrecto: %+v", b)
	}
}

func TestRequestRejectsUnofferedSlot(t *testing.T) {
	svc, p := fixture(t)

	// Martes: no hay disponibilidad.
	_, err := svc.Request(context.Background(), "owner-1", RequestInput{
		ProviderID: p.ID,
		PetID:      "pet-1",
		Service:    providers.ServiceWalk,
		Date:       monday.AddDate(0, 0, 1),
		StartTime:  "09:00",
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("esperaba ErrInvalidInput, obtuve %v", err)
	}

	// Hora que no está en la regla.
	_, err = svc.Request(context.Background(), "owner-1", RequestInput{
		ProviderID: p.ID,
		PetID:      "pet-1",
		Service:    providers.ServiceWalk,
		Date:       monday,
		StartTime:  "14:00",
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("esperaba ErrInvalidInput, obtuve %v", err)
	}
}

func TestRequestDetectsConflict(t *testing.T) {
	svc, p := fixture(t)

	if _, err := svc.Request(context.Background(), "owner-1", RequestInput{
		ProviderID: p.ID, PetID: "pet-1", Service: providers.ServiceWalk, Date: monday, StartTime: "09:00",
	}); err != nil {
		t.Fatalf("primera reserva: %v", err)
	}

	// Mismo turno, otro dueño: conflicto.
	_, err := svc.Request(context.Background(), "owner-2", RequestInput{
		ProviderID: p.ID, PetID: "pet-2", Service: providers.ServiceWalk, Date: monday, StartTime: "09:00",
	})
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("esperaba ErrSlotTaken, obtuve %v", err)
	}

	// El turno de las 10:00 sigue libre (los paseos duran 60 min y el de las
	// 09:00 termina justo a las 10:00).
	if _, err := svc.Request(context.Background(), "owner-2", RequestInput{
		ProviderID: p.ID, PetID: "pet-2", Service: providers.ServiceWalk, Date: monday, StartTime: "10:00",
	}); err != nil {
		t.Fatalf("el turno contiguo debía estar libre: %v", err)
	}
}

func TestRequestRejectsSlotLostToConcurrentRequest(t *testing.T) {
	svc, p := fixture(t)

	// El escaneo de solapamientos del servicio no ve nada, pero el alta
	// condicional del storage sí: el turno se tomó en el medio.
	svc.repo.(*testRepo).conflictOnCreate = true

	_, err := svc.Request(context.Background(), "owner-1", RequestInput{
		ProviderID: p.ID, PetID: "pet-1", Service: providers.ServiceWalk, Date: monday, StartTime: "09:00",
	})
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("esperaba ErrSlotTaken, obtuve %v", err)
	}
}

func TestCancelledBookingFreesTheSlot(t *testing.T) {
	svc, p := fixture(t)

	b, err := svc.Request(context.Background(), "owner-1", RequestInput{
		ProviderID: p.ID, PetID: "pet-1", Service: providers.ServiceWalk, Date: monday, StartTime: "09:00",
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}

	if _, err := svc.Transition(context.Background(), b.ID, "owner-1", StatusCancelled, "cambio de planes"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// Cancelada: el turno vuelve a estar disponible.
	if _, err := svc.Request(context.Background(), "owner-2", RequestInput{
		ProviderID: p.ID, PetID: "pet-2", Service: providers.ServiceWalk, Date: monday, StartTime: "09:00",
	}); err != nil {
		t.Fatalf("el turno cancelado debía quedar libre: %v", err)
	}
}

func TestTransitionStateMachine(t *testing.T) {
	svc, p := fixture(t)

	b, err := svc.Request(context.Background(), "owner-1", RequestInput{
		ProviderID: p.ID, PetID: "pet-1", Service: providers.ServiceWalk, Date: monday, StartTime: "09:00",
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}

	// El dueño no puede confirmar.
	if _, err := svc.Transition(context.Background(), b.ID, "owner-1", StatusConfirmed, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("confirm por owner: esperaba ErrForbidden, obtuve %v", err)
	}

	// requested no puede saltar directo a completed.
	if _, err := svc.Transition(context.Background(), b.ID, "walker-user", StatusCompleted, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("requested->completed: esperaba ErrInvalidTransition, obtuve %v", err)
	}

	// Camino feliz: confirm -> start -> complete, todo por el proveedor.
	for _, target := range []Status{StatusConfirmed, StatusInProgress, StatusCompleted} {
		if b, err = svc.Transition(context.Background(), b.ID, "walker-user", target, ""); err != nil {
			t.Fatalf("transición a %s: %v", target, err)
		}
	}
	if !b.Status.Terminal() {
		t.Fatalf("completed debía ser terminal")
	}

	// Terminal: nada más se acepta.
	if _, err := svc.Transition(context.Background(), b.ID, "owner-1", StatusCancelled, "tarde"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("transición sobre terminal: esperaba ErrInvalidTransition, obtuve %v", err)
	}

	// Un tercero no juega.
	b2, err := svc.Request(context.Background(), "owner-1", RequestInput{
		ProviderID: p.ID, PetID: "pet-1", Service: providers.ServiceWalk, Date: monday, StartTime: "10:00",
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if _, err := svc.Transition(context.Background(), b2.ID, "intruso", StatusConfirmed, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("tercero: esperaba ErrForbidden, obtuve %v", err)
	}
}

func TestOverlapDetection(t *testing.T) {
	a := Booking{ProviderID: "p", Date: monday, StartTime: "09:00", DurationMin: 90}
	cases := []struct {
		start string
		dur   int
		want  bool
	}{
		{"09:30", 60, true},  // contenido
		{"08:00", 61, true},  // termina dentro
		{"10:30", 60, false}, // justo después
		{"08:00", 60, false}, // justo antes
	}
	for _, tc := range cases {
		other := Booking{ProviderID: "p", Date: monday, StartTime: tc.start, DurationMin: tc.dur}
		if got := a.Overlaps(other); got != tc.want {
			t.Fatalf("overlap(%s+%d) = %v, esperaba %v", tc.start, tc.dur, got, tc.want)
		}
	}

	// Otro proveedor u otra fecha nunca se pisan.
	if a.Overlaps(Booking{ProviderID: "q", Date: monday, StartTime: "09:00", DurationMin: 90}) {
		t.Fatal("otro proveedor no debía pisarse")
	}
	if a.Overlaps(Booking{ProviderID: "p", Date: monday.AddDate(0, 0, 1), StartTime: "09:00", DurationMin: 90}) {
		t.Fatal("otra fecha no debía pisarse")
	}
}
