package calendar

import (
	"strings"
	"testing"
	"time"

	"druma-petcare/internal/domain/bookings"
	"druma-petcare/internal/domain/feeding"
	"druma-petcare/internal/domain/pets"
	"druma-petcare/internal/domain/providers"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeeklyRRule(t *testing.T) {
	// La validación usa el reloj inyectado en el servicio, nunca el del sistema.
	clock := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	rule, err := weeklyRRule([]time.Weekday{time.Monday, time.Wednesday}, nil, clock)
	require.NoError(t, err)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO,WE", rule)

	until := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rule, err = weeklyRRule([]time.Weekday{time.Sunday}, &until, clock)
	require.NoError(t, err)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=SU;UNTIL=20240601T235959Z", rule)

	_, err = weeklyRRule(nil, nil, clock)
	assert.Error(t, err)
}

func TestSlotStart(t *testing.T) {
	got, err := slotStart(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "19:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 19, 30, 0, 0, time.UTC), got)

	_, err = slotStart(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "25:00")
	assert.Error(t, err)
}

func TestMealEventCarriesRecurrence(t *testing.T) {
	p := pets.Pet{ID: "pet-1", Name: "Rocky"}
	sched := feeding.Schedule{
		ID:         "sched-1",
		PetID:      "pet-1",
		DaysOfWeek: []time.Weekday{time.Monday, time.Friday},
		ValidFrom:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Active:     true,
	}
	slot := feeding.MealSlot{TimeOfDay: "08:00", Label: "desayuno", FoodRef: "food-A", QuantityGrams: 150}

	ev, err := mealEvent(p, sched, slot, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	rruleProp := ev.Props.Get(ical.PropRecurrenceRule)
	require.NotNil(t, rruleProp)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO,FR", rruleProp.Value)

	summary, err := ev.Props.Text(ical.PropSummary)
	require.NoError(t, err)
	assert.Equal(t, "Rocky: desayuno", summary)
}

func TestBookingEventEncodesAsVEVENT(t *testing.T) {
	b := bookings.Booking{
		ID:          "bk-1",
		Service:     providers.ServiceWalk,
		Date:        time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		StartTime:   "10:00",
		DurationMin: 60,
		Status:      bookings.StatusConfirmed,
	}

	ev, err := bookingEvent(b, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Children = append(cal.Children, ev.Component)

	var buf strings.Builder
	require.NoError(t, ical.NewEncoder(&buf).Encode(cal))

	out := buf.String()
	assert.Contains(t, out, "BEGIN:VEVENT")
	assert.Contains(t, out, "UID:booking-bk-1@druma")
	assert.Contains(t, out, "STATUS:CONFIRMED")
	assert.Contains(t, out, "DTSTART:20240115T100000Z")
}
