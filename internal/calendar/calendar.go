// Package calendar exporta horarios de alimentación y reservas como un feed
// iCalendar, consumible por cualquier cliente de calendario.
package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"druma-petcare/internal/domain/bookings"
	"druma-petcare/internal/domain/feeding"
	"druma-petcare/internal/domain/pets"
	"druma-petcare/internal/recurrence"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"
)

const productID = "-//druma//petcare//ES"

var icsWeekdays = map[time.Weekday]string{
	time.Sunday:    "SU",
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
}

type Service struct {
	pets     *pets.Service
	feeding  *feeding.Service
	bookings *bookings.Service
	now      func() time.Time
}

func NewService(petsSvc *pets.Service, feedingSvc *feeding.Service, bookingsSvc *bookings.Service) *Service {
	return &Service{
		pets:     petsSvc,
		feeding:  feedingSvc,
		bookings: bookingsSvc,
		now:      time.Now,
	}
}

// Feed arma el calendario del usuario: un VEVENT recurrente por cada slot de
// horario activo de sus mascotas, más un VEVENT por cada reserva vigente.
func (s *Service) Feed(ctx context.Context, userID string) (*ical.Calendar, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropName, "druma petcare")

	myPets, err := s.pets.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for _, p := range myPets {
		schedules, err := s.feeding.ListSchedules(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		for _, sched := range schedules {
			if !sched.Active {
				continue
			}
			for _, slot := range sched.Slots {
				ev, err := mealEvent(p, sched, slot, now)
				if err != nil {
					continue // slot malformado: no rompe el feed
				}
				cal.Children = append(cal.Children, ev.Component)
			}
		}
	}

	bks, err := s.bookings.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, b := range bks {
		if b.Status.Terminal() {
			continue
		}
		ev, err := bookingEvent(b, now)
		if err != nil {
			continue
		}
		cal.Children = append(cal.Children, ev.Component)
	}

	return cal, nil
}

// mealEvent arma el evento recurrente de una comida del horario.
func mealEvent(p pets.Pet, sched feeding.Schedule, slot feeding.MealSlot, now time.Time) (*ical.Event, error) {
	start, err := slotStart(sched.ValidFrom, slot.TimeOfDay)
	if err != nil {
		return nil, err
	}

	rruleStr, err := weeklyRRule(sched.DaysOfWeek, sched.ValidUntil, now)
	if err != nil {
		return nil, err
	}

	ev := ical.NewEvent()
	ev.Props.SetText(ical.PropUID, fmt.Sprintf("meal-%s-%s@druma", sched.ID, strings.ReplaceAll(slot.TimeOfDay, ":", "")))
	ev.Props.SetDateTime(ical.PropDateTimeStamp, now)
	ev.Props.SetDateTime(ical.PropDateTimeStart, start)
	ev.Props.SetText(ical.PropSummary, fmt.Sprintf("%s: %s", p.Name, slot.Label))
	ev.Props.SetText(ical.PropDescription, fmt.Sprintf("%s, %.0f g", slot.FoodRef, slot.QuantityGrams))
	// RRULE es de tipo RECUR, no TEXT: SetText escaparía ';' y ','.
	rruleProp := ical.NewProp(ical.PropRecurrenceRule)
	rruleProp.Value = rruleStr
	ev.Props.Set(rruleProp)
	return ev, nil
}

// bookingEvent arma el evento puntual de una reserva.
func bookingEvent(b bookings.Booking, now time.Time) (*ical.Event, error) {
	start, err := slotStart(b.Date, b.StartTime)
	if err != nil {
		return nil, err
	}

	ev := ical.NewEvent()
	ev.Props.SetText(ical.PropUID, fmt.Sprintf("booking-%s@druma", b.ID))
	ev.Props.SetDateTime(ical.PropDateTimeStamp, now)
	ev.Props.SetDateTime(ical.PropDateTimeStart, start)
	ev.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(time.Duration(b.DurationMin)*time.Minute))
	ev.Props.SetText(ical.PropSummary, fmt.Sprintf("Reserva: %s", b.Service))
	ev.Props.SetText(ical.PropStatus, strings.ToUpper(string(b.Status)))
	return ev, nil
}

// weeklyRRule construye la RRULE semanal y la valida parseándola, para no
// emitir nunca una regla que un cliente de calendario rechace.
func weeklyRRule(days []time.Weekday, until *time.Time, now time.Time) (string, error) {
	if len(days) == 0 {
		return "", fmt.Errorf("sin días")
	}

	byday := make([]string, 0, len(days))
	for _, d := range days {
		code, ok := icsWeekdays[d]
		if !ok {
			return "", fmt.Errorf("día fuera de rango: %d", int(d))
		}
		byday = append(byday, code)
	}

	rule := "FREQ=WEEKLY;BYDAY=" + strings.Join(byday, ",")
	if until != nil {
		// "235959Z" no puede ir dentro del layout: 2/3/5/9 son tokens de Format.
		rule += ";UNTIL=" + until.UTC().Format("20060102") + "T235959Z"
	}

	full := fmt.Sprintf("DTSTART:%s\nRRULE:%s", now.UTC().Format("20060102T150405Z"), rule)
	if _, err := rrule.StrToRRuleSet(full); err != nil {
		return "", fmt.Errorf("rrule inválida %q: %w", rule, err)
	}
	return rule, nil
}

// slotStart combina fecha calendario y hora HH:MM en UTC.
func slotStart(date time.Time, hhmm string) (time.Time, error) {
	offset, err := recurrence.ParseTimeOfDay(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC).Add(offset), nil
}
