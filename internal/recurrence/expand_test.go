package recurrence

import (
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func weekdayRule(t *testing.T, id string, days []time.Weekday, entries []Entry) Rule {
	t.Helper()
	r, err := NewRule(id, "owner-1", "pet-1", days, entries, date(2024, 1, 1), mo.None[time.Time](), true)
	require.NoError(t, err)
	return r
}

func TestExpand_ScenarioBreakfast(t *testing.T) {
	// Lunes a viernes, desayuno 08:00. 2024-01-01 es lunes.
	r1 := weekdayRule(t, "r1",
		[]time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		[]Entry{{TimeOfDay: "08:00", Label: "breakfast", PayloadRef: "food-A", Quantity: 150}},
	)

	res := Expand([]Rule{r1}, date(2024, 1, 1), nil)
	require.Len(t, res.Candidates, 1)

	got := res.Candidates[0]
	assert.Equal(t, "r1", got.RuleID)
	assert.Equal(t, "2024-01-01", DateKey(got.Date))
	assert.Equal(t, "08:00", got.TimeOfDay)
	assert.Equal(t, "breakfast", got.Label)
	assert.Equal(t, "food-A", got.PayloadRef)
	assert.Equal(t, float64(150), got.Quantity)
	assert.Equal(t, StatusScheduled, got.Status)
	assert.Empty(t, got.ID, "Expand no asigna IDs")

	// Re-ejecutar con la propia salida como existing: vacío, 1 duplicado suprimido.
	res2 := Expand([]Rule{r1}, date(2024, 1, 1), res.Candidates)
	assert.Empty(t, res2.Candidates)
	assert.Equal(t, 1, res2.DuplicatesSuppressed)
}

func TestExpand_WeekdayFilter(t *testing.T) {
	r := weekdayRule(t, "r1",
		[]time.Weekday{time.Monday, time.Wednesday, time.Friday},
		[]Entry{
			{TimeOfDay: "08:00", Label: "am", PayloadRef: "food-A", Quantity: 100},
			{TimeOfDay: "20:00", Label: "pm", PayloadRef: "food-A", Quantity: 120},
		},
	)

	// 2024-01-08 lunes ... 2024-01-14 domingo
	wantByDay := map[string]int{
		"2024-01-08": 2, // lunes
		"2024-01-09": 0, // martes
		"2024-01-10": 2, // miércoles
		"2024-01-11": 0, // jueves
		"2024-01-12": 2, // viernes
		"2024-01-13": 0, // sábado
		"2024-01-14": 0, // domingo
	}
	for d := 8; d <= 14; d++ {
		target := date(2024, 1, d)
		res := Expand([]Rule{r}, target, nil)
		assert.Len(t, res.Candidates, wantByDay[DateKey(target)], "día %s", DateKey(target))
	}
}

func TestExpand_ValidFromBoundary(t *testing.T) {
	// valid_from 2024-01-10 (miércoles), sin valid_until, todos los días.
	allDays := []time.Weekday{0, 1, 2, 3, 4, 5, 6}
	r, err := NewRule("r1", "owner-1", "pet-1", allDays,
		[]Entry{{TimeOfDay: "09:00", Label: "x", PayloadRef: "p", Quantity: 1}},
		date(2024, 1, 10), mo.None[time.Time](), true)
	require.NoError(t, err)

	assert.Empty(t, Expand([]Rule{r}, date(2024, 1, 9), nil).Candidates)
	assert.Len(t, Expand([]Rule{r}, date(2024, 1, 10), nil).Candidates, 1)
	assert.Len(t, Expand([]Rule{r}, date(2024, 1, 11), nil).Candidates, 1)
}

func TestExpand_ValidUntilInclusive(t *testing.T) {
	allDays := []time.Weekday{0, 1, 2, 3, 4, 5, 6}
	r, err := NewRule("r1", "owner-1", "pet-1", allDays,
		[]Entry{{TimeOfDay: "09:00", Label: "x", PayloadRef: "p", Quantity: 1}},
		date(2024, 1, 1), mo.Some(date(2024, 1, 15)), true)
	require.NoError(t, err)

	assert.Len(t, Expand([]Rule{r}, date(2024, 1, 15), nil).Candidates, 1, "valid_until es inclusive")
	assert.Empty(t, Expand([]Rule{r}, date(2024, 1, 16), nil).Candidates)
}

func TestExpand_InactiveRuleProducesNothing(t *testing.T) {
	r := weekdayRule(t, "r1", []time.Weekday{time.Monday},
		[]Entry{{TimeOfDay: "08:00", Label: "x", PayloadRef: "p", Quantity: 1}})
	r.Active = false

	res := Expand([]Rule{r}, date(2024, 1, 1), nil)
	assert.Empty(t, res.Candidates)
	assert.Empty(t, res.SkippedRules, "inactiva no es malformada")
}

func TestExpand_PartialFailureIsolation(t *testing.T) {
	valid := weekdayRule(t, "ok", []time.Weekday{time.Monday},
		[]Entry{{TimeOfDay: "08:00", Label: "x", PayloadRef: "p", Quantity: 1}})

	// Regla activa sin entries: malformada, se salta con warning estructurado.
	broken := Rule{
		ID:         "broken",
		OwnerID:    "owner-1",
		SubjectID:  "pet-1",
		DaysOfWeek: []time.Weekday{time.Monday},
		ValidFrom:  date(2024, 1, 1),
		Active:     true,
	}

	res := Expand([]Rule{broken, valid}, date(2024, 1, 1), nil)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "ok", res.Candidates[0].RuleID)
	require.Len(t, res.SkippedRules, 1)
	assert.Equal(t, "broken", res.SkippedRules[0].RuleID)
	assert.Contains(t, res.SkippedRules[0].Reason, "entries")
}

func TestExpand_CandidateValidation(t *testing.T) {
	r := weekdayRule(t, "r1", []time.Weekday{time.Monday}, []Entry{
		{TimeOfDay: "08:00", Label: "ok", PayloadRef: "food-A", Quantity: 100},
		{TimeOfDay: "12:00", Label: "sin payload", PayloadRef: "", Quantity: 100},
		{TimeOfDay: "18:00", Label: "sin cantidad", PayloadRef: "food-B", Quantity: 0},
	})

	res := Expand([]Rule{r}, date(2024, 1, 1), nil)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "08:00", res.Candidates[0].TimeOfDay)

	require.Len(t, res.SkippedCandidates, 2)
	assert.Equal(t, "12:00", res.SkippedCandidates[0].TimeOfDay)
	assert.Contains(t, res.SkippedCandidates[0].Reason, "payload_ref")
	assert.Equal(t, "18:00", res.SkippedCandidates[1].TimeOfDay)
	assert.Contains(t, res.SkippedCandidates[1].Reason, "quantity")
}

func TestExpand_DeterministicOrdering(t *testing.T) {
	// Dos reglas con horas cruzadas y un empate de hora entre ambas:
	// orden ascendente por hora, empate por orden de regla y de entrada.
	r1 := weekdayRule(t, "r1", []time.Weekday{time.Monday}, []Entry{
		{TimeOfDay: "20:00", Label: "r1-cena", PayloadRef: "a", Quantity: 1},
		{TimeOfDay: "08:00", Label: "r1-desayuno", PayloadRef: "a", Quantity: 1},
	})
	r2 := weekdayRule(t, "r2", []time.Weekday{time.Monday}, []Entry{
		{TimeOfDay: "08:00", Label: "r2-desayuno", PayloadRef: "b", Quantity: 1},
	})

	res := Expand([]Rule{r1, r2}, date(2024, 1, 1), nil)
	require.Len(t, res.Candidates, 3)
	assert.Equal(t, "r1-desayuno", res.Candidates[0].Label)
	assert.Equal(t, "r2-desayuno", res.Candidates[1].Label)
	assert.Equal(t, "r1-cena", res.Candidates[2].Label)

	// Determinismo: misma llamada, salida idéntica.
	res2 := Expand([]Rule{r1, r2}, date(2024, 1, 1), nil)
	assert.Equal(t, res, res2)
}

func TestExpand_DedupWithinBatch(t *testing.T) {
	// Dos entradas idénticas en la misma regla: la segunda se suprime.
	r := weekdayRule(t, "r1", []time.Weekday{time.Monday}, []Entry{
		{TimeOfDay: "08:00", Label: "a", PayloadRef: "food-A", Quantity: 100},
		{TimeOfDay: "08:00", Label: "a", PayloadRef: "food-A", Quantity: 100},
	})

	res := Expand([]Rule{r}, date(2024, 1, 1), nil)
	assert.Len(t, res.Candidates, 1)
	assert.Equal(t, 1, res.DuplicatesSuppressed)
}

func TestExpand_EmptyRules(t *testing.T) {
	res := Expand(nil, date(2024, 1, 1), nil)
	assert.Empty(t, res.Candidates)
	assert.Zero(t, res.DuplicatesSuppressed)
}

func TestNewRule_RejectsInvalidWindow(t *testing.T) {
	_, err := NewRule("r1", "o", "s", []time.Weekday{time.Monday},
		[]Entry{{TimeOfDay: "08:00", PayloadRef: "p", Quantity: 1}},
		date(2024, 2, 1), mo.Some(date(2024, 1, 1)), true)
	require.ErrorIs(t, err, ErrInvalidRule)
}

func TestNewRule_RejectsBadTimeOfDay(t *testing.T) {
	_, err := NewRule("r1", "o", "s", []time.Weekday{time.Monday},
		[]Entry{{TimeOfDay: "25:99", PayloadRef: "p", Quantity: 1}},
		date(2024, 1, 1), mo.None[time.Time](), true)
	require.ErrorIs(t, err, ErrInvalidRule)
}
