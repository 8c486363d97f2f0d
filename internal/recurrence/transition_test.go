package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scheduledOcc() Occurrence {
	return Occurrence{
		ID:         "occ-1",
		RuleID:     "r1",
		SubjectID:  "pet-1",
		Date:       date(2024, 1, 1),
		TimeOfDay:  "08:00",
		Label:      "breakfast",
		PayloadRef: "food-A",
		Quantity:   150,
		Status:     StatusScheduled,
	}
}

func TestTransition_Complete(t *testing.T) {
	now := time.Date(2024, 1, 1, 8, 30, 0, 0, time.UTC)

	got, err := Transition(scheduledOcc(), ActionComplete, TransitionInput{}, now)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, now, *got.CompletedAt)
}

func TestTransition_SkipWithReason(t *testing.T) {
	got, err := Transition(scheduledOcc(), ActionSkip, TransitionInput{Reason: "no tenía hambre"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, got.Status)
	assert.Equal(t, "no tenía hambre", got.SkipReason)
	assert.Nil(t, got.CompletedAt)
}

func TestTransition_ModifyReplacesSnapshot(t *testing.T) {
	got, err := Transition(scheduledOcc(), ActionModify, TransitionInput{Quantity: 80, PayloadRef: "food-B"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, StatusModified, got.Status)
	assert.Equal(t, float64(80), got.Quantity)
	assert.Equal(t, "food-B", got.PayloadRef)
}

func TestTransition_ModifyKeepsFieldsWhenEmpty(t *testing.T) {
	got, err := Transition(scheduledOcc(), ActionModify, TransitionInput{}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, StatusModified, got.Status)
	assert.Equal(t, float64(150), got.Quantity)
	assert.Equal(t, "food-A", got.PayloadRef)
}

func TestTransition_TerminalStatesAreImmutable(t *testing.T) {
	for _, terminal := range []Status{StatusCompleted, StatusSkipped, StatusModified} {
		occ := scheduledOcc()
		occ.Status = terminal

		got, err := Transition(occ, ActionComplete, TransitionInput{}, time.Now())
		require.ErrorIs(t, err, ErrInvalidTransition, "estado %s", terminal)
		assert.Equal(t, occ, got, "el registro no debe mutar en %s", terminal)
	}
}

func TestTransition_UnknownAction(t *testing.T) {
	_, err := Transition(scheduledOcc(), Action("archive"), TransitionInput{}, time.Now())
	require.ErrorIs(t, err, ErrInvalidTransition)
}
