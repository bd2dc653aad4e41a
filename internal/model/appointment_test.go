package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAppointmentTransitions(t *testing.T) {
	tests := []struct {
		from    AppointmentStatus
		to      AppointmentStatus
		allowed bool
	}{
		{AppointmentStatusPending, AppointmentStatusConfirmed, true},
		{AppointmentStatusPending, AppointmentStatusCheckedIn, true},
		{AppointmentStatusPending, AppointmentStatusInProgress, false},
		{AppointmentStatusConfirmed, AppointmentStatusCheckedIn, true},
		{AppointmentStatusConfirmed, AppointmentStatusPending, false},
		{AppointmentStatusWalkIn, AppointmentStatusCheckedIn, true},
		{AppointmentStatusWalkIn, AppointmentStatusConfirmed, false},
		{AppointmentStatusCheckedIn, AppointmentStatusInProgress, true},
		{AppointmentStatusCheckedIn, AppointmentStatusNoShow, true},
		{AppointmentStatusCheckedIn, AppointmentStatusCompleted, false},
		{AppointmentStatusInProgress, AppointmentStatusCompleted, true},
		{AppointmentStatusInProgress, AppointmentStatusNoShow, true},
		{AppointmentStatusCompleted, AppointmentStatusCheckedIn, false},
		{AppointmentStatusCancelled, AppointmentStatusCheckedIn, false},
		{AppointmentStatusNoShow, AppointmentStatusCheckedIn, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			a := &Appointment{Status: tt.from}
			assert.Equal(t, tt.allowed, a.CanTransitionTo(tt.to))
		})
	}
}

func TestAppointmentIsTerminal(t *testing.T) {
	terminal := []AppointmentStatus{
		AppointmentStatusCompleted,
		AppointmentStatusCancelled,
		AppointmentStatusNoShow,
	}
	for _, status := range terminal {
		assert.True(t, (&Appointment{Status: status}).IsTerminal(), string(status))
		assert.False(t, (&Appointment{Status: status}).CanBeCancelled(), string(status))
	}

	open := []AppointmentStatus{
		AppointmentStatusPending,
		AppointmentStatusConfirmed,
		AppointmentStatusWalkIn,
		AppointmentStatusCheckedIn,
		AppointmentStatusInProgress,
	}
	for _, status := range open {
		assert.False(t, (&Appointment{Status: status}).IsTerminal(), string(status))
		assert.True(t, (&Appointment{Status: status}).CanBeCancelled(), string(status))
	}
}

func TestAppointmentCanBeModified(t *testing.T) {
	assert.True(t, (&Appointment{Status: AppointmentStatusPending}).CanBeModified())
	assert.True(t, (&Appointment{Status: AppointmentStatusConfirmed}).CanBeModified())
	assert.False(t, (&Appointment{Status: AppointmentStatusCheckedIn}).CanBeModified())
	assert.False(t, (&Appointment{Status: AppointmentStatusCompleted}).CanBeModified())
}

func TestAppointmentCanBeDeleted(t *testing.T) {
	assert.False(t, (&Appointment{Status: AppointmentStatusCompleted}).CanBeDeleted())
	assert.True(t, (&Appointment{Status: AppointmentStatusCancelled}).CanBeDeleted())
	assert.True(t, (&Appointment{Status: AppointmentStatusPending}).CanBeDeleted())
}

func TestAppointmentEffectiveTotal(t *testing.T) {
	a := &Appointment{Total: 150.0}
	assert.Equal(t, 150.0, a.EffectiveTotal())

	override := 99.0
	a.TotalOverride = &override
	assert.Equal(t, 99.0, a.EffectiveTotal())
}

func TestUUIDSliceHasDuplicates(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	assert.False(t, UUIDSlice{a, b}.HasDuplicates())
	assert.True(t, UUIDSlice{a, b, a}.HasDuplicates())
	assert.False(t, UUIDSlice{}.HasDuplicates())
}
