package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending    AppointmentStatus = "pending"
	AppointmentStatusConfirmed  AppointmentStatus = "confirmed"
	AppointmentStatusCheckedIn  AppointmentStatus = "checked-in"
	AppointmentStatusInProgress AppointmentStatus = "in-progress"
	AppointmentStatusCompleted  AppointmentStatus = "completed"
	AppointmentStatusCancelled  AppointmentStatus = "cancelled"
	AppointmentStatusNoShow     AppointmentStatus = "no-show"
	AppointmentStatusWalkIn     AppointmentStatus = "walk-in"
)

// appointmentTransitions is the forward-only state machine. Cancellation is
// handled separately because it is reachable from every pre-terminal state.
var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusPending:    {AppointmentStatusConfirmed, AppointmentStatusCheckedIn},
	AppointmentStatusConfirmed:  {AppointmentStatusCheckedIn},
	AppointmentStatusWalkIn:     {AppointmentStatusCheckedIn},
	AppointmentStatusCheckedIn:  {AppointmentStatusInProgress, AppointmentStatusNoShow},
	AppointmentStatusInProgress: {AppointmentStatusCompleted, AppointmentStatusNoShow},
}

type Appointment struct {
	Base
	Code           string            `db:"code" json:"code"`
	PatientRef     PatientRef        `db:"patient_ref" json:"patient_ref"`
	ServiceIDs     UUIDSlice         `db:"service_ids" json:"service_ids"`
	ScheduledDate  time.Time         `db:"scheduled_date" json:"scheduled_date"`
	ScheduledTime  *string           `db:"scheduled_time" json:"scheduled_time,omitempty"`
	Status         AppointmentStatus `db:"status" json:"status"`
	Notes          string            `db:"notes" json:"notes,omitempty"`
	Total          float64           `db:"total" json:"total"`
	TotalOverride  *float64          `db:"total_override" json:"total_override,omitempty"`
	BillGenerated  bool              `db:"bill_generated" json:"bill_generated"`
	MedTechID      *uuid.UUID        `db:"medtech_id" json:"medtech_id,omitempty"`
	PathologistID  *uuid.UUID        `db:"pathologist_id" json:"pathologist_id,omitempty"`
	CancelReason   *string           `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CancelledBy    *uuid.UUID        `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancelledAt    *time.Time        `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CheckedInBy    *uuid.UUID        `db:"checked_in_by" json:"checked_in_by,omitempty"`
	CheckedInAt    *time.Time        `db:"checked_in_at" json:"checked_in_at,omitempty"`
	CheckedOutBy   *uuid.UUID        `db:"checked_out_by" json:"checked_out_by,omitempty"`
	CheckedOutAt   *time.Time        `db:"checked_out_at" json:"checked_out_at,omitempty"`
	CreatedBy      uuid.UUID         `db:"created_by" json:"created_by"`
	LastModifiedBy uuid.UUID         `db:"last_modified_by" json:"last_modified_by"`
}

// IsTerminal reports whether no further transition is permitted.
func (a *Appointment) IsTerminal() bool {
	switch a.Status {
	case AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusNoShow:
		return true
	}
	return false
}

// CanTransitionTo checks the forward state machine.
func (a *Appointment) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range appointmentTransitions[a.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CanBeCancelled is true for every pre-terminal state.
func (a *Appointment) CanBeCancelled() bool {
	return !a.IsTerminal()
}

// CanBeModified gates structural changes (services, date). Once a patient is
// checked in, only status-adjacent fields may change.
func (a *Appointment) CanBeModified() bool {
	return a.Status == AppointmentStatusPending || a.Status == AppointmentStatusConfirmed
}

// CanBeDeleted gates hard deletion. Completed appointments must be cancelled
// instead, so the test result trail keeps its back-reference.
func (a *Appointment) CanBeDeleted() bool {
	return a.Status != AppointmentStatusCompleted
}

// EffectiveTotal is the override when present, the derived sum otherwise.
func (a *Appointment) EffectiveTotal() float64 {
	if a.TotalOverride != nil {
		return *a.TotalOverride
	}
	return a.Total
}

type CreateAppointmentRequest struct {
	SubjectRef    string         `json:"subject_ref"`
	WalkIn        *WalkInPatient `json:"walk_in,omitempty"`
	ServiceIDs    []uuid.UUID    `json:"service_ids" binding:"required,min=1"`
	ScheduledDate string         `json:"scheduled_date" binding:"required,datetime=2006-01-02"`
	ScheduledTime *string        `json:"scheduled_time,omitempty" binding:"omitempty,datetime=15:04"`
	Notes         string         `json:"notes" binding:"max=1000"`
	TotalOverride *float64       `json:"total_override,omitempty" binding:"omitempty,gte=0"`
}

type UpdateAppointmentRequest struct {
	ServiceIDs    []uuid.UUID `json:"service_ids,omitempty"`
	ScheduledDate *string     `json:"scheduled_date,omitempty" binding:"omitempty,datetime=2006-01-02"`
	ScheduledTime *string     `json:"scheduled_time,omitempty" binding:"omitempty,datetime=15:04"`
	Notes         *string     `json:"notes,omitempty" binding:"omitempty,max=1000"`
	TotalOverride *float64    `json:"total_override,omitempty" binding:"omitempty,gte=0"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type AssignStaffRequest struct {
	MedTechID     *uuid.UUID `json:"medtech_id,omitempty"`
	PathologistID *uuid.UUID `json:"pathologist_id,omitempty"`
}

// TransitionPayload carries the optional inputs a transition action may
// need: a cancellation reason or a staff assignment.
type TransitionPayload struct {
	Reason        string     `json:"reason,omitempty"`
	MedTechID     *uuid.UUID `json:"medtech_id,omitempty"`
	PathologistID *uuid.UUID `json:"pathologist_id,omitempty"`
}

type AppointmentFilters struct {
	Status    AppointmentStatus
	AccountID uuid.UUID
	StartDate time.Time
	EndDate   time.Time
}
