package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quantalab/lims-api/internal/model"
	"github.com/quantalab/lims-api/internal/repository"
	"github.com/quantalab/lims-api/internal/service/identity"
	apperrors "github.com/quantalab/lims-api/pkg/errors"
	"github.com/quantalab/lims-api/pkg/metrics"
)

// Transition actions accepted by Transition.
const (
	ActionConfirm     = "confirm"
	ActionCheckIn     = "checkin"
	ActionStart       = "start"
	ActionCheckOut    = "checkout"
	ActionNoShow      = "noshow"
	ActionCancel      = "cancel"
	ActionAssignStaff = "assign_staff"
)

type subjectResolver interface {
	Resolve(ctx context.Context, subjectRef string, hints identity.Hints) (model.PatientRef, error)
}

type priceCatalog interface {
	TotalPrice(ctx context.Context, ids []uuid.UUID) (float64, error)
}

type auditRecorder interface {
	Record(ctx context.Context, eventType string, actor model.Actor, entityID uuid.UUID, detail interface{})
}

type Service struct {
	repo     repository.AppointmentRepository
	resolver subjectResolver
	catalog  priceCatalog
	auditor  auditRecorder
	metrics  *metrics.Metrics
}

// NewService wires the lifecycle manager. metrics may be nil.
func NewService(repo repository.AppointmentRepository, resolver subjectResolver, catalog priceCatalog, auditor auditRecorder, m *metrics.Metrics) *Service {
	return &Service{
		repo:     repo,
		resolver: resolver,
		catalog:  catalog,
		auditor:  auditor,
		metrics:  m,
	}
}

// Create books an appointment. The subject is resolved exactly once, here.
// Walk-in bookings start in the walk-in state and skip the duplicate check;
// registered single-service bookings are checked for an active duplicate on
// the same service and date, and the store-level constraint closes the race
// the pre-check leaves open.
func (s *Service) Create(ctx context.Context, actor model.Actor, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	serviceIDs := model.UUIDSlice(req.ServiceIDs)
	if len(serviceIDs) == 0 {
		return nil, apperrors.NewValidation("at least one service is required")
	}
	if serviceIDs.HasDuplicates() {
		return nil, apperrors.NewValidation("duplicate services in booking")
	}

	scheduledDate, err := time.Parse("2006-01-02", req.ScheduledDate)
	if err != nil {
		return nil, apperrors.NewValidation("scheduled_date must be YYYY-MM-DD")
	}

	var patientRef model.PatientRef
	status := model.AppointmentStatusPending
	if req.WalkIn != nil {
		patientRef = model.WalkInRef(*req.WalkIn)
		status = model.AppointmentStatusWalkIn
	} else {
		if req.SubjectRef == "" {
			return nil, apperrors.NewValidation("subject_ref or walk_in snapshot is required")
		}
		patientRef, err = s.resolver.Resolve(ctx, req.SubjectRef, identity.Hints{})
		if err != nil {
			return nil, err
		}
	}

	total, err := s.catalog.TotalPrice(ctx, serviceIDs)
	if err != nil {
		return nil, err
	}

	apt := &model.Appointment{
		PatientRef:     patientRef,
		ServiceIDs:     serviceIDs,
		ScheduledDate:  scheduledDate,
		ScheduledTime:  req.ScheduledTime,
		Status:         status,
		Notes:          req.Notes,
		Total:          total,
		TotalOverride:  req.TotalOverride,
		CreatedBy:      actor.ID,
		LastModifiedBy: actor.ID,
	}

	// Friendly pre-check; the partial unique index is the real guard.
	if patientRef.IsRegistered() && len(serviceIDs) == 1 && status != model.AppointmentStatusWalkIn {
		exists, err := s.repo.HasActiveBooking(ctx, *patientRef.AccountID, serviceIDs[0], scheduledDate)
		if err != nil {
			return nil, fmt.Errorf("failed to check for duplicate booking: %w", err)
		}
		if exists {
			if s.metrics != nil {
				s.metrics.BookingConflicts.Inc()
			}
			return nil, apperrors.NewConflict("an active booking already exists for this patient, service and date")
		}
	}

	if err := s.repo.Create(ctx, apt); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, model.EventAppointmentCreated, actor, apt.ID, apt)
	return apt, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetByCode(ctx context.Context, code string) (*model.Appointment, error) {
	return s.repo.GetByCode(ctx, code)
}

func (s *Service) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	return s.repo.List(ctx, filters)
}

// Transition applies a staff action to the appointment state machine.
func (s *Service) Transition(ctx context.Context, actor model.Actor, id uuid.UUID, action string, payload *model.TransitionPayload) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	switch action {
	case ActionConfirm:
		if !apt.CanTransitionTo(model.AppointmentStatusConfirmed) {
			return nil, apperrors.NewInvalidTransition(string(apt.Status), string(model.AppointmentStatusConfirmed))
		}
		apt.Status = model.AppointmentStatusConfirmed
		apt.BillGenerated = true

	case ActionCheckIn:
		if !apt.CanTransitionTo(model.AppointmentStatusCheckedIn) {
			return nil, apperrors.NewInvalidTransition(string(apt.Status), string(model.AppointmentStatusCheckedIn))
		}
		apt.Status = model.AppointmentStatusCheckedIn
		apt.CheckedInBy = &actor.ID
		apt.CheckedInAt = &now

	case ActionStart:
		if !apt.CanTransitionTo(model.AppointmentStatusInProgress) {
			return nil, apperrors.NewInvalidTransition(string(apt.Status), string(model.AppointmentStatusInProgress))
		}
		apt.Status = model.AppointmentStatusInProgress

	case ActionCheckOut:
		if !apt.CanTransitionTo(model.AppointmentStatusCompleted) {
			return nil, apperrors.NewInvalidTransition(string(apt.Status), string(model.AppointmentStatusCompleted))
		}
		apt.Status = model.AppointmentStatusCompleted
		apt.CheckedOutBy = &actor.ID
		apt.CheckedOutAt = &now

	case ActionNoShow:
		if !actor.IsStaff() {
			return nil, apperrors.NewForbidden("only staff may mark a no-show")
		}
		if !apt.CanTransitionTo(model.AppointmentStatusNoShow) {
			return nil, apperrors.NewInvalidTransition(string(apt.Status), string(model.AppointmentStatusNoShow))
		}
		apt.Status = model.AppointmentStatusNoShow

	case ActionCancel:
		if payload == nil || payload.Reason == "" {
			return nil, apperrors.NewValidation("cancellation requires a reason")
		}
		if !apt.CanBeCancelled() {
			return nil, apperrors.NewInvalidTransition(string(apt.Status), string(model.AppointmentStatusCancelled))
		}
		apt.Status = model.AppointmentStatusCancelled
		apt.CancelReason = &payload.Reason
		apt.CancelledBy = &actor.ID
		apt.CancelledAt = &now

	case ActionAssignStaff:
		if payload == nil || (payload.MedTechID == nil && payload.PathologistID == nil) {
			return nil, apperrors.NewValidation("staff assignment requires a medtech or pathologist id")
		}
		if apt.IsTerminal() {
			return nil, apperrors.NewValidation("cannot assign staff to a closed appointment")
		}
		if payload.MedTechID != nil {
			apt.MedTechID = payload.MedTechID
		}
		if payload.PathologistID != nil {
			apt.PathologistID = payload.PathologistID
		}

	default:
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown action: %q", action))
	}

	apt.LastModifiedBy = actor.ID
	if err := s.repo.Update(ctx, apt); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.TransitionsTotal.WithLabelValues("appointment", action).Inc()
	}
	s.auditor.Record(ctx, model.EventAppointmentTransition, actor, apt.ID, map[string]interface{}{
		"action": action,
		"status": apt.Status,
	})
	return apt, nil
}

// Update changes structural fields. Only pending and confirmed bookings may
// be restructured; later states accept note edits only.
func (s *Service) Update(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	structural := req.ServiceIDs != nil || req.ScheduledDate != nil || req.ScheduledTime != nil
	if structural && !apt.CanBeModified() {
		return nil, apperrors.NewValidation("services and schedule are frozen once the patient has checked in")
	}

	if req.ServiceIDs != nil {
		serviceIDs := model.UUIDSlice(req.ServiceIDs)
		if len(serviceIDs) == 0 {
			return nil, apperrors.NewValidation("at least one service is required")
		}
		if serviceIDs.HasDuplicates() {
			return nil, apperrors.NewValidation("duplicate services in booking")
		}
		total, err := s.catalog.TotalPrice(ctx, serviceIDs)
		if err != nil {
			return nil, err
		}
		apt.ServiceIDs = serviceIDs
		apt.Total = total
	}
	if req.ScheduledDate != nil {
		scheduledDate, err := time.Parse("2006-01-02", *req.ScheduledDate)
		if err != nil {
			return nil, apperrors.NewValidation("scheduled_date must be YYYY-MM-DD")
		}
		apt.ScheduledDate = scheduledDate
	}
	if req.ScheduledTime != nil {
		apt.ScheduledTime = req.ScheduledTime
	}
	if req.Notes != nil {
		apt.Notes = *req.Notes
	}
	if req.TotalOverride != nil {
		apt.TotalOverride = req.TotalOverride
	}

	apt.LastModifiedBy = actor.ID
	if err := s.repo.Update(ctx, apt); err != nil {
		return nil, err
	}
	return apt, nil
}

// Delete hard-deletes a booking. Completed appointments are protected: the
// test result trail references them, so they are cancelled instead.
func (s *Service) Delete(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if !apt.CanBeDeleted() {
		return apperrors.NewValidation("completed appointments must be cancelled, not deleted")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.auditor.Record(ctx, model.EventAppointmentDeleted, actor, id, map[string]interface{}{
		"code": apt.Code,
	})
	return nil
}
