package testresult

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quantalab/lims-api/internal/model"
	"github.com/quantalab/lims-api/internal/repository"
	"github.com/quantalab/lims-api/internal/service/identity"
	"github.com/quantalab/lims-api/internal/service/refrange"
	apperrors "github.com/quantalab/lims-api/pkg/errors"
	"github.com/quantalab/lims-api/pkg/logger"
	"github.com/quantalab/lims-api/pkg/metrics"
)

// Transition actions accepted by Transition.
const (
	ActionAdvance = "advance"
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionRelease = "release"
)

type subjectResolver interface {
	Resolve(ctx context.Context, subjectRef string, hints identity.Hints) (model.PatientRef, error)
}

type auditRecorder interface {
	Record(ctx context.Context, eventType string, actor model.Actor, entityID uuid.UUID, detail interface{})
}

type releaseNotifier interface {
	SendResultReleased(ctx context.Context, recipient string, result *model.TestResult) error
}

type Service struct {
	repo     repository.TestResultRepository
	accounts repository.AccountRepository
	resolver subjectResolver
	auditor  auditRecorder
	notifier releaseNotifier
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

// NewService wires the lifecycle manager. metrics may be nil.
func NewService(
	repo repository.TestResultRepository,
	accounts repository.AccountRepository,
	resolver subjectResolver,
	auditor auditRecorder,
	notifier releaseNotifier,
	logger *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		resolver: resolver,
		auditor:  auditor,
		notifier: notifier,
		logger:   logger,
		metrics:  m,
	}
}

// Create records a new test result in the pending state. The subject is
// resolved exactly once here; every later read trusts the stored ref.
// Reference ranges default to the built-in panel for the test type when the
// request does not supply them, and the abnormality flags are computed
// immediately so a pending record is never unflagged.
func (s *Service) Create(ctx context.Context, actor model.Actor, req *model.CreateTestResultRequest) (*model.TestResult, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbidden("only staff may record results")
	}

	patientRef, err := s.resolver.Resolve(ctx, req.SubjectRef, identity.Hints{
		AppointmentID: req.AppointmentID,
	})
	if err != nil {
		return nil, err
	}

	ranges := req.Ranges
	if len(ranges) == 0 {
		ranges = refrange.DefaultRanges(req.TestType)
	}

	eval := refrange.Evaluate(req.TestType, req.Results, ranges)

	result := &model.TestResult{
		PatientRef:      patientRef,
		AppointmentID:   req.AppointmentID,
		ServiceID:       req.ServiceID,
		TestType:        req.TestType,
		Results:         req.Results,
		ReferenceRanges: ranges,
		Status:          model.TestResultStatusPending,
		IsAbnormal:      eval.IsAbnormal,
		IsCritical:      eval.IsCritical,
		CreatedBy:       actor.ID,
		LastModifiedBy:  actor.ID,
	}

	if err := s.repo.Create(ctx, result); err != nil {
		return nil, err
	}

	if eval.IsCritical {
		s.logger.Warn("critical result recorded",
			"sample_id", result.SampleID,
			"test_type", result.TestType)
	}
	s.countFlags(eval.IsAbnormal, eval.IsCritical)

	s.auditor.Record(ctx, model.EventTestResultCreated, actor, result.ID, map[string]interface{}{
		"sample_id":   result.SampleID,
		"test_type":   result.TestType,
		"is_abnormal": result.IsAbnormal,
		"is_critical": result.IsCritical,
	})
	return result, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.TestResult, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetBySampleID(ctx context.Context, sampleID string) (*model.TestResult, error) {
	return s.repo.GetBySampleID(ctx, sampleID)
}

func (s *Service) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.TestResult, error) {
	return s.repo.ListByAppointment(ctx, appointmentID)
}

// GetPatientVisibleResults returns the released results belonging to a
// registered account. Unreleased results are invisible to patients no matter
// what their flags say.
func (s *Service) GetPatientVisibleResults(ctx context.Context, accountID uuid.UUID) ([]*model.TestResult, error) {
	return s.repo.ListReleasedForAccount(ctx, accountID)
}

// Transition applies a workflow action under optimistic concurrency: the
// caller's version must match the stored one or the save is rejected.
func (s *Service) Transition(ctx context.Context, actor model.Actor, id uuid.UUID, action string, req *model.TransitionTestResultRequest) (*model.TestResult, error) {
	result, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	switch action {
	case ActionAdvance:
		if !actor.IsStaff() {
			return nil, apperrors.NewForbidden("only staff may enter results")
		}
		next := result.NextEntryStatus()
		if next == "" || !result.CanTransitionTo(next) {
			return nil, apperrors.NewInvalidTransition(string(result.Status), "next entry state")
		}
		result.Status = next
		if len(req.Results) > 0 {
			if result.Results == nil {
				result.Results = model.StringMap{}
			}
			for field, value := range req.Results {
				result.Results[field] = value
			}
		}
		if next == model.TestResultStatusCompleted && result.CompletedAt == nil {
			result.CompletedAt = &now
		}

	case ActionApprove:
		if !actor.CanReview() {
			return nil, apperrors.NewForbidden("only a pathologist may review results")
		}
		if !result.CanTransitionTo(model.TestResultStatusReviewed) {
			return nil, apperrors.NewInvalidTransition(string(result.Status), string(model.TestResultStatusReviewed))
		}
		result.Status = model.TestResultStatusReviewed
		result.ReviewedBy = &actor.ID
		result.ReviewedAt = &now

	case ActionReject:
		if !actor.CanReview() {
			return nil, apperrors.NewForbidden("only a pathologist may review results")
		}
		if req.Reason == "" {
			return nil, apperrors.NewValidation("rejection requires a reason")
		}
		if !result.CanTransitionTo(model.TestResultStatusRejected) {
			return nil, apperrors.NewInvalidTransition(string(result.Status), string(model.TestResultStatusRejected))
		}
		result.Status = model.TestResultStatusRejected
		result.RejectionReason = &req.Reason
		result.RejectionCount++
		result.RejectedAt = &now

	case ActionRelease:
		if !actor.CanReview() {
			return nil, apperrors.NewForbidden("only a pathologist may release results")
		}
		if !result.CanTransitionTo(model.TestResultStatusReleased) {
			return nil, apperrors.NewInvalidTransition(string(result.Status), string(model.TestResultStatusReleased))
		}
		result.Status = model.TestResultStatusReleased
		result.ReleasedAt = &now

	default:
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown action: %q", action))
	}

	// Flags are recomputed from scratch on every save, so a corrected value
	// clears a stale abnormal flag instead of sticking.
	eval := refrange.Evaluate(result.TestType, result.Results, result.ReferenceRanges)
	result.IsAbnormal = eval.IsAbnormal
	result.IsCritical = eval.IsCritical

	result.LastModifiedBy = actor.ID
	if err := s.repo.UpdateVersioned(ctx, result, req.Version); err != nil {
		return nil, err
	}
	s.countFlags(result.IsAbnormal, result.IsCritical)

	if s.metrics != nil {
		s.metrics.TransitionsTotal.WithLabelValues("test_result", action).Inc()
		if action == ActionRelease {
			s.metrics.ResultsReleased.Inc()
		}
	}

	s.auditor.Record(ctx, model.EventTestResultTransition, actor, result.ID, map[string]interface{}{
		"action":    action,
		"status":    result.Status,
		"sample_id": result.SampleID,
	})

	if action == ActionRelease {
		s.notifyReleased(ctx, actor, result)
	}
	return result, nil
}

// Delete soft-deletes a result; released records stay in the patient trail.
func (s *Service) Delete(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	if !actor.IsStaff() {
		return apperrors.NewForbidden("only staff may delete results")
	}

	result, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if result.Status == model.TestResultStatusReleased {
		return apperrors.NewValidation("released results cannot be deleted")
	}
	return s.repo.SoftDelete(ctx, id, actor.ID)
}

func (s *Service) countFlags(abnormal, critical bool) {
	if s.metrics == nil {
		return
	}
	if abnormal {
		s.metrics.AbnormalResultsTotal.Inc()
	}
	if critical {
		s.metrics.CriticalResultsTotal.Inc()
	}
}

// notifyReleased delivers the release notification to a registered patient.
// Walk-ins have no account and are notified out of band at the front desk.
// Delivery failures are logged, never propagated: the release already
// happened.
func (s *Service) notifyReleased(ctx context.Context, actor model.Actor, result *model.TestResult) {
	s.auditor.Record(ctx, model.EventTestResultReleased, actor, result.ID, map[string]interface{}{
		"sample_id": result.SampleID,
	})

	if !result.PatientRef.IsRegistered() {
		return
	}

	account, err := s.accounts.Get(ctx, *result.PatientRef.AccountID)
	if err != nil {
		s.logger.Error(err, "failed to load account for release notification",
			"sample_id", result.SampleID)
		return
	}

	if err := s.notifier.SendResultReleased(ctx, account.Email, result); err != nil {
		s.logger.Error(err, "failed to send release notification",
			"sample_id", result.SampleID)
		return
	}

	result.NotifiedPatient = true
	if err := s.repo.UpdateVersioned(ctx, result, result.Version); err != nil {
		s.logger.Error(err, "failed to record notification flag",
			"sample_id", result.SampleID)
	}
}
