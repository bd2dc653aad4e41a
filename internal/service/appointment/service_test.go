package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantalab/lims-api/internal/model"
	"github.com/quantalab/lims-api/internal/service/identity"
	apperrors "github.com/quantalab/lims-api/pkg/errors"
)

type fakeRepo struct {
	byID          map[uuid.UUID]*model.Appointment
	activeBooking bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: make(map[uuid.UUID]*model.Appointment)}
}

func (f *fakeRepo) Create(_ context.Context, apt *model.Appointment) error {
	apt.ID = uuid.New()
	apt.Code = "APT-20260828-001"
	f.byID[apt.ID] = apt
	return nil
}

func (f *fakeRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	if apt, ok := f.byID[id]; ok {
		copied := *apt
		return &copied, nil
	}
	return nil, apperrors.NewNotFound("appointment", nil)
}

func (f *fakeRepo) GetByCode(_ context.Context, code string) (*model.Appointment, error) {
	for _, apt := range f.byID {
		if apt.Code == code {
			return apt, nil
		}
	}
	return nil, apperrors.NewNotFound("appointment", nil)
}

func (f *fakeRepo) Update(_ context.Context, apt *model.Appointment) error {
	if _, ok := f.byID[apt.ID]; !ok {
		return apperrors.NewNotFound("appointment", nil)
	}
	copied := *apt
	f.byID[apt.ID] = &copied
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.byID[id]; !ok {
		return apperrors.NewNotFound("appointment", nil)
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeRepo) List(_ context.Context, _ *model.AppointmentFilters) ([]*model.Appointment, error) {
	out := make([]*model.Appointment, 0, len(f.byID))
	for _, apt := range f.byID {
		out = append(out, apt)
	}
	return out, nil
}

func (f *fakeRepo) HasActiveBooking(context.Context, uuid.UUID, uuid.UUID, time.Time) (bool, error) {
	return f.activeBooking, nil
}

type fakeResolver struct {
	ref model.PatientRef
	err error
}

func (f *fakeResolver) Resolve(context.Context, string, identity.Hints) (model.PatientRef, error) {
	return f.ref, f.err
}

type fakeCatalog struct {
	pricePerService float64
	err             error
}

func (f *fakeCatalog) TotalPrice(_ context.Context, ids []uuid.UUID) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.pricePerService * float64(len(ids)), nil
}

type fakeAuditor struct {
	events []string
}

func (f *fakeAuditor) Record(_ context.Context, eventType string, _ model.Actor, _ uuid.UUID, _ interface{}) {
	f.events = append(f.events, eventType)
}

func staffActor() model.Actor {
	return model.Actor{ID: uuid.New(), Role: model.RoleReceptionist}
}

func newTestService(repo *fakeRepo, resolver *fakeResolver) (*Service, *fakeAuditor) {
	auditor := &fakeAuditor{}
	svc := NewService(repo, resolver, &fakeCatalog{pricePerService: 100}, auditor, nil)
	return svc, auditor
}

func validCreateRequest() *model.CreateAppointmentRequest {
	return &model.CreateAppointmentRequest{
		SubjectRef:    "juan@example.com",
		ServiceIDs:    []uuid.UUID{uuid.New()},
		ScheduledDate: "2026-09-01",
	}
}

func TestCreateRegisteredAppointment(t *testing.T) {
	accountID := uuid.New()
	repo := newFakeRepo()
	svc, auditor := newTestService(repo, &fakeResolver{ref: model.RegisteredRef(accountID)})

	apt, err := svc.Create(context.Background(), staffActor(), validCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusPending, apt.Status)
	assert.True(t, apt.PatientRef.BelongsTo(accountID))
	assert.Equal(t, 100.0, apt.Total)
	assert.NotEmpty(t, apt.Code)
	assert.Contains(t, auditor.events, model.EventAppointmentCreated)
}

func TestCreateWalkInAppointment(t *testing.T) {
	repo := newFakeRepo()
	repo.activeBooking = true
	svc, _ := newTestService(repo, &fakeResolver{err: apperrors.NewIdentityResolution("unused")})

	req := validCreateRequest()
	req.SubjectRef = ""
	req.WalkIn = &model.WalkInPatient{DisplayName: "Juan dela Cruz", Age: 42}

	apt, err := svc.Create(context.Background(), staffActor(), req)
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusWalkIn, apt.Status)
	assert.Equal(t, model.PatientRefWalkIn, apt.PatientRef.Kind)
}

func TestCreateRejectsDuplicateBooking(t *testing.T) {
	repo := newFakeRepo()
	repo.activeBooking = true
	svc, _ := newTestService(repo, &fakeResolver{ref: model.RegisteredRef(uuid.New())})

	_, err := svc.Create(context.Background(), staffActor(), validCreateRequest())
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestCreateRejectsDuplicateServices(t *testing.T) {
	svc, _ := newTestService(newFakeRepo(), &fakeResolver{ref: model.RegisteredRef(uuid.New())})

	req := validCreateRequest()
	serviceID := uuid.New()
	req.ServiceIDs = []uuid.UUID{serviceID, serviceID}

	_, err := svc.Create(context.Background(), staffActor(), req)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestCreateRejectsEmptyServices(t *testing.T) {
	svc, _ := newTestService(newFakeRepo(), &fakeResolver{ref: model.RegisteredRef(uuid.New())})

	req := validCreateRequest()
	req.ServiceIDs = nil

	_, err := svc.Create(context.Background(), staffActor(), req)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestCreateRequiresSubjectOrSnapshot(t *testing.T) {
	svc, _ := newTestService(newFakeRepo(), &fakeResolver{ref: model.RegisteredRef(uuid.New())})

	req := validCreateRequest()
	req.SubjectRef = ""

	_, err := svc.Create(context.Background(), staffActor(), req)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func seedAppointment(repo *fakeRepo, status model.AppointmentStatus) *model.Appointment {
	apt := &model.Appointment{
		PatientRef: model.RegisteredRef(uuid.New()),
		ServiceIDs: model.UUIDSlice{uuid.New()},
		Status:     status,
	}
	apt.ID = uuid.New()
	apt.Code = "APT-20260828-007"
	repo.byID[apt.ID] = apt
	return apt
}

func TestTransitionFullLifecycle(t *testing.T) {
	repo := newFakeRepo()
	svc, auditor := newTestService(repo, &fakeResolver{})
	actor := staffActor()
	apt := seedAppointment(repo, model.AppointmentStatusPending)

	for _, action := range []string{ActionConfirm, ActionCheckIn, ActionStart, ActionCheckOut} {
		var err error
		apt, err = svc.Transition(context.Background(), actor, apt.ID, action, nil)
		require.NoError(t, err, action)
	}

	assert.Equal(t, model.AppointmentStatusCompleted, apt.Status)
	assert.Equal(t, actor.ID, *apt.CheckedOutBy)
	assert.NotNil(t, apt.CheckedOutAt)
	assert.Equal(t, 4, len(auditor.events))
}

func TestTransitionConfirmMarksBillGenerated(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, &fakeResolver{})
	apt := seedAppointment(repo, model.AppointmentStatusPending)

	updated, err := svc.Transition(context.Background(), staffActor(), apt.ID, ActionConfirm, nil)
	require.NoError(t, err)
	assert.True(t, updated.BillGenerated)
}

func TestTransitionRejectsIllegalMove(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, &fakeResolver{})
	apt := seedAppointment(repo, model.AppointmentStatusCompleted)

	_, err := svc.Transition(context.Background(), staffActor(), apt.ID, ActionCheckIn, nil)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransition))
}

func TestCancelRequiresReason(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, &fakeResolver{})
	apt := seedAppointment(repo, model.AppointmentStatusPending)

	_, err := svc.Transition(context.Background(), staffActor(), apt.ID, ActionCancel, &model.TransitionPayload{})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestCancelStampsMetadata(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, &fakeResolver{})
	actor := staffActor()
	apt := seedAppointment(repo, model.AppointmentStatusConfirmed)

	updated, err := svc.Transition(context.Background(), actor, apt.ID, ActionCancel,
		&model.TransitionPayload{Reason: "patient request"})
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusCancelled, updated.Status)
	assert.Equal(t, "patient request", *updated.CancelReason)
	assert.Equal(t, actor.ID, *updated.CancelledBy)
	assert.NotNil(t, updated.CancelledAt)
}

func TestCancelTerminalAppointmentFails(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, &fakeResolver{})
	apt := seedAppointment(repo, model.AppointmentStatusNoShow)

	_, err := svc.Transition(context.Background(), staffActor(), apt.ID, ActionCancel,
		&model.TransitionPayload{Reason: "late"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransition))
}

func TestNoShowRequiresStaff(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, &fakeResolver{})
	apt := seedAppointment(repo, model.AppointmentStatusCheckedIn)

	patient := model.Actor{ID: uuid.New(), Role: model.RolePatient}
	_, err := svc.Transition(context.Background(), patient, apt.ID, ActionNoShow, nil)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))
}

func TestAssignStaff(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, &fakeResolver{})
	apt := seedAppointment(repo, model.AppointmentStatusCheckedIn)

	medTech := uuid.New()
	updated, err := svc.Transition(context.Background(), staffActor(), apt.ID, ActionAssignStaff,
		&model.TransitionPayload{MedTechID: &medTech})
	require.NoError(t, err)
	assert.Equal(t, medTech, *updated.MedTechID)
}

func TestAssignStaffToClosedAppointmentFails(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, &fakeResolver{})
	apt := seedAppointment(repo, model.AppointmentStatusCancelled)

	medTech := uuid.New()
	_, err := svc.Transition(context.Background(), staffActor(), apt.ID, ActionAssignStaff,
		&model.TransitionPayload{MedTechID: &medTech})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestUpdateFrozenAfterCheckIn(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, &fakeResolver{})
	apt := seedAppointment(repo, model.AppointmentStatusCheckedIn)

	newDate := "2026-09-15"
	_, err := svc.Update(context.Background(), staffActor(), apt.ID,
		&model.UpdateAppointmentRequest{ScheduledDate: &newDate})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestUpdateNotesAlwaysAllowed(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, &fakeResolver{})
	apt := seedAppointment(repo, model.AppointmentStatusCheckedIn)

	notes := "fasting confirmed"
	updated, err := svc.Update(context.Background(), staffActor(), apt.ID,
		&model.UpdateAppointmentRequest{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, notes, updated.Notes)
}

func TestUpdateRecomputesTotal(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, &fakeResolver{})
	apt := seedAppointment(repo, model.AppointmentStatusPending)

	updated, err := svc.Update(context.Background(), staffActor(), apt.ID,
		&model.UpdateAppointmentRequest{ServiceIDs: []uuid.UUID{uuid.New(), uuid.New()}})
	require.NoError(t, err)
	assert.Equal(t, 200.0, updated.Total)
}

func TestDeleteCompletedAppointmentFails(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, &fakeResolver{})
	apt := seedAppointment(repo, model.AppointmentStatusCompleted)

	err := svc.Delete(context.Background(), staffActor(), apt.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestDeletePendingAppointment(t *testing.T) {
	repo := newFakeRepo()
	svc, auditor := newTestService(repo, &fakeResolver{})
	apt := seedAppointment(repo, model.AppointmentStatusPending)

	require.NoError(t, svc.Delete(context.Background(), staffActor(), apt.ID))
	assert.Contains(t, auditor.events, model.EventAppointmentDeleted)

	_, err := svc.Get(context.Background(), apt.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}
