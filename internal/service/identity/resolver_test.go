package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantalab/lims-api/internal/model"
	apperrors "github.com/quantalab/lims-api/pkg/errors"
)

type fakeAccounts struct {
	byID    map[uuid.UUID]*model.Account
	byEmail map[string]*model.Account
}

func (f *fakeAccounts) Get(_ context.Context, id uuid.UUID) (*model.Account, error) {
	if account, ok := f.byID[id]; ok {
		return account, nil
	}
	return nil, apperrors.NewNotFound("account", nil)
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	if account, ok := f.byEmail[email]; ok {
		return account, nil
	}
	return nil, apperrors.NewNotFound("account", nil)
}

type fakeAppointments struct {
	byID map[uuid.UUID]*model.Appointment
}

func (f *fakeAppointments) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	if apt, ok := f.byID[id]; ok {
		return apt, nil
	}
	return nil, apperrors.NewNotFound("appointment", nil)
}

func (f *fakeAppointments) Create(context.Context, *model.Appointment) error { return nil }
func (f *fakeAppointments) GetByCode(context.Context, string) (*model.Appointment, error) {
	return nil, apperrors.NewNotFound("appointment", nil)
}
func (f *fakeAppointments) Update(context.Context, *model.Appointment) error { return nil }
func (f *fakeAppointments) Delete(context.Context, uuid.UUID) error          { return nil }
func (f *fakeAppointments) List(context.Context, *model.AppointmentFilters) ([]*model.Appointment, error) {
	return nil, nil
}
func (f *fakeAppointments) HasActiveBooking(context.Context, uuid.UUID, uuid.UUID, time.Time) (bool, error) {
	return false, nil
}

func patientAccount(email string) *model.Account {
	account := &model.Account{
		Email: email,
		Role:  model.RolePatient,
	}
	account.ID = uuid.New()
	return account
}

func TestResolveByAccountID(t *testing.T) {
	account := patientAccount("juan@example.com")
	r := NewResolver(
		&fakeAccounts{byID: map[uuid.UUID]*model.Account{account.ID: account}},
		&fakeAppointments{},
	)

	ref, err := r.Resolve(context.Background(), account.ID.String(), Hints{})
	require.NoError(t, err)
	assert.True(t, ref.IsRegistered())
	assert.Equal(t, account.ID, *ref.AccountID)
}

func TestResolveByEmail(t *testing.T) {
	account := patientAccount("maria@example.com")
	r := NewResolver(
		&fakeAccounts{byEmail: map[string]*model.Account{account.Email: account}},
		&fakeAppointments{},
	)

	ref, err := r.Resolve(context.Background(), "maria@example.com", Hints{})
	require.NoError(t, err)
	assert.True(t, ref.IsRegistered())
	assert.Equal(t, account.ID, *ref.AccountID)
}

func TestResolveByEmailHint(t *testing.T) {
	account := patientAccount("maria@example.com")
	r := NewResolver(
		&fakeAccounts{byEmail: map[string]*model.Account{account.Email: account}},
		&fakeAppointments{},
	)

	ref, err := r.Resolve(context.Background(), "Maria Santos", Hints{Email: "maria@example.com"})
	require.NoError(t, err)
	assert.True(t, ref.IsRegistered())
	assert.Equal(t, account.ID, *ref.AccountID)
}

func TestResolveStaffAccountIsNotAPatient(t *testing.T) {
	staff := &model.Account{Email: "tech@lab.example", Role: model.RoleMedTech}
	staff.ID = uuid.New()
	r := NewResolver(
		&fakeAccounts{byID: map[uuid.UUID]*model.Account{staff.ID: staff}},
		&fakeAppointments{},
	)

	_, err := r.Resolve(context.Background(), staff.ID.String(), Hints{})
	assert.True(t, apperrors.IsKind(err, apperrors.KindIdentityResolution))
}

func TestResolveUnknownSubjectWithoutHintFails(t *testing.T) {
	r := NewResolver(&fakeAccounts{}, &fakeAppointments{})

	_, err := r.Resolve(context.Background(), "somebody", Hints{})
	assert.True(t, apperrors.IsKind(err, apperrors.KindIdentityResolution))
}

func TestResolveAdoptsRegisteredAppointmentRef(t *testing.T) {
	accountID := uuid.New()
	apt := &model.Appointment{PatientRef: model.RegisteredRef(accountID)}
	apt.ID = uuid.New()
	r := NewResolver(
		&fakeAccounts{},
		&fakeAppointments{byID: map[uuid.UUID]*model.Appointment{apt.ID: apt}},
	)

	ref, err := r.Resolve(context.Background(), "walk-in label", Hints{AppointmentID: &apt.ID})
	require.NoError(t, err)
	assert.True(t, ref.IsRegistered())
	assert.Equal(t, accountID, *ref.AccountID)
}

func TestResolveAdoptsWalkInSnapshot(t *testing.T) {
	apt := &model.Appointment{
		PatientRef: model.WalkInRef(model.WalkInPatient{DisplayName: "Juan dela Cruz", Age: 42}),
	}
	apt.ID = uuid.New()
	r := NewResolver(
		&fakeAccounts{},
		&fakeAppointments{byID: map[uuid.UUID]*model.Appointment{apt.ID: apt}},
	)

	ref, err := r.Resolve(context.Background(), "Juan dela Cruz", Hints{AppointmentID: &apt.ID})
	require.NoError(t, err)
	assert.Equal(t, model.PatientRefWalkIn, ref.Kind)
	assert.Equal(t, "Juan dela Cruz", ref.WalkIn.DisplayName)
}

func TestResolveMissingAppointmentFails(t *testing.T) {
	missing := uuid.New()
	r := NewResolver(&fakeAccounts{}, &fakeAppointments{})

	_, err := r.Resolve(context.Background(), "somebody", Hints{AppointmentID: &missing})
	assert.True(t, apperrors.IsKind(err, apperrors.KindIdentityResolution))
}
