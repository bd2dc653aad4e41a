package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/quantalab/lims-api/internal/model"
)

// All repository interfaces in one file
type (
	// AccountRepository reads registered accounts. The core never writes
	// accounts; provisioning belongs to the authentication collaborator.
	AccountRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Account, error)
		GetByEmail(ctx context.Context, email string) (*model.Account, error)
	}

	ServiceRepository interface {
		Create(ctx context.Context, service *model.Service) error
		Get(ctx context.Context, id uuid.UUID) (*model.Service, error)
		GetMany(ctx context.Context, ids []uuid.UUID) ([]*model.Service, error)
		Update(ctx context.Context, service *model.Service) error
		List(ctx context.Context, activeOnly bool) ([]*model.Service, error)
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		GetByCode(ctx context.Context, code string) (*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		HasActiveBooking(ctx context.Context, accountID, serviceID uuid.UUID, date time.Time) (bool, error)
	}

	TestResultRepository interface {
		Create(ctx context.Context, result *model.TestResult) error
		Get(ctx context.Context, id uuid.UUID) (*model.TestResult, error)
		GetBySampleID(ctx context.Context, sampleID string) (*model.TestResult, error)
		// UpdateVersioned applies the mutation only when the stored version
		// matches expectedVersion, then increments it.
		UpdateVersioned(ctx context.Context, result *model.TestResult, expectedVersion int) error
		ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.TestResult, error)
		ListReleasedForAccount(ctx context.Context, accountID uuid.UUID) ([]*model.TestResult, error)
		SoftDelete(ctx context.Context, id, deletedBy uuid.UUID) error
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
