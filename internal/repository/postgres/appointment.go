package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/quantalab/lims-api/internal/model"
	apperrors "github.com/quantalab/lims-api/pkg/errors"
)

const (
	uniqueViolation   = "23505"
	bookingConstraint = "uq_appointments_active_booking"
)

// isBookingConflict reports whether err is a unique violation on the active
// booking index specifically. Other 23505s (the code column, for one) are
// infrastructure faults, not duplicate bookings.
func isBookingConflict(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) &&
		pqErr.Code == uniqueViolation &&
		pqErr.Constraint == bookingConstraint
}

const appointmentColumns = `
	id, code, patient_ref, service_ids, scheduled_date, scheduled_time,
	status, notes, total, total_override, bill_generated,
	medtech_id, pathologist_id,
	cancel_reason, cancelled_by, cancelled_at,
	checked_in_by, checked_in_at, checked_out_by, checked_out_at,
	created_by, last_modified_by, created_at, updated_at, deleted_at
`

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, code, patient_ref, service_ids, scheduled_date, scheduled_time,
			status, notes, total, total_override, bill_generated,
			medtech_id, pathologist_id, created_by, last_modified_by,
			booking_account_id, booking_service_id,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	appointment.ID = uuid.New()
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = time.Now()

	code, err := r.nextCode(ctx, appointment.ScheduledDate)
	if err != nil {
		return err
	}
	appointment.Code = code

	bookingAccountID, bookingServiceID := bookingKey(appointment)

	_, err = r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.Code,
		appointment.PatientRef,
		appointment.ServiceIDs,
		appointment.ScheduledDate,
		appointment.ScheduledTime,
		appointment.Status,
		appointment.Notes,
		appointment.Total,
		appointment.TotalOverride,
		appointment.BillGenerated,
		appointment.MedTechID,
		appointment.PathologistID,
		appointment.CreatedBy,
		appointment.LastModifiedBy,
		bookingAccountID,
		bookingServiceID,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		if isBookingConflict(err) {
			return apperrors.NewConflict("an active booking already exists for this patient, service and date")
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 AND deleted_at IS NULL`

	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("appointment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) GetByCode(ctx context.Context, code string) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE code = $1 AND deleted_at IS NULL`

	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("appointment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment by code: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	query := `
		UPDATE appointments
		SET service_ids = $1, scheduled_date = $2, scheduled_time = $3,
		    status = $4, notes = $5, total = $6, total_override = $7,
		    bill_generated = $8, medtech_id = $9, pathologist_id = $10,
		    cancel_reason = $11, cancelled_by = $12, cancelled_at = $13,
		    checked_in_by = $14, checked_in_at = $15,
		    checked_out_by = $16, checked_out_at = $17,
		    last_modified_by = $18,
		    booking_account_id = $19, booking_service_id = $20,
		    updated_at = $21
		WHERE id = $22 AND deleted_at IS NULL
	`
	appointment.UpdatedAt = time.Now()

	bookingAccountID, bookingServiceID := bookingKey(appointment)

	result, err := r.db.ExecContext(ctx, query,
		appointment.ServiceIDs,
		appointment.ScheduledDate,
		appointment.ScheduledTime,
		appointment.Status,
		appointment.Notes,
		appointment.Total,
		appointment.TotalOverride,
		appointment.BillGenerated,
		appointment.MedTechID,
		appointment.PathologistID,
		appointment.CancelReason,
		appointment.CancelledBy,
		appointment.CancelledAt,
		appointment.CheckedInBy,
		appointment.CheckedInAt,
		appointment.CheckedOutBy,
		appointment.CheckedOutAt,
		appointment.LastModifiedBy,
		bookingAccountID,
		bookingServiceID,
		appointment.UpdatedAt,
		appointment.ID,
	)
	if err != nil {
		if isBookingConflict(err) {
			return apperrors.NewConflict("an active booking already exists for this patient, service and date")
		}
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("appointment", nil)
	}
	return nil
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM appointments WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("appointment", nil)
	}
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE deleted_at IS NULL`
	args := []interface{}{}
	argCount := 1

	if filters != nil {
		if filters.Status != "" {
			query += fmt.Sprintf(" AND status = $%d", argCount)
			args = append(args, filters.Status)
			argCount++
		}
		if filters.AccountID != uuid.Nil {
			query += fmt.Sprintf(" AND patient_ref->>'account_id' = $%d", argCount)
			args = append(args, filters.AccountID.String())
			argCount++
		}
		if !filters.StartDate.IsZero() {
			query += fmt.Sprintf(" AND scheduled_date >= $%d", argCount)
			args = append(args, filters.StartDate)
			argCount++
		}
		if !filters.EndDate.IsZero() {
			query += fmt.Sprintf(" AND scheduled_date <= $%d", argCount)
			args = append(args, filters.EndDate)
			argCount++
		}
	}

	query += " ORDER BY scheduled_date ASC, created_at ASC"

	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) HasActiveBooking(ctx context.Context, accountID, serviceID uuid.UUID, date time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE booking_account_id = $1
			AND booking_service_id = $2
			AND scheduled_date = $3
			AND deleted_at IS NULL
		)
	`
	var exists bool
	err := r.db.GetContext(ctx, &exists, query, accountID, serviceID, date)
	if err != nil {
		return false, fmt.Errorf("failed to check active bookings: %w", err)
	}
	return exists, nil
}

// bookingKey derives the columns behind the store-level uniqueness constraint.
// Only non-terminal, single-service, registered-account bookings participate;
// everything else stores NULLs and is exempt from the partial unique index.
func bookingKey(a *model.Appointment) (*uuid.UUID, *uuid.UUID) {
	if a.IsTerminal() {
		return nil, nil
	}
	if a.Status == model.AppointmentStatusWalkIn {
		return nil, nil
	}
	if !a.PatientRef.IsRegistered() || len(a.ServiceIDs) != 1 {
		return nil, nil
	}
	serviceID := a.ServiceIDs[0]
	return a.PatientRef.AccountID, &serviceID
}

func (r *appointmentRepository) nextCode(ctx context.Context, date time.Time) (string, error) {
	seq, err := nextDailySeq(ctx, r.db, "appointment", date)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("APT-%s-%03d", date.Format("20060102"), seq), nil
}
