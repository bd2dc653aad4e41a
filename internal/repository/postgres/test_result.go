package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quantalab/lims-api/internal/model"
	apperrors "github.com/quantalab/lims-api/pkg/errors"
)

const testResultColumns = `
	id, sample_id, patient_ref, appointment_id, service_id, test_type,
	results, reference_ranges, status, is_abnormal, is_critical,
	completed_at, reviewed_by, reviewed_at,
	rejection_reason, rejection_count, rejected_at,
	released_at, notified_patient, version,
	created_by, last_modified_by, created_at, updated_at, deleted_at
`

func (r *testResultRepository) Create(ctx context.Context, result *model.TestResult) error {
	query := `
		INSERT INTO test_results (
			id, sample_id, patient_ref, appointment_id, service_id, test_type,
			results, reference_ranges, status, is_abnormal, is_critical,
			version, created_by, last_modified_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	result.ID = uuid.New()
	result.CreatedAt = time.Now()
	result.UpdatedAt = time.Now()
	result.Version = 1

	sampleID, err := r.nextSampleID(ctx)
	if err != nil {
		return err
	}
	result.SampleID = sampleID

	_, err = r.db.ExecContext(ctx, query,
		result.ID,
		result.SampleID,
		result.PatientRef,
		result.AppointmentID,
		result.ServiceID,
		result.TestType,
		result.Results,
		result.ReferenceRanges,
		result.Status,
		result.IsAbnormal,
		result.IsCritical,
		result.Version,
		result.CreatedBy,
		result.LastModifiedBy,
		result.CreatedAt,
		result.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create test result: %w", err)
	}
	return nil
}

func (r *testResultRepository) Get(ctx context.Context, id uuid.UUID) (*model.TestResult, error) {
	query := `SELECT ` + testResultColumns + ` FROM test_results WHERE id = $1 AND deleted_at IS NULL`

	var result model.TestResult
	err := r.db.GetContext(ctx, &result, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("test result", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test result: %w", err)
	}
	return &result, nil
}

func (r *testResultRepository) GetBySampleID(ctx context.Context, sampleID string) (*model.TestResult, error) {
	query := `SELECT ` + testResultColumns + ` FROM test_results WHERE sample_id = $1 AND deleted_at IS NULL`

	var result model.TestResult
	err := r.db.GetContext(ctx, &result, query, sampleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("test result", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test result by sample id: %w", err)
	}
	return &result, nil
}

// UpdateVersioned is the optimistic-concurrency write path: the UPDATE only
// lands when the stored version still matches what the caller read.
func (r *testResultRepository) UpdateVersioned(ctx context.Context, result *model.TestResult, expectedVersion int) error {
	query := `
		UPDATE test_results
		SET results = $1, reference_ranges = $2, status = $3,
		    is_abnormal = $4, is_critical = $5,
		    completed_at = $6, reviewed_by = $7, reviewed_at = $8,
		    rejection_reason = $9, rejection_count = $10, rejected_at = $11,
		    released_at = $12, notified_patient = $13,
		    last_modified_by = $14, version = version + 1, updated_at = $15
		WHERE id = $16 AND version = $17 AND deleted_at IS NULL
	`
	result.UpdatedAt = time.Now()

	res, err := r.db.ExecContext(ctx, query,
		result.Results,
		result.ReferenceRanges,
		result.Status,
		result.IsAbnormal,
		result.IsCritical,
		result.CompletedAt,
		result.ReviewedBy,
		result.ReviewedAt,
		result.RejectionReason,
		result.RejectionCount,
		result.RejectedAt,
		result.ReleasedAt,
		result.NotifiedPatient,
		result.LastModifiedBy,
		result.UpdatedAt,
		result.ID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update test result: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		var exists bool
		if err := r.db.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM test_results WHERE id = $1 AND deleted_at IS NULL)`,
			result.ID); err != nil {
			return fmt.Errorf("failed to check test result existence: %w", err)
		}
		if exists {
			return apperrors.NewConcurrentModification("test result")
		}
		return apperrors.NewNotFound("test result", nil)
	}

	result.Version = expectedVersion + 1
	return nil
}

func (r *testResultRepository) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.TestResult, error) {
	query := `SELECT ` + testResultColumns + `
		FROM test_results
		WHERE appointment_id = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC`

	var results []*model.TestResult
	err := r.db.SelectContext(ctx, &results, query, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list test results: %w", err)
	}
	return results, nil
}

// ListReleasedForAccount implements the patient visibility rule: released
// status and a registered ref matching the account, nothing else.
func (r *testResultRepository) ListReleasedForAccount(ctx context.Context, accountID uuid.UUID) ([]*model.TestResult, error) {
	query := `SELECT ` + testResultColumns + `
		FROM test_results
		WHERE status = $1
		AND patient_ref->>'kind' = $2
		AND patient_ref->>'account_id' = $3
		AND deleted_at IS NULL
		ORDER BY released_at DESC`

	var results []*model.TestResult
	err := r.db.SelectContext(ctx, &results, query,
		model.TestResultStatusReleased,
		model.PatientRefRegistered,
		accountID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list released test results: %w", err)
	}
	return results, nil
}

func (r *testResultRepository) SoftDelete(ctx context.Context, id, deletedBy uuid.UUID) error {
	query := `
		UPDATE test_results
		SET deleted_at = $1, last_modified_by = $2, updated_at = $1
		WHERE id = $3 AND deleted_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, time.Now(), deletedBy, id)
	if err != nil {
		return fmt.Errorf("failed to soft delete test result: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("test result", nil)
	}
	return nil
}

func (r *testResultRepository) nextSampleID(ctx context.Context) (string, error) {
	now := time.Now()
	seq, err := nextDailySeq(ctx, r.db, "sample", now)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SMP-%s-%03d", now.Format("20060102"), seq), nil
}
