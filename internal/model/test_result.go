package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type TestResultStatus string

const (
	TestResultStatusPending    TestResultStatus = "pending"
	TestResultStatusInProgress TestResultStatus = "in-progress"
	TestResultStatusCompleted  TestResultStatus = "completed"
	TestResultStatusReviewed   TestResultStatus = "reviewed"
	TestResultStatusRejected   TestResultStatus = "rejected"
	TestResultStatusReleased   TestResultStatus = "released"
)

var testResultTransitions = map[TestResultStatus][]TestResultStatus{
	TestResultStatusPending:    {TestResultStatusInProgress},
	TestResultStatusInProgress: {TestResultStatusCompleted},
	TestResultStatusCompleted:  {TestResultStatusReviewed, TestResultStatusRejected},
	TestResultStatusRejected:   {TestResultStatusInProgress},
	TestResultStatusReviewed:   {TestResultStatusReleased},
}

// ReferenceRange is the clinically normal [Min, Max] interval for one field.
type ReferenceRange struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Unit string  `json:"unit"`
}

// RangeMap is a field→range JSONB column.
type RangeMap map[string]ReferenceRange

func (m RangeMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *RangeMap) Scan(src interface{}) error {
	return scanJSON(src, m)
}

type TestResult struct {
	Base
	SampleID        string           `db:"sample_id" json:"sample_id"`
	PatientRef      PatientRef       `db:"patient_ref" json:"patient_ref"`
	AppointmentID   *uuid.UUID       `db:"appointment_id" json:"appointment_id,omitempty"`
	ServiceID       uuid.UUID        `db:"service_id" json:"service_id"`
	TestType        string           `db:"test_type" json:"test_type"`
	Results         StringMap        `db:"results" json:"results"`
	ReferenceRanges RangeMap         `db:"reference_ranges" json:"reference_ranges"`
	Status          TestResultStatus `db:"status" json:"status"`
	IsAbnormal      bool             `db:"is_abnormal" json:"is_abnormal"`
	IsCritical      bool             `db:"is_critical" json:"is_critical"`
	CompletedAt     *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
	ReviewedBy      *uuid.UUID       `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time       `db:"reviewed_at" json:"reviewed_at,omitempty"`
	RejectionReason *string          `db:"rejection_reason" json:"rejection_reason,omitempty"`
	RejectionCount  int              `db:"rejection_count" json:"rejection_count"`
	RejectedAt      *time.Time       `db:"rejected_at" json:"rejected_at,omitempty"`
	ReleasedAt      *time.Time       `db:"released_at" json:"released_at,omitempty"`
	NotifiedPatient bool             `db:"notified_patient" json:"notified_patient"`
	Version         int              `db:"version" json:"version"`
	CreatedBy       uuid.UUID        `db:"created_by" json:"created_by"`
	LastModifiedBy  uuid.UUID        `db:"last_modified_by" json:"last_modified_by"`
}

// CanTransitionTo checks adjacency in the result state machine.
func (t *TestResult) CanTransitionTo(next TestResultStatus) bool {
	for _, allowed := range testResultTransitions[t.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// NextEntryStatus returns the technician progression target for the
// "advance" action, or empty when entry progression does not apply.
func (t *TestResult) NextEntryStatus() TestResultStatus {
	switch t.Status {
	case TestResultStatusPending:
		return TestResultStatusInProgress
	case TestResultStatusInProgress:
		return TestResultStatusCompleted
	case TestResultStatusRejected:
		return TestResultStatusInProgress
	}
	return ""
}

type CreateTestResultRequest struct {
	SubjectRef    string            `json:"subject_ref" binding:"required"`
	AppointmentID *uuid.UUID        `json:"appointment_id,omitempty"`
	ServiceID     uuid.UUID         `json:"service_id" binding:"required"`
	TestType      string            `json:"test_type" binding:"required"`
	Results       map[string]string `json:"results" binding:"required"`
	Ranges        RangeMap          `json:"reference_ranges,omitempty"`
}

type TransitionTestResultRequest struct {
	Version int               `json:"version" binding:"gte=0"`
	Reason  string            `json:"reason,omitempty"`
	Results map[string]string `json:"results,omitempty"`
}
