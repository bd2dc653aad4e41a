package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type PatientRefKind string

const (
	PatientRefRegistered PatientRefKind = "registered"
	PatientRefWalkIn     PatientRefKind = "walk-in"
)

// WalkInPatient is a denormalized identity snapshot captured at the time of
// the encounter. It carries no account identifier.
type WalkInPatient struct {
	DisplayName   string `json:"display_name" binding:"required"`
	Age           int    `json:"age" binding:"gte=0,lte=150"`
	Sex           string `json:"sex" binding:"omitempty,sex"`
	ContactNumber string `json:"contact_number,omitempty"`
	Address       string `json:"address,omitempty"`
}

// PatientRef is a tagged union: exactly one of AccountID or WalkIn is set.
// It is resolved once, at creation time, and never reinterpreted afterwards.
type PatientRef struct {
	Kind      PatientRefKind `json:"kind"`
	AccountID *uuid.UUID     `json:"account_id,omitempty"`
	WalkIn    *WalkInPatient `json:"walk_in,omitempty"`
}

func RegisteredRef(accountID uuid.UUID) PatientRef {
	return PatientRef{Kind: PatientRefRegistered, AccountID: &accountID}
}

func WalkInRef(snapshot WalkInPatient) PatientRef {
	return PatientRef{Kind: PatientRefWalkIn, WalkIn: &snapshot}
}

// Validate enforces the exactly-one-variant invariant.
func (r PatientRef) Validate() error {
	switch r.Kind {
	case PatientRefRegistered:
		if r.AccountID == nil || *r.AccountID == uuid.Nil {
			return fmt.Errorf("registered patient ref requires an account id")
		}
		if r.WalkIn != nil {
			return fmt.Errorf("registered patient ref must not carry a walk-in snapshot")
		}
	case PatientRefWalkIn:
		if r.WalkIn == nil || r.WalkIn.DisplayName == "" {
			return fmt.Errorf("walk-in patient ref requires a named snapshot")
		}
		if r.AccountID != nil {
			return fmt.Errorf("walk-in patient ref must not carry an account id")
		}
	default:
		return fmt.Errorf("unknown patient ref kind: %q", r.Kind)
	}
	return nil
}

func (r PatientRef) IsRegistered() bool {
	return r.Kind == PatientRefRegistered && r.AccountID != nil
}

// BelongsTo reports whether the ref identifies the given registered account.
// Walk-in refs never match any account.
func (r PatientRef) BelongsTo(accountID uuid.UUID) bool {
	return r.IsRegistered() && *r.AccountID == accountID
}

// DisplayLabel returns a human-readable label for worklists and notifications.
func (r PatientRef) DisplayLabel() string {
	if r.Kind == PatientRefWalkIn && r.WalkIn != nil {
		return r.WalkIn.DisplayName
	}
	if r.AccountID != nil {
		return r.AccountID.String()
	}
	return ""
}

// Value stores the ref as a JSONB document.
func (r PatientRef) Value() (driver.Value, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(r)
}

func (r *PatientRef) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into PatientRef", src)
	}
	if err := json.Unmarshal(data, r); err != nil {
		return fmt.Errorf("failed to unmarshal patient ref: %w", err)
	}
	return r.Validate()
}
