package model

import (
	"github.com/google/uuid"
)

// Account role constants
const (
	RoleAdmin        = "admin"
	RoleReceptionist = "receptionist"
	RoleMedTech      = "medtech"
	RolePathologist  = "pathologist"
	RolePatient      = "patient"
)

// Account status constants
const (
	AccountStatusActive   = "active"
	AccountStatusInactive = "inactive"
)

// Account is a durable login identity. Registered patients carry the
// "patient" role; lab staff carry one of the staff roles.
type Account struct {
	Base
	Email         string  `json:"email" db:"email"`
	Name          string  `json:"name" db:"name"`
	Role          string  `json:"role" db:"role"`
	Status        string  `json:"status" db:"status"`
	Age           *int    `json:"age,omitempty" db:"age"`
	Sex           *string `json:"sex,omitempty" db:"sex"`
	ContactNumber *string `json:"contact_number,omitempty" db:"contact_number"`
	Address       *string `json:"address,omitempty" db:"address"`
}

// Actor identifies who performs an operation. It is supplied by the
// authentication collaborator on every call.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Role string    `json:"role"`
}

// CanReview reports whether the actor may approve, reject, or release
// test results.
func (a Actor) CanReview() bool {
	return a.Role == RolePathologist || a.Role == RoleAdmin
}

// IsStaff reports whether the actor holds any non-patient role.
func (a Actor) IsStaff() bool {
	switch a.Role {
	case RoleAdmin, RoleReceptionist, RoleMedTech, RolePathologist:
		return true
	}
	return false
}
