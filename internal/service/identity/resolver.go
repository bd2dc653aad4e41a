// Package identity decides, once per created record, whether a subject is a
// registered account or a walk-in patient. The decision is persisted as a
// typed PatientRef and never reinterpreted afterwards.
package identity

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"github.com/quantalab/lims-api/internal/model"
	"github.com/quantalab/lims-api/internal/repository"
	apperrors "github.com/quantalab/lims-api/pkg/errors"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Hints carry the optional context a caller can supply alongside the raw
// subject reference. Email is consulted when the reference itself is not an
// email; free-text names are deliberately not accepted as hints, walk-in
// identity only ever comes from an appointment's captured snapshot.
type Hints struct {
	AppointmentID *uuid.UUID
	Email         string
}

type Resolver struct {
	accounts     repository.AccountRepository
	appointments repository.AppointmentRepository
}

func NewResolver(accounts repository.AccountRepository, appointments repository.AppointmentRepository) *Resolver {
	return &Resolver{
		accounts:     accounts,
		appointments: appointments,
	}
}

// Resolve maps a raw subject reference to a typed PatientRef. The ladder is
// deterministic: account id, then email, then the appointment's captured
// snapshot. It never guesses from free text; an unresolvable subject without
// an appointment hint is an identity resolution failure, fatal to the
// creation request.
func (r *Resolver) Resolve(ctx context.Context, subjectRef string, hints Hints) (model.PatientRef, error) {
	if id, err := uuid.Parse(subjectRef); err == nil {
		account, err := r.accounts.Get(ctx, id)
		if err == nil && account.Role == model.RolePatient {
			return model.RegisteredRef(account.ID), nil
		}
		if err != nil && !apperrors.IsKind(err, apperrors.KindNotFound) {
			return model.PatientRef{}, fmt.Errorf("failed to look up account %s: %w", id, err)
		}
	} else if email := pickEmail(subjectRef, hints); email != "" {
		account, err := r.accounts.GetByEmail(ctx, email)
		if err == nil && account.Role == model.RolePatient {
			return model.RegisteredRef(account.ID), nil
		}
		if err != nil && !apperrors.IsKind(err, apperrors.KindNotFound) {
			return model.PatientRef{}, fmt.Errorf("failed to look up account by email: %w", err)
		}
	}

	if hints.AppointmentID == nil {
		return model.PatientRef{}, apperrors.NewIdentityResolution("walk-in subject requires an appointment reference")
	}

	appointment, err := r.appointments.Get(ctx, *hints.AppointmentID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return model.PatientRef{}, apperrors.NewIdentityResolution("walk-in subject requires a resolvable appointment reference")
		}
		return model.PatientRef{}, fmt.Errorf("failed to look up appointment %s: %w", hints.AppointmentID, err)
	}

	// The appointment's ref was itself resolved exactly once at booking
	// time, so adopting it is not a guess: a registered booking yields the
	// same registered ref, a walk-in booking yields its captured snapshot.
	switch {
	case appointment.PatientRef.IsRegistered():
		return model.RegisteredRef(*appointment.PatientRef.AccountID), nil
	case appointment.PatientRef.WalkIn != nil:
		return model.WalkInRef(*appointment.PatientRef.WalkIn), nil
	}

	return model.PatientRef{}, apperrors.NewIdentityResolution("appointment carries no usable patient identity")
}

// pickEmail chooses the email to try on the second rung: the subject
// reference itself when it is one, otherwise the caller's hint.
func pickEmail(subjectRef string, hints Hints) string {
	if emailPattern.MatchString(subjectRef) {
		return subjectRef
	}
	if emailPattern.MatchString(hints.Email) {
		return hints.Email
	}
	return ""
}
