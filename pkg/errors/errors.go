package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an application error for transport mapping and retry policy.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindIdentityResolution
	KindInvalidTransition
	KindConflict
	KindConcurrentModification
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindInternal
)

// AppError represents an application error
type AppError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match on kind against another AppError.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *AppError
	return errors.As(err, &e) && e.Kind == kind
}

func NewValidation(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

func NewIdentityResolution(message string) *AppError {
	return &AppError{Kind: KindIdentityResolution, Message: message}
}

func NewInvalidTransition(from, to string) *AppError {
	return &AppError{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("invalid transition from %q to %q", from, to),
	}
}

func NewConflict(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

func NewConcurrentModification(resource string) *AppError {
	return &AppError{
		Kind:    KindConcurrentModification,
		Message: fmt.Sprintf("%s was modified concurrently, re-read and retry", resource),
	}
}

func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewUnauthorized(message string) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: message}
}

func NewForbidden(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Kind:    KindInternal,
		Message: "internal server error",
		Err:     err,
	}
}
