package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsKind(t *testing.T) {
	err := NewConflict("duplicate booking")

	assert.True(t, IsKind(err, KindConflict))
	assert.False(t, IsKind(err, KindValidation))
	assert.False(t, IsKind(errors.New("plain"), KindConflict))
	assert.False(t, IsKind(nil, KindConflict))
}

func TestIsKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("saving appointment: %w", NewConcurrentModification("test result"))

	assert.True(t, IsKind(err, KindConcurrentModification))
}

func TestErrorsIsMatchesOnKind(t *testing.T) {
	assert.ErrorIs(t, NewNotFound("appointment", nil), NewNotFound("anything", nil))
	assert.NotErrorIs(t, NewNotFound("appointment", nil), NewConflict("x"))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("no rows")
	err := NewNotFound("account", cause)

	assert.Contains(t, err.Error(), "account not found")
	assert.Contains(t, err.Error(), "no rows")
	assert.ErrorIs(t, err, cause)
}
