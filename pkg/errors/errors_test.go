package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := NewValidationError("missing service")
	assert.Equal(t, "VALIDATION: missing service", err.Error())

	wrapped := NewExternalError("submission failed", stderrors.New("timeout"))
	assert.Equal(t, "EXTERNAL: submission failed: timeout", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewInternalError("failed to save", cause)

	assert.ErrorIs(t, err, cause)
}

func TestAppError_IsSentinel(t *testing.T) {
	sentinel := NewConflictError("submission already in progress")
	wrapped := fmt.Errorf("submit: %w", NewConflictError("submission already in progress"))

	assert.ErrorIs(t, wrapped, sentinel)
	assert.NotErrorIs(t, wrapped, NewConflictError("something else"))
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, ErrorTypeNotFound, TypeOf(NewNotFoundError("quiz not found")))
	assert.Equal(t, ErrorTypeConflict, TypeOf(fmt.Errorf("wrap: %w", NewConflictError("busy"))))
	assert.Equal(t, ErrorTypeInternal, TypeOf(stderrors.New("plain")))
}

func TestIsType(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NewValidationError("bad value"))

	assert.True(t, IsType(err, ErrorTypeValidation))
	assert.False(t, IsType(err, ErrorTypeNotFound))
	assert.False(t, IsType(nil, ErrorTypeValidation))
}
