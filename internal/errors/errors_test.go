package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowdeck/be-approval-workflows/internal/errors"
)

func TestErrorString(t *testing.T) {
	err := errors.New(errors.ErrCodeConflict, "workflow already submitted")
	assert.Equal(t, "CONFLICT: workflow already submitted", err.Error())
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := errors.Wrap(cause, errors.ErrCodeInternal, "failed to load workflow")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, errors.ErrCodeInternal, errors.Code(err))
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "not found",
			err:         errors.NotFound("workflow", "wf-1"),
			wantCode:    errors.ErrCodeNotFound,
			wantMessage: "workflow not found: wf-1",
		},
		{
			name:        "unauthorized",
			err:         errors.Unauthorized("not the creator"),
			wantCode:    errors.ErrCodeUnauthorized,
			wantMessage: "not the creator",
		},
		{
			name:        "conflict",
			err:         errors.Conflict("already cancelled"),
			wantCode:    errors.ErrCodeConflict,
			wantMessage: "already cancelled",
		},
		{
			name:        "invalid input",
			err:         errors.InvalidInput("title", "title is required"),
			wantCode:    errors.ErrCodeInvalidInput,
			wantMessage: "title: title is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, errors.Code(tt.err))
			assert.Equal(t, tt.wantMessage, errors.Message(tt.err))
		})
	}
}

func TestCodeOfWrappedError(t *testing.T) {
	inner := errors.NotFound("user", "u-9")
	outer := fmt.Errorf("resolving approver: %w", inner)

	assert.Equal(t, errors.ErrCodeNotFound, errors.Code(outer))
	assert.Equal(t, "user not found: u-9", errors.Message(outer))
}

func TestUnknownErrorMapsToInternal(t *testing.T) {
	err := stderrors.New("pq: deadlock detected")

	assert.Equal(t, errors.ErrCodeInternal, errors.Code(err))
	assert.Equal(t, "an unexpected error occurred", errors.Message(err))
}

func TestNilFields(t *testing.T) {
	err := errors.New(errors.ErrCodeInternal, "boom")
	assert.Nil(t, stderrors.Unwrap(err))
}
