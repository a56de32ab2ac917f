package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDomainError(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeNotFound, "resource not found", baseErr)

	assert.Equal(t, ErrorTypeNotFound, domainErr.Type)
	assert.Equal(t, "resource not found", domainErr.Message)
	assert.Equal(t, baseErr, domainErr.Err)
	assert.NotNil(t, domainErr.Details)
}

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *DomainError
		wantMsg string
	}{
		{
			name: "error with wrapped error",
			err: &DomainError{
				Type:    ErrorTypeStorage,
				Message: "failed to insert publication",
				Err:     errors.New("connection refused"),
			},
			wantMsg: "storage: failed to insert publication (connection refused)",
		},
		{
			name: "error without wrapped error",
			err: &DomainError{
				Type:    ErrorTypeValidation,
				Message: "invalid input",
			},
			wantMsg: "validation: invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeInternal, "internal error", baseErr)

	assert.Equal(t, baseErr, errors.Unwrap(domainErr))
}

func TestDomainError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{
			name:   "same error type",
			err:    NewDomainError(ErrorTypeNotFound, "not found", nil),
			target: ErrPublicationNotFound,
			want:   true,
		},
		{
			name:   "different error type",
			err:    NewDomainError(ErrorTypeValidation, "validation", nil),
			target: ErrPublicationNotFound,
			want:   false,
		},
		{
			name:   "not a domain error",
			err:    NewDomainError(ErrorTypeNotFound, "not found", nil),
			target: errors.New("regular error"),
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestDomainError_WithCause(t *testing.T) {
	cause := errors.New("missing row")
	err := ErrPublicationNotFound.WithCause(cause)

	assert.ErrorIs(t, err, ErrPublicationNotFound)
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, ErrPublicationNotFound.Err)

	err.WithDetail("id", "42")
	assert.Empty(t, ErrPublicationNotFound.Details)
}

func TestDomainError_WithDetail(t *testing.T) {
	err := NewDomainError(ErrorTypeValidation, "validation error", nil)

	err.WithDetail("field", "title").WithDetail("value", "")

	assert.Equal(t, "title", err.Details["field"])
	assert.Equal(t, "", err.Details["value"])
}

func TestErrorTypeHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"not found", ErrPublicationNotFound, IsNotFoundError, true},
		{"wrapped not found", fmt.Errorf("wrapped: %w", ErrPublicationNotFound), IsNotFoundError, true},
		{"validation", ErrEmptyQuery, IsValidationError, true},
		{"validation is not storage", ErrEmptyQuery, IsStorageError, false},
		{"storage", WrapStorage("insert failed", errors.New("conn reset")), IsStorageError, true},
		{"external", ErrMalformedResponse, IsExternalError, true},
		{"external is not internal", ErrMalformedResponse, IsInternalError, false},
		{"unauthorized", NewDomainError(ErrorTypeUnauthorized, "unauthorized", nil), IsUnauthorizedError, true},
		{"internal", WrapInternal("boom", nil), IsInternalError, true},
		{"regular error", errors.New("regular"), IsValidationError, false},
		{"nil error", nil, IsNotFoundError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestGetErrorType(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"not found", ErrPublicationNotFound, ErrorTypeNotFound},
		{"validation", ErrInvalidTopK, ErrorTypeValidation},
		{"storage", WrapStorage("insert failed", errors.New("conn reset")), ErrorTypeStorage},
		{"external", ErrMalformedResponse, ErrorTypeExternal},
		{"regular error", errors.New("regular"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorType(tt.err))
		})
	}
}

func TestGetErrorDetails(t *testing.T) {
	err := NewDomainError(ErrorTypeValidation, "validation error", nil)
	err.WithDetail("field", "city").WithDetail("reason", "blank")

	details := GetErrorDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, "city", details["field"])
	assert.Equal(t, "blank", details["reason"])

	assert.Nil(t, GetErrorDetails(errors.New("regular error")))
}

func TestWrapError(t *testing.T) {
	baseErr := errors.New("base error")
	wrapped := WrapError(ErrorTypeInternal, "wrapped message", baseErr)

	var domainErr *DomainError
	require.True(t, errors.As(wrapped, &domainErr))
	assert.Equal(t, ErrorTypeInternal, domainErr.Type)
	assert.Equal(t, "wrapped message", domainErr.Message)
	assert.Equal(t, baseErr, errors.Unwrap(wrapped))
}

func TestWrapInternal(t *testing.T) {
	baseErr := errors.New("database connection failed")
	wrapped := WrapInternal("failed to connect", baseErr)

	assert.True(t, IsInternalError(wrapped))
	assert.Equal(t, baseErr, errors.Unwrap(wrapped))
}

func TestWrapExternal(t *testing.T) {
	t.Run("wraps plain error", func(t *testing.T) {
		baseErr := errors.New("openai api error")
		wrapped := WrapExternal("provider request failed", baseErr)

		assert.True(t, IsExternalError(wrapped))
		assert.Equal(t, baseErr, errors.Unwrap(wrapped))
	})

	t.Run("keeps existing domain type", func(t *testing.T) {
		orig := NewDomainError(ErrorTypeValidation, "bad", nil)
		wrapped := WrapExternal("provider request failed", orig)

		assert.Same(t, orig, wrapped)
		assert.False(t, IsExternalError(wrapped))
	})
}

func TestWrapStorage(t *testing.T) {
	t.Run("wraps plain error", func(t *testing.T) {
		baseErr := errors.New("connection refused")
		wrapped := WrapStorage("failed to query publications", baseErr)

		assert.True(t, IsStorageError(wrapped))
		assert.ErrorIs(t, wrapped, baseErr)
	})

	t.Run("keeps existing domain type", func(t *testing.T) {
		orig := NewDomainError(ErrorTypeExternal, "provider down", nil)
		wrapped := WrapStorage("failed", orig)

		assert.True(t, IsExternalError(wrapped))
	})
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("Validation failed", map[string]string{
		"title": "title is required",
	})

	assert.True(t, IsValidationError(err))
	assert.Equal(t, "title is required", err.Details["title"])
}
