package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("PIN_001", KindUnauthorized, "Incorrect PIN", http.StatusUnauthorized),
			expected: "[PIN_001] Incorrect PIN",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", KindInternal, "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", KindInternal, "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
	assert.Nil(t, ErrWrongPin().Unwrap())
}

func TestAppError_IsMatchesCode(t *testing.T) {
	err := fmt.Errorf("accept: %w", ErrAlreadyResolved())

	assert.True(t, errors.Is(err, ErrAlreadyResolved()))
	assert.False(t, errors.Is(err, ErrDuplicateLink()))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{"link not found", ErrLinkNotFound(), KindNotFound},
		{"duplicate link", ErrDuplicateLink(), KindConflict},
		{"already resolved", ErrAlreadyResolved(), KindConflict},
		{"wrong pin", ErrWrongPin(), KindUnauthorized},
		{"not authorized", ErrNotAuthorized(), KindUnauthorized},
		{"invalid amount", ErrInvalidAmount(), KindInvalidInput},
		{"invalid pin", ErrInvalidPin(), KindInvalidInput},
		{"profile incomplete", ErrProfileIncomplete(), KindPreconditionFailed},
		{"link required", ErrLinkRequired(), KindPreconditionFailed},
		{"wrapped", fmt.Errorf("x: %w", ErrNonZeroBalance()), KindPreconditionFailed},
		{"foreign", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
		})
	}
}

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InvalidCredentials", ErrInvalidCredentials(), "AUTH_001", 401},
		{"DuplicateCredential", ErrDuplicateCredential(), "AUTH_002", 409},
		{"InvalidToken", ErrInvalidToken(), "AUTH_003", 401},
		{"NotOwner", ErrNotOwner(), "AUTH_004", 403},
		{"NotAuthorized", ErrNotAuthorized(), "AUTH_005", 403},
		{"WrongPin", ErrWrongPin(), "PIN_001", 401},
		{"InvalidPin", ErrInvalidPin(), "PIN_002", 400},
		{"PinLocked", ErrPinLocked(), "PIN_003", 429},
		{"ProfileIncomplete", ErrProfileIncomplete(), "PRF_001", 412},
		{"ProfileAlreadyComplete", ErrProfileAlreadyComplete(), "PRF_002", 409},
		{"NotFound", ErrNotFound("Request"), "LNK_001", 404},
		{"DuplicateLink", ErrDuplicateLink(), "LNK_002", 409},
		{"LinkRequired", ErrLinkRequired(), "LNK_003", 412},
		{"NonZeroBalance", ErrNonZeroBalance(), "LNK_004", 412},
		{"AlreadyResolved", ErrAlreadyResolved(), "REQ_001", 409},
		{"DuplicatePending", ErrDuplicatePending(), "REQ_002", 409},
		{"InvalidAmount", ErrInvalidAmount(), "VAL_001", 400},
		{"Validation", Validation("bad"), "VAL_002", 400},
		{"BodyTooLarge", ErrBodyTooLarge(), "VAL_003", 413},
		{"RateLimit", ErrRateLimitExceeded(), "RATE_001", 429},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestSystemErrors(t *testing.T) {
	inner := fmt.Errorf("pg: connection closed")

	internal := InternalError(inner)
	assert.Equal(t, "SYS_001", internal.Code)
	assert.Equal(t, 500, internal.HTTPStatus)
	assert.True(t, errors.Is(internal, inner))

	encErr := ErrEncryptionFailure(inner)
	assert.Equal(t, "SYS_003", encErr.Code)
	assert.Equal(t, KindInternal, encErr.Kind)
}

func TestNotFoundEntity(t *testing.T) {
	err := ErrNotFound("Reminder")
	assert.Contains(t, err.Message, "Reminder")
	assert.Equal(t, KindNotFound, err.Kind)
}
