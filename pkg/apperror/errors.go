package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an AppError independently of its transport mapping.
type Kind string

const (
	KindNotFound           Kind = "NOT_FOUND"
	KindConflict           Kind = "CONFLICT"
	KindUnauthorized       Kind = "UNAUTHORIZED"
	KindInvalidInput       Kind = "INVALID_INPUT"
	KindPreconditionFailed Kind = "PRECONDITION_FAILED"
	KindInternal           Kind = "INTERNAL"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	Kind       Kind   `json:"-"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target carries the same error code, so that
// errors.Is(err, apperror.ErrWrongPin()) works across instances.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New creates a new AppError.
func New(code string, kind Kind, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Kind:       kind,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, kind Kind, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Kind:       kind,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// KindOf returns the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", KindUnauthorized, "Invalid credentials", http.StatusUnauthorized)
}

func ErrDuplicateCredential() *AppError {
	return New("AUTH_002", KindConflict, "Phone number or account is already registered", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", KindUnauthorized, "Invalid or expired token", http.StatusUnauthorized)
}

func ErrNotOwner() *AppError {
	return New("AUTH_004", KindUnauthorized, "Not allowed to modify another party's profile", http.StatusForbidden)
}

func ErrNotAuthorized() *AppError {
	return New("AUTH_005", KindUnauthorized, "Acting party is not allowed to perform this operation", http.StatusForbidden)
}

// ---- PIN (PIN) ----

func ErrWrongPin() *AppError {
	return New("PIN_001", KindUnauthorized, "Incorrect PIN", http.StatusUnauthorized)
}

func ErrInvalidPin() *AppError {
	return New("PIN_002", KindInvalidInput, "PIN must be 4 to 6 digits", http.StatusBadRequest)
}

func ErrPinLocked() *AppError {
	return New("PIN_003", KindUnauthorized, "Too many incorrect PIN attempts, try again later", http.StatusTooManyRequests)
}

// ---- Profile (PRF) ----

func ErrProfileIncomplete() *AppError {
	return New("PRF_001", KindPreconditionFailed, "Profile incomplete, set a PIN first", http.StatusPreconditionFailed)
}

func ErrProfileAlreadyComplete() *AppError {
	return New("PRF_002", KindConflict, "Profile already completed", http.StatusConflict)
}

// ---- Links (LNK) ----

func ErrNotFound(entity string) *AppError {
	return New("LNK_001", KindNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrLinkNotFound() *AppError {
	return ErrNotFound("link")
}

func ErrDuplicateLink() *AppError {
	return New("LNK_002", KindConflict, "Merchant and user are already linked", http.StatusConflict)
}

func ErrLinkRequired() *AppError {
	return New("LNK_003", KindPreconditionFailed, "Merchant and user must be linked first", http.StatusPreconditionFailed)
}

func ErrNonZeroBalance() *AppError {
	return New("LNK_004", KindPreconditionFailed, "Account still holds a non-zero balance", http.StatusPreconditionFailed)
}

// ---- Requests (REQ) ----

func ErrAlreadyResolved() *AppError {
	return New("REQ_001", KindConflict, "Already processed", http.StatusConflict)
}

func ErrDuplicatePending() *AppError {
	return New("REQ_002", KindConflict, "A pending request already exists for this pair", http.StatusConflict)
}

// ---- Validation (VAL) ----

func ErrInvalidAmount() *AppError {
	return New("VAL_001", KindInvalidInput, "Invalid amount", http.StatusBadRequest)
}

// Validation returns a VAL_002 validation error.
func Validation(message string) *AppError {
	return New("VAL_002", KindInvalidInput, message, http.StatusBadRequest)
}

func ErrBodyTooLarge() *AppError {
	return New("VAL_003", KindInvalidInput, "Request body too large", http.StatusRequestEntityTooLarge)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", KindInvalidInput, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", KindInternal, "Internal server error", http.StatusInternalServerError, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_003", KindInternal, "Encryption service failure", http.StatusInternalServerError, err)
}
