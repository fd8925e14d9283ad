package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Status  int                    `json:"-"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so cloned values compare equal to their template.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) || e == nil || other == nil {
		return false
	}
	return e.Code == other.Code
}

// WithDetail returns a copy carrying an extra detail entry.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		clone.Details[k] = v
	}
	clone.Details[key] = value
	return &clone
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Internal wraps an unexpected fault without exposing it to clients.
func Internal(err error, message string) *Error {
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, message)
}

// Predefined errors for the auth flows.
var (
	ErrMissingDeviceID       = New("MISSING_DEVICE_ID", http.StatusBadRequest, "device id is required")
	ErrInvalidDeviceIDFormat = New("INVALID_DEVICE_ID_FORMAT", http.StatusBadRequest, "device id format is invalid")
	ErrValidation            = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrRateLimited           = New("RATE_LIMITED", http.StatusTooManyRequests, "too many attempts, please try again later")
	ErrInvalidCredentials    = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid username or password")
	ErrInvalidRefreshToken   = New("INVALID_OR_EXPIRED_REFRESH_TOKEN", http.StatusUnauthorized, "refresh token is invalid or expired")
	ErrUserNotFound          = New("USER_NOT_FOUND", http.StatusNotFound, "user not found")
	ErrNoTokenProvided       = New("NO_TOKEN_PROVIDED", http.StatusUnauthorized, "no token provided")
	ErrInvalidToken          = New("INVALID_TOKEN", http.StatusUnauthorized, "token is invalid")
	ErrTokenExpired          = New("TOKEN_EXPIRED", http.StatusUnauthorized, "token has expired")
	ErrDeviceChanged         = New("DEVICE_CHANGED", http.StatusUnauthorized, "token was issued for a different device, please log in again")
	ErrUnauthenticated       = New("UNAUTHENTICATED", http.StatusUnauthorized, "unauthenticated")
	ErrForbidden             = New("FORBIDDEN", http.StatusForbidden, "token lacks the required ability")
	ErrInternal              = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss             = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
