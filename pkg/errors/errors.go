package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
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

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound   = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrValidation = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal   = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	// Sync-domain errors. These never reach an HTTP response; the status
	// codes only classify severity for logs.
	ErrContextResolution = New("SYNC_CONTEXT_RESOLUTION", http.StatusFailedDependency, "school or lms context could not be resolved")
	ErrRecordDecode      = New("SYNC_RECORD_DECODE", http.StatusUnprocessableEntity, "record payload could not be decoded")
	ErrRecordResolution  = New("SYNC_RECORD_RESOLUTION", http.StatusUnprocessableEntity, "record cross-reference could not be resolved")
	ErrRecordValidation  = New("SYNC_RECORD_VALIDATION", http.StatusUnprocessableEntity, "record failed validation before persist")
	ErrPersist           = New("SYNC_PERSIST", http.StatusInternalServerError, "canonical write failed")
	ErrUnknownDispatch   = New("SYNC_UNKNOWN_DISPATCH", http.StatusBadRequest, "unrecognized dispatch discriminator")
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
