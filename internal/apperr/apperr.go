// Package apperr defines the service's error taxonomy and its HTTP mapping.
package apperr

import (
	"errors"
	"net/http"
)

// Error is an application error carrying the HTTP status handlers should
// respond with.
type Error struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports malformed input. Never retried automatically.
func Validation(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: "validation_error", Message: msg}
}

// Conflict reports an availability/overlap violation or a duplicate payment.
func Conflict(msg string) *Error {
	return &Error{Status: http.StatusConflict, Code: "conflict", Message: msg}
}

// NotFound reports a missing entity.
func NotFound(msg string) *Error {
	return &Error{Status: http.StatusNotFound, Code: "not_found", Message: msg}
}

// Forbidden reports an authorization failure.
func Forbidden(msg string) *Error {
	return &Error{Status: http.StatusForbidden, Code: "forbidden", Message: msg}
}

// Precondition reports an operation attempted from an invalid state.
func Precondition(msg string) *Error {
	return &Error{Status: http.StatusPreconditionFailed, Code: "precondition_failed", Message: msg}
}

// AlreadyPaid reports a charge request for a reservation that already settled.
func AlreadyPaid() *Error {
	return &Error{Status: http.StatusConflict, Code: "already_paid", Message: "reservation is already paid"}
}

// AlreadyRefunded reports a refund request for a payment that already has one.
func AlreadyRefunded() *Error {
	return &Error{Status: http.StatusConflict, Code: "already_refunded", Message: "payment already has a refund"}
}

// Gateway wraps a payment provider failure or timeout.
func Gateway(msg string, err error) *Error {
	return &Error{Status: http.StatusBadGateway, Code: "gateway_error", Message: msg, Err: err}
}

// InvalidSignature reports a webhook whose signature did not verify. This is a
// security boundary, not a transient fault.
func InvalidSignature() *Error {
	return &Error{Status: http.StatusUnauthorized, Code: "invalid_signature", Message: "webhook signature mismatch"}
}

// HTTPStatus returns the status an error should map to; unknown errors are
// internal.
func HTTPStatus(err error) int {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Status
	}
	return http.StatusInternalServerError
}

// IsCode reports whether err is an application error with the given code.
func IsCode(err error, code string) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == code
}
