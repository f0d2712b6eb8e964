// Package errors defines the domain error type shared by services and handlers.
//
// Services return *Error values carrying a Code; handlers translate the code
// into an HTTP status with ToHTTPStatus. Infrastructure facts (not found,
// conflict) live in pkg/platform/sentinel and are wrapped here at the service
// boundary.
package errors

import (
	"errors"
	"net/http"
)

// Code classifies a domain error. Codes are stable strings used verbatim in
// API error payloads.
type Code string

const (
	CodeInternal           Code = "internal_error"
	CodeInvariantViolation Code = "invariant_violation"
	CodeValidation         Code = "validation_error"
	CodeUnauthorized       Code = "unauthorized"
	CodeBadRequest         Code = "bad_request"
	CodeNotFound           Code = "not_found"
	CodeInvalidInput       Code = "invalid_input"
	CodeForbidden          Code = "forbidden"
	CodeConflict           Code = "conflict"
	CodeInvalidRequest     Code = "invalid_request"
	CodeTimeout            Code = "timeout"
	CodeGone               Code = "gone"
)

// Error is a domain error with a code, a client-safe message and an optional cause.
type Error struct {
	Code    Code
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

// New creates a domain error without an underlying cause.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
// Wrapping a nil error returns nil.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// GetCode returns the code of the outermost domain error in the chain,
// or CodeInternal when the chain carries none.
func GetCode(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the outermost domain error in err's chain has the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is shorthand for HasCode, kept for call sites that read better as a predicate.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest, CodeInvalidInput, CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvariantViolation:
		return http.StatusConflict
	case CodeGone:
		return http.StatusGone
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
