package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	ValidationError     Code = "validation_error"
	AccountNotFound     Code = "account_not_found"
	InsufficientFunds   Code = "insufficient_funds"
	InvalidAmount       Code = "invalid_amount"
	InvalidSortField    Code = "invalid_sort_field"
	ConstraintViolation Code = "constraint_violation"
	ExternalError       Code = "external_error"
	InternalError       Code = "internal_error"
)

// Error is a tagged domain error. Field names the offending JSON field
// ("user_id", "source_id", "target_id", ...) so callers can report
// exactly which leg of an operation failed.
type Error struct {
	Code    Code   `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s (%s): %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code Code, msg string) *Error { return &Error{Code: code, Message: msg} }

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// OnField attaches the name of the request field the error refers to.
func (e *Error) OnField(field string) *Error {
	return &Error{Code: e.Code, Field: field, Message: e.Message}
}

// HTTPStatus maps the error code to the status the API surfaces.
// Constraint violations are a server-side bug when they fire after the
// engine's own pre-checks, but are reported as a client error defensively.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case AccountNotFound:
		return http.StatusNotFound
	case ValidationError, InsufficientFunds, InvalidAmount, InvalidSortField, ConstraintViolation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// IsCode reports whether err is a domain error with the given code,
// regardless of which field it was attached to.
func IsCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

var (
	ErrAccountNotFound   = New(AccountNotFound, "No user with such ID found")
	ErrInsufficientFunds = New(InsufficientFunds, "This balance would be negative after the operation")
	ErrInvalidAmount     = New(InvalidAmount, "Amount must be positive")
	ErrInvalidSortField  = New(InvalidSortField, "sort_by accepts only \"amount\" or \"date\"")
)
