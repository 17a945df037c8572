// Package apperr provides the typed error taxonomy shared by every module.
// Services return these errors and the HTTP layer maps each Kind to a status
// code and a stable machine-readable code.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindNotFound indicates a referenced entity does not exist.
	KindNotFound
	// KindValidation indicates malformed or out-of-range input.
	KindValidation
	// KindConflict indicates a duplicate creation or a lost compare-and-set race.
	KindConflict
	// KindInvalidTransition indicates a journey state machine violation.
	KindInvalidTransition
	// KindInvalidState indicates an operation not valid for the current quote status.
	KindInvalidState
	// KindExpired indicates a time-boundary violation such as an expired quote.
	KindExpired
	// KindUnavailable indicates the persistence layer is unreachable. Retriable.
	KindUnavailable
	// KindPartialFailure indicates a later step failed after an earlier step committed.
	KindPartialFailure
	// KindUnauthorized indicates a missing or mismatched credential.
	KindUnauthorized
	// KindForbidden indicates the action is not allowed for the caller.
	KindForbidden
	// KindBadRequest indicates a request that could not be decoded.
	KindBadRequest
	// KindInternal indicates an unexpected internal error.
	KindInternal
)

var kindCodes = map[Kind]string{
	KindUnknown:           "UNKNOWN",
	KindNotFound:          "NOT_FOUND",
	KindValidation:        "VALIDATION_ERROR",
	KindConflict:          "CONFLICT",
	KindInvalidTransition: "INVALID_TRANSITION",
	KindInvalidState:      "INVALID_STATE",
	KindExpired:           "EXPIRED",
	KindUnavailable:       "STORE_UNAVAILABLE",
	KindPartialFailure:    "PARTIAL_FAILURE",
	KindUnauthorized:      "UNAUTHORIZED",
	KindForbidden:         "FORBIDDEN",
	KindBadRequest:        "BAD_REQUEST",
	KindInternal:          "INTERNAL",
}

// String returns the stable code for the kind, e.g. "INVALID_STATE".
func (k Kind) String() string {
	if code, ok := kindCodes[k]; ok {
		return code
	}
	return kindCodes[KindUnknown]
}

// Error is a domain error with a typed Kind for HTTP mapping.
type Error struct {
	Kind    Kind
	Message string
	Op      string // Operation that failed (optional)
	Err     error  // Underlying error (optional)
	Details any    // Extra payload echoed to the caller (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Code returns the machine-readable code of the error kind.
func (e *Error) Code() string {
	return e.Kind.String()
}

// Retriable reports whether the caller may safely retry the same request.
func (e *Error) Retriable() bool {
	return e.Kind == KindUnavailable
}

// HTTPStatus returns the appropriate HTTP status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindBadRequest, KindInvalidTransition:
		return http.StatusBadRequest
	case KindConflict, KindInvalidState:
		return http.StatusConflict
	case KindExpired:
		return http.StatusGone
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindPartialFailure, KindInternal, KindUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp sets the operation name and returns the error.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails attaches a response payload and returns the error.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// NotFound creates a not found error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Validation creates a validation error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// Conflict creates a conflict error.
func Conflict(message string) *Error {
	return New(KindConflict, message)
}

// InvalidState creates an invalid state error.
func InvalidState(message string) *Error {
	return New(KindInvalidState, message)
}

// Expired creates an expired error.
func Expired(message string) *Error {
	return New(KindExpired, message)
}

// Unavailable wraps a storage failure as a retriable unavailability error.
func Unavailable(message string, err error) *Error {
	return Wrap(KindUnavailable, message, err)
}

// PartialFailure wraps the error of a step that failed after an earlier step committed.
func PartialFailure(message string, err error) *Error {
	return Wrap(KindPartialFailure, message, err)
}

// Unauthorized creates an unauthorized error.
func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message)
}

// Forbidden creates a forbidden error.
func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

// BadRequest creates a bad request error.
func BadRequest(message string) *Error {
	return New(KindBadRequest, message)
}

// Internal creates an internal server error.
func Internal(message string) *Error {
	return New(KindInternal, message)
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetKind extracts the error kind from an error chain.
// Returns KindUnknown if no *Error is found.
func GetKind(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindUnknown
}

// Is checks if err carries an *Error with the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
