package types

import (
	"errors"
)

// ErrorCode is the stable, machine-readable part of an Error. It is what
// clients switch on; messages may change.
type ErrorCode string

// Caller mistakes.
const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrUnknownDomain  ErrorCode = "UNKNOWN_DOMAIN"
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrRateLimited    ErrorCode = "RATE_LIMITED"
)

// Failures while coordinating agents.
const (
	ErrNoDomains          ErrorCode = "NO_DOMAINS"
	ErrAgentUnavailable   ErrorCode = "AGENT_UNAVAILABLE"
	ErrTimeout            ErrorCode = "TIMEOUT"
	ErrUpstreamError      ErrorCode = "UPSTREAM_ERROR"
	ErrServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrInternalError      ErrorCode = "INTERNAL_ERROR"
)

// Error is returned across package boundaries when the failure must reach an
// HTTP client intact. Cause is logged but never serialized.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"` // overrides the code's default status
	Retryable  bool      `json:"retryable"`
	Domain     string    `json:"domain,omitempty"`
	Cause      error     `json:"-"`
}

func (e *Error) Error() string {
	s := string(e.Code) + ": " + e.Message
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error with the same code, so
// errors.Is(err, &Error{Code: ErrNoDomains}) works through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError returns an Error with the given code and message. The With
// methods modify and return the same value.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewInvalidRequestError is shorthand for NewError(ErrInvalidRequest, message).
func NewInvalidRequestError(message string) *Error {
	return NewError(ErrInvalidRequest, message)
}

func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithDomain names the booking domain the error concerns.
func (e *Error) WithDomain(domain string) *Error {
	e.Domain = domain
	return e
}

// AsError finds the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// IsErrorCode reports whether err's chain holds an Error with code.
func IsErrorCode(err error, code ErrorCode) bool {
	return errors.Is(err, &Error{Code: code})
}
