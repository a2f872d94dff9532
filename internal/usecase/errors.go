package usecase

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrorPayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrorUpstream        ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal        ErrorCode = "INTERNAL_ERROR"
)

// Error is the typed fault returned by every Service operation. Validation
// faults carry a Message describing the violated constraint; upstream faults
// wrap the provider error in Err.
type Error struct {
	Code    ErrorCode
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Detail is the client-facing description of the fault: the constraint text
// for validation faults, the upstream error text for upstream faults.
func (e *Error) Detail() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Reason
}

// IsValidation reports whether the fault was caused by the client.
func (e *Error) IsValidation() bool {
	return e != nil && (e.Code == ErrorInvalidInput || e.Code == ErrorPayloadTooLarge)
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

func invalid(code ErrorCode, reason, message string) *Error {
	return &Error{Code: code, Reason: reason, Message: message}
}

// AsError extracts the typed fault from err. Errors that are not *Error are
// reported as INTERNAL_ERROR.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var ue *Error
	if errors.As(err, &ue) {
		return ue
	}
	return newError(ErrorInternal, "unexpected_error", err)
}

// ImageTooLarge is the fault for an image of size bytes over limit.
func ImageTooLarge(size, limit int64) *Error {
	return invalid(ErrorPayloadTooLarge, "image_too_large", imageTooLargeMessage(size, limit))
}
