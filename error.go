package sweep

import (
	"errors"
	"fmt"
)

// Application error codes.
//
// These codes classify errors for the caller: adapters map transport-level
// failures onto them and the fan-out runtime uses them to pick a retry
// policy. They are not HTTP status codes, although some map naturally.
const (
	ECANCELED    = "canceled"     // caller cancel or deadline
	ECONFLICT    = "conflict"     // action cannot be performed
	EINTERNAL    = "internal"     // internal error
	EINVALID     = "invalid"      // validation failed
	ENOTFOUND    = "not_found"    // entity does not exist
	EPERMISSION  = "permission"   // 401/403 or quota exhausted; do not retry
	ERATELIMITED = "rate_limited" // 429/202/captcha; retry with long backoff
	EUNAVAILABLE = "unavailable"  // transient network or 5xx; retry
)

// Error represents an application-specific error. Application errors can be
// unwrapped by the caller to extract the code and message.
type Error struct {
	// Machine-readable error code.
	Code string

	// Human-readable message.
	Message string

	// Wrapped error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sweep error: code=%s message=%s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("sweep error: code=%s message=%s", e.Code, e.Message)
}

// Unwrap returns the wrapped error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EINTERNAL; nil returns "".
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return "Internal error."; nil returns "".
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error."
}

// Errorf is a helper function to return an Error with a given code and
// formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError returns an Error with the given code wrapping err.
func WrapError(code string, err error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// Retryable reports whether an error's code indicates the operation may
// succeed on retry. Permission, validation, and cancellation errors never do.
func Retryable(err error) bool {
	switch ErrorCode(err) {
	case EUNAVAILABLE, ERATELIMITED:
		return true
	}
	return false
}
