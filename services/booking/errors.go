package booking

import (
	"errors"
	"fmt"
)

// ErrorCode tags every service error so callers branch on the kind instead
// of on error text or concrete types.
type ErrorCode string

const (
	CodeInvalidInput      ErrorCode = "invalid_input"
	CodeSlotTaken         ErrorCode = "slot_taken"
	CodeNotFound          ErrorCode = "not_found"
	CodeGateway           ErrorCode = "gateway_error"
	CodeInvalidTransition ErrorCode = "invalid_transition"
	CodeInternal          ErrorCode = "internal"
)

// Error is the tagged error type returned by the booking service.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func wrapError(code ErrorCode, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the error code, defaulting to CodeInternal for untagged
// errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// Distinguishes a gateway response that parsed but lacked the success
// indicator or redirect URL from transport-level failures.
var ErrMalformedGatewayResponse = errors.New("malformed gateway response")
