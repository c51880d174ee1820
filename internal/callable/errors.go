package callable

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a callable error code as seen by Firebase client SDKs.
type ErrorCode string

const (
	CodeInvalidArgument ErrorCode = "invalid-argument"
	CodeUnauthenticated ErrorCode = "unauthenticated"
	CodeInternal        ErrorCode = "internal"
)

// Status returns the canonical wire status, e.g. "INVALID_ARGUMENT".
func (c ErrorCode) Status() string {
	return strings.ToUpper(strings.ReplaceAll(string(c), "-", "_"))
}

// HTTPStatus returns the HTTP status the protocol pairs with the code.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error is a structured failure returned to the caller as-is.
// Anything else a handler returns is reported as a bare internal error.
type Error struct {
	Code    ErrorCode
	Message string
}

// NewError creates an Error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
