package tonapi

import (
	"errors"
	"fmt"
)

// Error codes used by the bridge and the reference worker.
const (
	CodeInvalidQuery int32 = 400
	CodeInternal     int32 = 500
)

// Messages of errors synthesized by the bridge itself.
const (
	MessageInvalidRequest = "Invalid request"
	MessageClientClosed   = "client is closed"
)

// NewError builds an error variant.
func NewError(code int32, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// InvalidRequest is reported when a nil request reaches a client.
func InvalidRequest() *Error {
	return &Error{Code: CodeInvalidQuery, Message: MessageInvalidRequest}
}

// ParseError wraps a request decode failure.
func ParseError(err error) *Error {
	return NewError(CodeInvalidQuery, "failed to parse query: %v", err)
}

// ErrorFromStatus converts any Go error into the error variant. Errors that
// already are (or wrap) *Error pass through unchanged.
func ErrorFromStatus(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewError(CodeInternal, "%v", err)
}
