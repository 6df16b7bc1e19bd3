package tonclient

import (
	"fmt"

	"github.com/najoast/tlbridge/tonapi"
)

// SerializationError reports a request that could not be encoded.
type SerializationError struct {
	Function string
	Err      error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize %s: %v", e.Function, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// DeserializationError reports a response that could not be decoded or was
// not of the expected type.
type DeserializationError struct {
	Function string
	Err      error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("deserialize reply to %s: %v", e.Function, e.Err)
}

func (e *DeserializationError) Unwrap() error { return e.Err }

// ExecutionError is an error object returned by the worker or the bridge.
type ExecutionError struct {
	Code    int32
	Message string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed with code %d: %s", e.Code, e.Message)
}

func executionError(e *tonapi.Error) *ExecutionError {
	return &ExecutionError{Code: e.Code, Message: e.Message}
}
