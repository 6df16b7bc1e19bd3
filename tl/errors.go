package tl

import (
	"errors"
	"fmt"
)

// Decode errors
var (
	ErrTruncated              = errors.New("not enough data to read")
	ErrTrailingData           = errors.New("too much data to read")
	ErrUnknownConstructor     = errors.New("unknown constructor")
	ErrUnexpectedConstructor  = errors.New("unexpected constructor")
	ErrInvalidBool            = errors.New("invalid bool constructor")
	ErrNegativeLength         = errors.New("negative length")
	ErrTooLarge               = errors.New("length exceeds remaining data")
	ErrNotAFunction           = errors.New("constructor is not a function")
	ErrEmptyBuffer            = errors.New("empty buffer")
	ErrDuplicateConstructorID = errors.New("duplicate constructor id")
)

// DecodeError describes why a buffer could not be decoded.
type DecodeError struct {
	// Offset is the position in the buffer where decoding stopped
	Offset int

	// Detail adds context such as the constructor being read
	Detail string

	// Err is one of the sentinel errors above
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("tl: decode failed at offset %d: %s: %v", e.Offset, e.Detail, e.Err)
	}
	return fmt.Sprintf("tl: decode failed at offset %d: %v", e.Offset, e.Err)
}

// Unwrap returns the underlying sentinel error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err came out of the decoder.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
