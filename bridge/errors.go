package bridge

import "errors"

var (
	// ErrUnknownHandle is returned for handles that were never created or
	// were already deleted.
	ErrUnknownHandle = errors.New("unknown client handle")

	// ErrUnknownBuffer is returned when releasing a buffer the allocator did
	// not hand out, or one that was already released.
	ErrUnknownBuffer = errors.New("unknown response buffer")

	// ErrBufferSizeMismatch is returned when a released buffer's length
	// differs from the allocated size.
	ErrBufferSizeMismatch = errors.New("response buffer size mismatch")

	// ErrNilCallback is returned by Run when no callback is given. Nothing is
	// sent to the client.
	ErrNilCallback = errors.New("nil callback")

	// ErrDeleteFromCallback is returned when a client is deleted from one of
	// its own callbacks. The client stays registered.
	ErrDeleteFromCallback = errors.New("client deleted from its own callback")
)
