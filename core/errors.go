package core

import "errors"

// Actor errors
var (
	ErrActorNotStarted     = errors.New("actor is not started")
	ErrActorAlreadyStarted = errors.New("actor is already started")
	ErrActorStopped        = errors.New("actor is stopped")
	ErrNilTask             = errors.New("nil task")
	ErrJoinFromLoop        = errors.New("actor cannot wait for itself")
)
