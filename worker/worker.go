package worker

import (
	"github.com/najoast/tlbridge/core"
	"github.com/najoast/tlbridge/tl"
)

// Context is the execution context a Handler lives in. Handlers use it to
// schedule deferred work, such as completing a request after a timer fires,
// back onto the context.
type Context interface {
	Post(task func()) error
}

// Factory is the worker capability: a static request path plus a
// constructor for per-client handlers.
type Factory interface {
	// Execute processes req synchronously on the calling goroutine.
	Execute(req tl.Function) tl.Object

	// NewHandler builds the handler for one client. It is called from
	// inside ctx.
	NewHandler(ctx Context) Handler
}

// Handler serves the asynchronous requests of a single client.
type Handler interface {
	// RequestAsync must complete promise exactly once, either before
	// returning or later from a task posted to the handler's Context.
	RequestAsync(req tl.Function, promise *core.Promise[tl.Object])

	// Close releases the handler. Every request still pending must be
	// completed before Close returns.
	Close()
}
