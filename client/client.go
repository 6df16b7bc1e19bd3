// Package client owns the per-client execution context: one actor goroutine
// per client, the worker handler living on it, and the request path into it.
package client

import (
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/najoast/tlbridge/core"
	"github.com/najoast/tlbridge/tl"
	"github.com/najoast/tlbridge/tonapi"
	"github.com/najoast/tlbridge/worker"
)

// Option configures a Client.
type Option func(*options)

type options struct {
	logger      *zap.Logger
	mailboxSize int
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMailboxSize sets the initial task queue capacity.
func WithMailboxSize(n int) Option {
	return func(o *options) {
		o.mailboxSize = n
	}
}

// Client is a live execution context bound to one worker handler.
type Client struct {
	id      string
	actor   *core.Actor
	logger  *zap.Logger
	closing atomic.Bool

	// Only touched from the actor goroutine.
	handler       worker.Handler
	handlerClosed bool
}

// New starts the execution context and creates the worker handler inside it.
func New(factory worker.Factory, opts ...Option) (*Client, error) {
	o := options{
		logger:      zap.NewNop(),
		mailboxSize: core.DefaultActorOptions().MailboxSize,
	}
	for _, opt := range opts {
		opt(&o)
	}

	id := uuid.NewString()
	c := &Client{
		id: id,
		actor: core.NewActor(core.ActorOptions{
			Name:        "client-" + id,
			MailboxSize: o.mailboxSize,
		}),
		logger: o.logger.Named("client").With(zap.String("client", id)),
	}

	if err := c.actor.Start(); err != nil {
		return nil, err
	}
	if err := c.actor.Post(func() { c.createHandler(factory) }); err != nil {
		_ = c.actor.Stop()
		c.actor.Join()
		return nil, fmt.Errorf("create handler: %w", err)
	}

	c.logger.Debug("client created")
	return c, nil
}

func (c *Client) createHandler(factory worker.Factory) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("worker handler construction panicked",
				zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
		}
	}()
	c.handler = factory.NewHandler(c.actor)
}

// ID returns the unique id of the client.
func (c *Client) ID() string {
	return c.id
}

// State returns the lifecycle state of the execution context.
func (c *Client) State() core.ActorState {
	return c.actor.State()
}

// Stats returns execution context statistics.
func (c *Client) Stats() core.ActorStats {
	return c.actor.Stats()
}

// Send hands req to the worker handler. promise is completed exactly once,
// from the execution context or, on early failure, before Send returns.
func (c *Client) Send(req tl.Function, promise *core.Promise[tl.Object]) {
	if req == nil {
		promise.SetError(tonapi.InvalidRequest())
		return
	}
	if c.closing.Load() {
		promise.SetError(closedError())
		return
	}
	if err := c.actor.Post(func() { c.dispatch(req, promise) }); err != nil {
		c.logger.Debug("request rejected", zap.String("function", req.TypeName()), zap.Error(err))
		promise.SetError(closedError())
	}
}

func (c *Client) dispatch(req tl.Function, promise *core.Promise[tl.Object]) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("worker panicked",
				zap.String("function", req.TypeName()),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			promise.SetError(tonapi.NewError(tonapi.CodeInternal, "worker panicked: %v", r))
		}
	}()

	switch {
	case c.handlerClosed:
		promise.SetError(closedError())
	case c.handler == nil:
		promise.SetError(tonapi.NewError(tonapi.CodeInternal, "worker handler unavailable"))
	default:
		c.handler.RequestAsync(req, promise)
	}
}

// InExecutionContext reports whether the caller runs on the client's
// execution context, i.e. inside a worker callback.
func (c *Client) InExecutionContext() bool {
	return c.actor.InLoop()
}

// Close releases the handler and stops the execution context, blocking
// until its goroutine exits. Work queued before Close runs first. Close
// fails without side effects when called from the execution context.
func (c *Client) Close() error {
	if c.actor.InLoop() {
		return fmt.Errorf("client %s: %w", c.id, core.ErrJoinFromLoop)
	}
	if !c.closing.CompareAndSwap(false, true) {
		return fmt.Errorf("client %s: %w", c.id, core.ErrActorStopped)
	}

	if err := c.actor.Post(c.releaseHandler); err != nil {
		c.logger.Error("could not post handler release", zap.Error(err))
	}
	if err := c.actor.Stop(); err != nil {
		return err
	}
	c.actor.Join()

	c.logger.Debug("client closed", zap.Uint64("tasks", c.actor.Stats().TasksProcessed))
	return nil
}

func (c *Client) releaseHandler() {
	c.handlerClosed = true
	if c.handler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("worker handler close panicked", zap.Any("panic", r))
		}
	}()
	c.handler.Close()
}

// Execute runs req on the static path of factory, on the calling goroutine.
func Execute(factory worker.Factory, req tl.Function) (result tl.Object) {
	if req == nil {
		return tonapi.InvalidRequest()
	}
	defer func() {
		if r := recover(); r != nil {
			result = tonapi.NewError(tonapi.CodeInternal, "worker panicked: %v", r)
		}
	}()
	result = factory.Execute(req)
	if result == nil {
		result = tonapi.NewError(tonapi.CodeInternal, "worker returned no result for %s", req.TypeName())
	}
	return result
}

func closedError() *tonapi.Error {
	return tonapi.NewError(tonapi.CodeInternal, tonapi.MessageClientClosed)
}
