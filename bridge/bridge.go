package bridge

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/najoast/tlbridge/client"
	"github.com/najoast/tlbridge/core"
	"github.com/najoast/tlbridge/tl"
	"github.com/najoast/tlbridge/tonapi"
	"github.com/najoast/tlbridge/worker"
)

// ExecutionResult is a serialized response owned by the caller until it is
// passed to DeleteResponse.
type ExecutionResult struct {
	Data []byte
}

// Len returns the length of the serialized response.
func (r ExecutionResult) Len() int {
	return len(r.Data)
}

// Callback receives the result of Run. It is invoked exactly once per Run
// call, from the client's execution context or, when the request never
// reaches it, from the caller of Run.
type Callback func(ExecutionResult)

// Option configures a Bridge.
type Option func(*Bridge)

// WithAllocator sets the response buffer allocator.
func WithAllocator(a *Allocator) Option {
	return func(b *Bridge) {
		if a != nil {
			b.alloc = a
		}
	}
}

// WithLogger sets the bridge logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithRegistry sets the constructor registry used to decode requests.
func WithRegistry(r *tl.Registry) Option {
	return func(b *Bridge) {
		if r != nil {
			b.registry = r
		}
	}
}

// WithClientOptions sets options applied to every client created.
func WithClientOptions(opts ...client.Option) Option {
	return func(b *Bridge) {
		b.clientOpts = append(b.clientOpts, opts...)
	}
}

// Bridge adapts a worker to the handle and buffer based boundary.
type Bridge struct {
	factory    worker.Factory
	handles    *HandleManager
	alloc      *Allocator
	registry   *tl.Registry
	logger     *zap.Logger
	clientOpts []client.Option

	pending atomic.Int64
}

// New creates a bridge dispatching to factory.
func New(factory worker.Factory, opts ...Option) *Bridge {
	b := &Bridge{
		factory:  factory,
		handles:  NewHandleManager(),
		alloc:    NewAllocator(nil),
		registry: tl.DefaultRegistry,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.Named("bridge")
	b.clientOpts = append([]client.Option{client.WithLogger(b.logger)}, b.clientOpts...)
	return b
}

// CreateClient starts a client and returns its handle.
func (b *Bridge) CreateClient() (Handle, error) {
	c, err := client.New(b.factory, b.clientOpts...)
	if err != nil {
		b.logger.Error("create client failed", zap.Error(err))
		return InvalidHandle, fmt.Errorf("create client: %w", err)
	}
	h := b.handles.Allocate(c)
	b.logger.Debug("client created", zap.Stringer("handle", h), zap.String("client", c.ID()))
	return h, nil
}

// DeleteClient unregisters h and closes its client. It returns after every
// request accepted on h has completed and the execution context has exited.
func (b *Bridge) DeleteClient(h Handle) error {
	if c, ok := b.handles.Get(h); ok && c.InExecutionContext() {
		b.logger.Error("delete client from its own callback", zap.Stringer("handle", h))
		return fmt.Errorf("delete client %s: %w", h, ErrDeleteFromCallback)
	}
	c, err := b.handles.Release(h)
	if err != nil {
		b.logger.Error("delete of unknown client", zap.Stringer("handle", h), zap.Error(err))
		return err
	}
	if err := c.Close(); err != nil {
		b.logger.Error("close client failed", zap.Stringer("handle", h), zap.Error(err))
		return err
	}
	b.logger.Debug("client deleted", zap.Stringer("handle", h))
	return nil
}

// Run decodes query and sends it to the client behind h. cb is invoked
// exactly once. When the query cannot be decoded, or h is unknown, cb runs
// before Run returns with an encoded error; the unknown handle is also
// reported as the returned error.
func (b *Bridge) Run(h Handle, query []byte, cb Callback) error {
	if cb == nil {
		b.logger.Error("run without callback", zap.Stringer("handle", h))
		return ErrNilCallback
	}

	req, err := b.registry.DecodeFunction(query)
	if err != nil {
		b.logger.Debug("run: malformed query", zap.Stringer("handle", h), zap.Int("len", len(query)), zap.Error(err))
		cb(b.encode(tonapi.ParseError(err)))
		return nil
	}

	c, ok := b.handles.Get(h)
	if !ok {
		err := fmt.Errorf("handle %s: %w", h, ErrUnknownHandle)
		b.logger.Error("run on unknown client", zap.Stringer("handle", h), zap.String("function", req.TypeName()))
		cb(b.encode(tonapi.NewError(tonapi.CodeInternal, "%v", err)))
		return err
	}

	b.logger.Debug("run", zap.Stringer("handle", h), zap.String("function", req.TypeName()), zap.Int("len", len(query)))
	b.pending.Add(1)
	c.Send(req, core.NewPromise(func(res tl.Object, err error) {
		b.pending.Add(-1)
		cb(b.encode(b.response(res, err)))
	}))
	return nil
}

// Execute decodes query and runs it on the worker's static path on the
// calling goroutine. It needs no client.
func (b *Bridge) Execute(query []byte) ExecutionResult {
	req, err := b.registry.DecodeFunction(query)
	if err != nil {
		b.logger.Debug("execute: malformed query", zap.Int("len", len(query)), zap.Error(err))
		return b.encode(tonapi.ParseError(err))
	}
	b.logger.Debug("execute", zap.String("function", req.TypeName()))
	return b.encode(client.Execute(b.factory, req))
}

// DeleteResponse releases a result obtained from Run or Execute.
func (b *Bridge) DeleteResponse(r ExecutionResult) error {
	b.logger.Debug("delete response", zap.Int("len", r.Len()))
	if err := b.alloc.Release(r.Data); err != nil {
		b.logger.Error("delete response failed", zap.Int("len", len(r.Data)), zap.Error(err))
		return err
	}
	return nil
}

// Outstanding returns the number of results not yet deleted.
func (b *Bridge) Outstanding() int {
	return b.alloc.Outstanding()
}

// Pending returns the number of Run requests whose callback has not fired.
func (b *Bridge) Pending() int {
	return int(b.pending.Load())
}

// Clients lists the live handles.
func (b *Bridge) Clients() []HandleInfo {
	return b.handles.List()
}

// Allocator returns the response buffer allocator.
func (b *Bridge) Allocator() *Allocator {
	return b.alloc
}

// Close deletes every live client. It is meant for process shutdown.
func (b *Bridge) Close() error {
	var first error
	for _, info := range b.handles.List() {
		if err := b.DeleteClient(info.Handle); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (b *Bridge) response(res tl.Object, err error) tl.Object {
	if err != nil {
		return tonapi.ErrorFromStatus(err)
	}
	if res == nil {
		return tonapi.NewError(tonapi.CodeInternal, "empty response")
	}
	return res
}

// encode serializes obj into a registered buffer. An object that cannot be
// serialized is replaced by an internal error.
func (b *Bridge) encode(obj tl.Object) (result ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("encode response panicked", zap.String("type", obj.TypeName()), zap.Any("panic", r))
			result = ExecutionResult{Data: tl.EncodeInto(
				tonapi.NewError(tonapi.CodeInternal, "failed to encode %s: %v", obj.TypeName(), r),
				b.alloc.Alloc)}
		}
	}()
	return ExecutionResult{Data: tl.EncodeInto(obj, b.alloc.Alloc)}
}
