// Package tonclient is the typed caller side of the bridge: it serializes
// functions, submits them through the boundary and parses the replies.
package tonclient

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/najoast/tlbridge/bridge"
	"github.com/najoast/tlbridge/tl"
	"github.com/najoast/tlbridge/tonapi"
)

// Config describes how a Client is initialized.
type Config struct {
	// Verbosity is applied through the static path before the client is
	// created. Negative leaves the current verbosity alone.
	Verbosity int32

	// Options is sent with init. Nil skips initialization.
	Options *tonapi.Options

	Logger *zap.Logger
}

// Client owns one bridge handle.
type Client struct {
	bridge *bridge.Bridge
	handle bridge.Handle
	logger *zap.Logger
	info   *tonapi.OptionsInfo
}

// New creates a client on b, applying cfg. The handle is deleted again if
// initialization fails.
func New(ctx context.Context, b *bridge.Bridge, cfg Config) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.Verbosity >= 0 {
		if _, err := Execute[*tonapi.Ok](b, &tonapi.SetLogVerbosityLevel{NewVerbosityLevel: cfg.Verbosity}); err != nil {
			return nil, fmt.Errorf("set verbosity: %w", err)
		}
	}

	h, err := b.CreateClient()
	if err != nil {
		return nil, err
	}
	c := &Client{bridge: b, handle: h, logger: logger.Named("tonclient").With(zap.Stringer("handle", h))}

	if cfg.Options != nil {
		info, err := Run[*tonapi.OptionsInfo](ctx, c, &tonapi.Init{Options: cfg.Options})
		if err != nil {
			_ = b.DeleteClient(h)
			return nil, fmt.Errorf("init: %w", err)
		}
		c.info = info
	}
	return c, nil
}

// Handle returns the bridge handle of the client.
func (c *Client) Handle() bridge.Handle {
	return c.handle
}

// Info returns the reply to init, or nil when the client was not initialized.
func (c *Client) Info() *tonapi.OptionsInfo {
	return c.info
}

// Ping round-trips a ping through the client's execution context.
func (c *Client) Ping(ctx context.Context, id int64) (*tonapi.Pong, error) {
	return Run[*tonapi.Pong](ctx, c, &tonapi.Ping{PingID: id})
}

// Close deletes the handle. Outstanding requests complete first.
func (c *Client) Close() error {
	return c.bridge.DeleteClient(c.handle)
}

// Run sends fn through the client and waits for a reply of type T. When ctx
// ends first the request still completes in the background and its buffer
// is released.
func Run[T tl.Object](ctx context.Context, c *Client, fn tl.Function) (T, error) {
	var zero T
	query, err := serialize(fn)
	if err != nil {
		return zero, err
	}

	ch := make(chan reply, 1)
	runErr := c.bridge.Run(c.handle, query, func(r bridge.ExecutionResult) {
		obj, err := consume(c.bridge, r)
		ch <- reply{obj, err}
	})
	if runErr != nil {
		// The reply still arrives through the callback as an error object.
		c.logger.Debug("request rejected", zap.String("function", fn.TypeName()), zap.Error(runErr))
	}

	select {
	case r := <-ch:
		if r.err != nil {
			return zero, &DeserializationError{Function: fn.TypeName(), Err: r.err}
		}
		return as[T](fn, r.obj)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

type reply struct {
	obj tl.Object
	err error
}

// Execute runs fn on the static path of b.
func Execute[T tl.Object](b *bridge.Bridge, fn tl.Function) (T, error) {
	var zero T
	query, err := serialize(fn)
	if err != nil {
		return zero, err
	}
	obj, err := consume(b, b.Execute(query))
	if err != nil {
		return zero, &DeserializationError{Function: fn.TypeName(), Err: err}
	}
	return as[T](fn, obj)
}

func serialize(fn tl.Function) (query []byte, err error) {
	if fn == nil {
		return nil, &SerializationError{Function: "<nil>", Err: errors.New("nil function")}
	}
	defer func() {
		if r := recover(); r != nil {
			err = &SerializationError{Function: fn.TypeName(), Err: fmt.Errorf("%v", r)}
		}
	}()
	return tl.Encode(fn), nil
}

// consume decodes r and releases its buffer.
func consume(b *bridge.Bridge, r bridge.ExecutionResult) (tl.Object, error) {
	obj, err := tl.DecodeObject(r.Data)
	if relErr := b.DeleteResponse(r); relErr != nil && err == nil {
		err = relErr
	}
	return obj, err
}

func as[T tl.Object](fn tl.Function, obj tl.Object) (T, error) {
	var zero T
	if e, ok := obj.(*tonapi.Error); ok {
		return zero, executionError(e)
	}
	res, ok := obj.(T)
	if !ok {
		return zero, &DeserializationError{
			Function: fn.TypeName(),
			Err:      fmt.Errorf("unexpected reply %s, want %s", obj.TypeName(), fn.ReturnType()),
		}
	}
	return res, nil
}
