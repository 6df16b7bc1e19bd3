package core

import (
	"context"
	"sync/atomic"
)

// Promise is a one-shot completion. The first Set* call wins and runs the
// completion function; later calls are ignored and report false.
type Promise[T any] struct {
	fn   func(value T, err error)
	done atomic.Bool
}

// NewPromise creates a Promise that calls fn exactly once on completion.
func NewPromise[T any](fn func(value T, err error)) *Promise[T] {
	return &Promise[T]{fn: fn}
}

// SetValue completes the promise with a value.
func (p *Promise[T]) SetValue(value T) bool {
	return p.Set(value, nil)
}

// SetError completes the promise with an error.
func (p *Promise[T]) SetError(err error) bool {
	var zero T
	return p.Set(zero, err)
}

// Set completes the promise with either a value or an error.
func (p *Promise[T]) Set(value T, err error) bool {
	if !p.done.CompareAndSwap(false, true) {
		Logger().Warn("promise completed twice")
		return false
	}
	if p.fn != nil {
		p.fn(value, err)
	}
	return true
}

// Completed reports whether the promise has been set.
func (p *Promise[T]) Completed() bool {
	return p.done.Load()
}

// Result is a completed promise value.
type Result[T any] struct {
	Value T
	Err   error
}

// Future pairs a Promise with a channel receiving its result.
type Future[T any] struct {
	ch chan Result[T]
}

// NewFuture returns a Promise and the Future observing it.
func NewFuture[T any]() (*Promise[T], *Future[T]) {
	f := &Future[T]{ch: make(chan Result[T], 1)}
	p := NewPromise(func(value T, err error) {
		f.ch <- Result[T]{Value: value, Err: err}
	})
	return p, f
}

// Wait blocks until the promise completes or ctx is done. Giving up on the
// wait does not cancel the request.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case r := <-f.ch:
		return r.Value, r.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Chan exposes the result channel. It receives exactly one value.
func (f *Future[T]) Chan() <-chan Result[T] {
	return f.ch
}
