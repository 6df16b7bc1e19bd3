package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/najoast/tlbridge/config"
	"github.com/najoast/tlbridge/core"
	"github.com/najoast/tlbridge/tl"
	"github.com/najoast/tlbridge/tonapi"
	"github.com/najoast/tlbridge/worker"
)

// stubFactory answers ping with pong, deferring every reply through the
// handler's context. A ping with id -1 panics.
type stubFactory struct {
	handlers atomic.Int32
	closed   atomic.Int32
	calls    atomic.Int32
}

func (f *stubFactory) Execute(req tl.Function) tl.Object {
	if _, ok := req.(*tonapi.Ping); ok {
		panic("static ping")
	}
	return &tonapi.Ok{}
}

func (f *stubFactory) NewHandler(ctx worker.Context) worker.Handler {
	f.handlers.Add(1)
	return &stubHandler{factory: f, ctx: ctx}
}

type stubHandler struct {
	factory *stubFactory
	ctx     worker.Context
	pending []*core.Promise[tl.Object]
}

func (h *stubHandler) RequestAsync(req tl.Function, promise *core.Promise[tl.Object]) {
	h.factory.calls.Add(1)
	ping, ok := req.(*tonapi.Ping)
	if !ok {
		promise.SetValue(&tonapi.Ok{})
		return
	}
	if ping.PingID == -1 {
		panic("boom")
	}
	if ping.PingID == -2 {
		// Left pending until Close.
		h.pending = append(h.pending, promise)
		return
	}
	err := h.ctx.Post(func() {
		promise.SetValue(&tonapi.Pong{PingID: ping.PingID})
	})
	if err != nil {
		promise.SetError(err)
	}
}

func (h *stubHandler) Close() {
	h.factory.closed.Add(1)
	for _, p := range h.pending {
		p.SetError(tonapi.NewError(tonapi.CodeInternal, "closing"))
	}
	h.pending = nil
}

func wait(t *testing.T, f *core.Future[tl.Object]) (tl.Object, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return f.Wait(ctx)
}

func TestClientLifecycle(t *testing.T) {
	factory := &stubFactory{}
	c, err := New(factory)
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID())
	assert.Equal(t, core.ActorStateRunning, c.State())

	promise, future := core.NewFuture[tl.Object]()
	c.Send(&tonapi.Ping{PingID: 9}, promise)
	res, err := wait(t, future)
	require.NoError(t, err)
	assert.Equal(t, &tonapi.Pong{PingID: 9}, res)

	require.NoError(t, c.Close())
	assert.Equal(t, core.ActorStateStopped, c.State())
	assert.Equal(t, int32(1), factory.handlers.Load())
	assert.Equal(t, int32(1), factory.closed.Load())

	err = c.Close()
	assert.True(t, errors.Is(err, core.ErrActorStopped))
}

func TestClientCloseFromCallback(t *testing.T) {
	c, err := New(&stubFactory{})
	require.NoError(t, err)
	assert.False(t, c.InExecutionContext())

	type outcome struct {
		inContext bool
		err       error
	}
	done := make(chan outcome, 1)
	c.Send(&tonapi.Ping{PingID: 3}, core.NewPromise(func(tl.Object, error) {
		done <- outcome{inContext: c.InExecutionContext(), err: c.Close()}
	}))

	select {
	case o := <-done:
		assert.True(t, o.inContext)
		assert.ErrorIs(t, o.err, core.ErrJoinFromLoop)
	case <-time.After(5 * time.Second):
		t.Fatal("Close from a callback did not return")
	}

	assert.Equal(t, core.ActorStateRunning, c.State())
	require.NoError(t, c.Close())
	assert.Equal(t, core.ActorStateStopped, c.State())
}

func TestClientSendNilRequest(t *testing.T) {
	factory := &stubFactory{}
	c, err := New(factory)
	require.NoError(t, err)
	defer c.Close()

	promise, future := core.NewFuture[tl.Object]()
	c.Send(nil, promise)
	_, err = wait(t, future)

	var e *tonapi.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, tonapi.CodeInvalidQuery, e.Code)
	assert.Equal(t, tonapi.MessageInvalidRequest, e.Message)
	assert.Zero(t, factory.calls.Load())
}

func TestClientSendAfterClose(t *testing.T) {
	c, err := New(&stubFactory{})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	promise, future := core.NewFuture[tl.Object]()
	c.Send(&tonapi.Ping{PingID: 1}, promise)
	_, err = wait(t, future)

	var e *tonapi.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, tonapi.CodeInternal, e.Code)
	assert.Equal(t, tonapi.MessageClientClosed, e.Message)
}

func TestClientRecoversWorkerPanic(t *testing.T) {
	c, err := New(&stubFactory{})
	require.NoError(t, err)
	defer c.Close()

	promise, future := core.NewFuture[tl.Object]()
	c.Send(&tonapi.Ping{PingID: -1}, promise)
	_, err = wait(t, future)

	var e *tonapi.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, tonapi.CodeInternal, e.Code)
	assert.Contains(t, e.Message, "boom")

	// The context survives the panic.
	promise, future = core.NewFuture[tl.Object]()
	c.Send(&tonapi.Ping{PingID: 2}, promise)
	res, err := wait(t, future)
	require.NoError(t, err)
	assert.Equal(t, &tonapi.Pong{PingID: 2}, res)
}

func TestClientCloseCompletesInFlight(t *testing.T) {
	c, err := New(&stubFactory{}, WithMailboxSize(4))
	require.NoError(t, err)

	const n = 200
	var completed atomic.Int32
	var mu sync.Mutex
	seen := make(map[int]int)

	for i := 0; i < n; i++ {
		i := i
		id := int64(i)
		if i%10 == 0 {
			id = -2
		}
		c.Send(&tonapi.Ping{PingID: id}, core.NewPromise(func(tl.Object, error) {
			completed.Add(1)
			mu.Lock()
			seen[i]++
			mu.Unlock()
		}))
	}

	require.NoError(t, c.Close())
	assert.Equal(t, int32(n), completed.Load())
	for i := 0; i < n; i++ {
		assert.Equal(t, 1, seen[i], "request %d", i)
	}
}

func TestClientConcurrentSenders(t *testing.T) {
	c, err := New(&stubFactory{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var ok atomic.Int32
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				promise, future := core.NewFuture[tl.Object]()
				c.Send(&tonapi.Ping{PingID: int64(g*100 + i)}, promise)
				if res, err := wait(t, future); err == nil {
					if pong, isPong := res.(*tonapi.Pong); isPong && pong.PingID == int64(g*100+i) {
						ok.Add(1)
					}
				}
			}
		}(g)
	}
	wg.Wait()
	require.NoError(t, c.Close())
	assert.Equal(t, int32(400), ok.Load())
}

func TestExecute(t *testing.T) {
	factory := &stubFactory{}

	assert.IsType(t, &tonapi.Ok{}, Execute(factory, &tonapi.GetLogTags{}))

	res := Execute(factory, nil)
	assert.Equal(t, tonapi.InvalidRequest(), res)

	res = Execute(factory, &tonapi.Ping{})
	e, ok := res.(*tonapi.Error)
	require.True(t, ok)
	assert.Equal(t, tonapi.CodeInternal, e.Code)
}

func TestClientWithLocalWorker(t *testing.T) {
	w := worker.NewLocal(config.DefaultConfig().Worker)
	c, err := New(w)
	require.NoError(t, err)
	defer c.Close()

	promise, future := core.NewFuture[tl.Object]()
	c.Send(&tonapi.Init{Options: &tonapi.Options{
		Config:       &tonapi.Config{},
		KeystoreType: &tonapi.KeyStoreTypeInMemory{},
	}}, promise)
	res, err := wait(t, future)
	require.NoError(t, err)
	assert.IsType(t, &tonapi.OptionsInfo{}, res)

	promise, future = core.NewFuture[tl.Object]()
	c.Send(&tonapi.Ping{PingID: 5}, promise)
	res, err = wait(t, future)
	require.NoError(t, err)
	assert.Equal(t, &tonapi.Pong{PingID: 5}, res)
}
