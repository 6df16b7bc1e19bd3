package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/najoast/tlbridge/config"
	"github.com/najoast/tlbridge/core"
	"github.com/najoast/tlbridge/tl"
	"github.com/najoast/tlbridge/tonapi"
)

func newTestWorker(opts ...LocalOption) *Local {
	return NewLocal(config.DefaultConfig().Worker, opts...)
}

func requireError(t *testing.T, obj tl.Object, code int32, msg string) {
	t.Helper()
	e, ok := obj.(*tonapi.Error)
	require.True(t, ok, "expected error object, got %T", obj)
	assert.Equal(t, code, e.Code)
	assert.Contains(t, e.Message, msg)
}

func TestLocalVerbosity(t *testing.T) {
	atom := zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	w := newTestWorker(WithLevel(atom))
	assert.Equal(t, zapcore.ErrorLevel, atom.Level(), "construction must not override the configured level")

	got := w.Execute(&tonapi.GetLogVerbosityLevel{})
	assert.Equal(t, &tonapi.LogVerbosityLevel{VerbosityLevel: 3}, got)

	assert.IsType(t, &tonapi.Ok{}, w.Execute(&tonapi.SetLogVerbosityLevel{NewVerbosityLevel: 4}))
	assert.Equal(t, int32(4), w.Verbosity())
	assert.Equal(t, zapcore.DebugLevel, atom.Level())

	requireError(t, w.Execute(&tonapi.SetLogVerbosityLevel{NewVerbosityLevel: -1}), 400, MsgWrongVerbosity)
	requireError(t, w.Execute(&tonapi.SetLogVerbosityLevel{NewVerbosityLevel: 1025}), 400, MsgWrongVerbosity)
	assert.Equal(t, int32(4), w.Verbosity())
}

func TestLocalLogTags(t *testing.T) {
	w := newTestWorker()

	tags, ok := w.Execute(&tonapi.GetLogTags{}).(*tonapi.LogTags)
	require.True(t, ok)
	assert.Equal(t, []string{"bridge", "client", "tl", "worker"}, tags.Tags)

	assert.IsType(t, &tonapi.Ok{}, w.Execute(&tonapi.SetLogTagVerbosityLevel{Tag: "tl", NewVerbosityLevel: 1}))
	assert.Equal(t, &tonapi.LogVerbosityLevel{VerbosityLevel: 1},
		w.Execute(&tonapi.GetLogTagVerbosityLevel{Tag: "tl"}))

	requireError(t, w.Execute(&tonapi.GetLogTagVerbosityLevel{Tag: "nope"}), 400, MsgUnknownLogTag)
	requireError(t, w.Execute(&tonapi.SetLogTagVerbosityLevel{Tag: "nope", NewVerbosityLevel: 1}), 400, MsgUnknownLogTag)
}

func TestLocalAddLogMessage(t *testing.T) {
	observed, logs := observer.New(zapcore.DebugLevel)
	w := newTestWorker(WithLogger(zap.New(observed)))

	assert.IsType(t, &tonapi.Ok{}, w.Execute(&tonapi.AddLogMessage{VerbosityLevel: 2, Text: "shown"}))
	assert.IsType(t, &tonapi.Ok{}, w.Execute(&tonapi.AddLogMessage{VerbosityLevel: 4, Text: "hidden"}))
	assert.IsType(t, &tonapi.Ok{}, w.Execute(&tonapi.AddLogMessage{VerbosityLevel: 0, Text: "fatal"}))

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "shown", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}

func TestLocalExecuteRejectsAsyncFunctions(t *testing.T) {
	w := newTestWorker()
	for _, req := range []tl.Function{&tonapi.Ping{}, &tonapi.Close{}, &tonapi.Init{}} {
		requireError(t, w.Execute(req), 400, MsgNotSynchronous)
	}
	requireError(t, w.Execute(nil), 400, tonapi.MessageInvalidRequest)
}

// actorContext runs a handler on a real actor for the duration of a test.
type actorContext struct {
	*core.Actor
}

func newActorContext(t *testing.T) actorContext {
	t.Helper()
	a := core.NewActor(core.ActorOptions{Name: t.Name()})
	require.NoError(t, a.Start())
	t.Cleanup(func() {
		_ = a.Stop()
		a.Join()
	})
	return actorContext{a}
}

// call sends req to h on the actor and waits for its completion.
func call(t *testing.T, ctx actorContext, h Handler, req tl.Function) (tl.Object, error) {
	t.Helper()
	promise, future := core.NewFuture[tl.Object]()
	require.NoError(t, ctx.Post(func() { h.RequestAsync(req, promise) }))

	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return future.Wait(waitCtx)
}

func initOptions(t *testing.T) *tonapi.Init {
	return &tonapi.Init{Options: &tonapi.Options{
		Config:       &tonapi.Config{Config: "{}", BlockchainName: "testnet"},
		KeystoreType: &tonapi.KeyStoreTypeDirectory{Directory: t.TempDir()},
	}}
}

func TestHandlerLifecycle(t *testing.T) {
	w := newTestWorker()
	ctx := newActorContext(t)
	h := w.NewHandler(ctx)

	res, err := call(t, ctx, h, &tonapi.Ping{PingID: 1})
	require.NoError(t, err)
	assert.Equal(t, &tonapi.Pong{PingID: 1}, res)

	res, err = call(t, ctx, h, initOptions(t))
	require.NoError(t, err)
	assert.Equal(t, &tonapi.OptionsInfo{DefaultWalletID: 698983191}, res)

	_, err = call(t, ctx, h, initOptions(t))
	assert.EqualError(t, err, "400: "+MsgAlreadyInited)

	res, err = call(t, ctx, h, &tonapi.Ping{PingID: 42})
	require.NoError(t, err)
	assert.Equal(t, &tonapi.Pong{PingID: 42}, res)

	// Static functions also work on the async path.
	res, err = call(t, ctx, h, &tonapi.GetLogVerbosityLevel{})
	require.NoError(t, err)
	assert.Equal(t, &tonapi.LogVerbosityLevel{VerbosityLevel: 3}, res)

	res, err = call(t, ctx, h, &tonapi.Close{})
	require.NoError(t, err)
	assert.IsType(t, &tonapi.Ok{}, res)

	_, err = call(t, ctx, h, &tonapi.Ping{PingID: 2})
	assert.EqualError(t, err, "400: "+MsgClosed)
}

func TestHandlerInitValidatesKeystore(t *testing.T) {
	w := newTestWorker()
	ctx := newActorContext(t)
	h := w.NewHandler(ctx)

	_, err := call(t, ctx, h, &tonapi.Init{})
	assert.EqualError(t, err, "400: "+MsgMissingOptions)

	_, err = call(t, ctx, h, &tonapi.Init{Options: &tonapi.Options{
		Config:       &tonapi.Config{},
		KeystoreType: &tonapi.KeyStoreTypeDirectory{Directory: "/definitely/not/here"},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keystore directory")

	res, err := call(t, ctx, h, &tonapi.Init{Options: &tonapi.Options{
		Config:       &tonapi.Config{},
		KeystoreType: &tonapi.KeyStoreTypeInMemory{},
	}})
	require.NoError(t, err)
	assert.IsType(t, &tonapi.OptionsInfo{}, res)
}

func TestHandlerDeferredPing(t *testing.T) {
	cfg := config.DefaultConfig().Worker
	cfg.PingDelay = 20 * time.Millisecond
	w := NewLocal(cfg)
	ctx := newActorContext(t)
	h := w.NewHandler(ctx)

	_, err := call(t, ctx, h, initOptions(t))
	require.NoError(t, err)

	start := time.Now()
	res, err := call(t, ctx, h, &tonapi.Ping{PingID: 7})
	require.NoError(t, err)
	assert.Equal(t, &tonapi.Pong{PingID: 7}, res)
	assert.GreaterOrEqual(t, time.Since(start), cfg.PingDelay)
}

func TestHandlerCloseFailsPending(t *testing.T) {
	cfg := config.DefaultConfig().Worker
	cfg.PingDelay = time.Hour
	w := NewLocal(cfg)
	ctx := newActorContext(t)
	h := w.NewHandler(ctx)

	_, err := call(t, ctx, h, initOptions(t))
	require.NoError(t, err)

	const n = 5
	futures := make([]*core.Future[tl.Object], n)
	for i := range futures {
		promise, future := core.NewFuture[tl.Object]()
		futures[i] = future
		req := &tonapi.Ping{PingID: int64(i)}
		require.NoError(t, ctx.Post(func() { h.RequestAsync(req, promise) }))
	}
	require.NoError(t, ctx.Post(h.Close))

	for _, f := range futures {
		select {
		case r := <-f.Chan():
			var e *tonapi.Error
			require.ErrorAs(t, r.Err, &e)
			assert.Equal(t, tonapi.CodeInternal, e.Code)
		case <-time.After(5 * time.Second):
			t.Fatal("pending ping was not completed by Close")
		}
	}
}
