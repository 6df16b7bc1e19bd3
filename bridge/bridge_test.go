package bridge

import (
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/najoast/tlbridge/config"
	"github.com/najoast/tlbridge/tl"
	"github.com/najoast/tlbridge/tonapi"
	"github.com/najoast/tlbridge/worker"
)

func newTestBridge(t *testing.T, cfg config.WorkerConfig) *Bridge {
	t.Helper()
	b := New(worker.NewLocal(cfg))
	t.Cleanup(func() {
		_ = b.Close()
	})
	return b
}

// collect runs query and waits for the callback.
func collect(t *testing.T, b *Bridge, h Handle, query []byte) ExecutionResult {
	t.Helper()
	ch := make(chan ExecutionResult, 1)
	_ = b.Run(h, query, func(r ExecutionResult) { ch <- r })
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("callback was not invoked")
		return ExecutionResult{}
	}
}

func decode(t *testing.T, r ExecutionResult) tl.Object {
	t.Helper()
	obj, err := tl.DecodeObject(r.Data)
	require.NoError(t, err)
	return obj
}

func TestPingPong(t *testing.T) {
	b := newTestBridge(t, config.DefaultConfig().Worker)

	h, err := b.CreateClient()
	require.NoError(t, err)
	require.NotEqual(t, InvalidHandle, h)

	r := collect(t, b, h, tl.Encode(&tonapi.Ping{PingID: 77}))
	id, ok := tl.PeekID(r.Data)
	require.True(t, ok)
	assert.Equal(t, tonapi.PongID, id)
	assert.Equal(t, &tonapi.Pong{PingID: 77}, decode(t, r))

	require.NoError(t, b.DeleteResponse(r))
	require.NoError(t, b.DeleteClient(h))
	assert.Zero(t, b.Outstanding())
	assert.Empty(t, b.Clients())
}

func TestRunMalformedQuery(t *testing.T) {
	b := newTestBridge(t, config.DefaultConfig().Worker)
	h, err := b.CreateClient()
	require.NoError(t, err)

	valid := tl.Encode(&tonapi.Ping{PingID: 1})
	for n := 0; n < len(valid); n++ {
		called := 0
		var r ExecutionResult
		require.NoError(t, b.Run(h, valid[:n], func(res ExecutionResult) {
			called++
			r = res
		}))
		// Delivered before Run returns.
		require.Equal(t, 1, called, "prefix %d", n)

		e, ok := decode(t, r).(*tonapi.Error)
		require.True(t, ok)
		assert.Equal(t, tonapi.CodeInvalidQuery, e.Code)
		assert.Contains(t, e.Message, "failed to parse query")
		require.NoError(t, b.DeleteResponse(r))
	}
	assert.Zero(t, b.Outstanding())
}

func TestRunUnknownHandle(t *testing.T) {
	b := newTestBridge(t, config.DefaultConfig().Worker)

	called := 0
	var r ExecutionResult
	err := b.Run(Handle(12345), tl.Encode(&tonapi.Ping{}), func(res ExecutionResult) {
		called++
		r = res
	})
	assert.True(t, errors.Is(err, ErrUnknownHandle))
	require.Equal(t, 1, called)

	e, ok := decode(t, r).(*tonapi.Error)
	require.True(t, ok)
	assert.Equal(t, tonapi.CodeInternal, e.Code)
	require.NoError(t, b.DeleteResponse(r))

	assert.ErrorIs(t, b.Run(Handle(1), nil, nil), ErrNilCallback)
}

func TestExecuteEmptyBuffer(t *testing.T) {
	b := newTestBridge(t, config.DefaultConfig().Worker)

	r := b.Execute(nil)
	require.GreaterOrEqual(t, r.Len(), 4)
	assert.Equal(t, tonapi.ErrorID, int32(binary.LittleEndian.Uint32(r.Data)))
	require.NoError(t, b.DeleteResponse(r))

	r = b.Execute([]byte{})
	id, _ := tl.PeekID(r.Data)
	assert.Equal(t, tonapi.ErrorID, id)
	require.NoError(t, b.DeleteResponse(r))
}

func TestExecuteStatic(t *testing.T) {
	b := newTestBridge(t, config.DefaultConfig().Worker)

	r := b.Execute(tl.Encode(&tonapi.SetLogVerbosityLevel{NewVerbosityLevel: 1}))
	assert.IsType(t, &tonapi.Ok{}, decode(t, r))
	require.NoError(t, b.DeleteResponse(r))

	r = b.Execute(tl.Encode(&tonapi.GetLogVerbosityLevel{}))
	assert.Equal(t, &tonapi.LogVerbosityLevel{VerbosityLevel: 1}, decode(t, r))
	require.NoError(t, b.DeleteResponse(r))

	r = b.Execute(tl.Encode(&tonapi.Ping{PingID: 3}))
	e, ok := decode(t, r).(*tonapi.Error)
	require.True(t, ok)
	assert.Equal(t, worker.MsgNotSynchronous, e.Message)
	require.NoError(t, b.DeleteResponse(r))

	// A type is not a function.
	r = b.Execute(tl.Encode(&tonapi.Ok{}))
	e, ok = decode(t, r).(*tonapi.Error)
	require.True(t, ok)
	assert.Equal(t, tonapi.CodeInvalidQuery, e.Code)
	require.NoError(t, b.DeleteResponse(r))
}

func TestDeleteResponseTwice(t *testing.T) {
	b := newTestBridge(t, config.DefaultConfig().Worker)

	r := b.Execute(tl.Encode(&tonapi.GetLogTags{}))
	require.NoError(t, b.DeleteResponse(r))
	assert.ErrorIs(t, b.DeleteResponse(r), ErrUnknownBuffer)
	assert.ErrorIs(t, b.DeleteResponse(ExecutionResult{}), ErrUnknownBuffer)
}

func TestDeleteResponseLogsEachCall(t *testing.T) {
	observed, logs := observer.New(zapcore.DebugLevel)
	b := New(worker.NewLocal(config.DefaultConfig().Worker), WithLogger(zap.New(observed)))
	defer b.Close()

	r := b.Execute(tl.Encode(&tonapi.GetLogVerbosityLevel{}))
	require.NoError(t, b.DeleteResponse(r))
	assert.Error(t, b.DeleteResponse(r))

	entries := logs.FilterMessage("delete response").All()
	require.Len(t, entries, 2)
	assert.Equal(t, int64(r.Len()), entries[0].ContextMap()["len"])
	assert.Equal(t, 1, logs.FilterMessage("delete response failed").Len())
}

func TestDeleteClientTwice(t *testing.T) {
	b := newTestBridge(t, config.DefaultConfig().Worker)
	h, err := b.CreateClient()
	require.NoError(t, err)

	require.NoError(t, b.DeleteClient(h))
	assert.ErrorIs(t, b.DeleteClient(h), ErrUnknownHandle)
}

func TestDeleteClientFromCallback(t *testing.T) {
	b := newTestBridge(t, config.DefaultConfig().Worker)
	h, err := b.CreateClient()
	require.NoError(t, err)

	type outcome struct {
		result ExecutionResult
		err    error
	}
	done := make(chan outcome, 1)
	require.NoError(t, b.Run(h, tl.Encode(&tonapi.Close{}), func(r ExecutionResult) {
		done <- outcome{result: r, err: b.DeleteClient(h)}
	}))

	select {
	case o := <-done:
		assert.ErrorIs(t, o.err, ErrDeleteFromCallback)
		assert.IsType(t, &tonapi.Ok{}, decode(t, o.result))
		require.NoError(t, b.DeleteResponse(o.result))
	case <-time.After(5 * time.Second):
		t.Fatal("DeleteClient from a callback did not return")
	}

	assert.Len(t, b.Clients(), 1)
	require.NoError(t, b.DeleteClient(h))
	assert.Empty(t, b.Clients())
	assert.Zero(t, b.Outstanding())
}

func TestNoLeaksAcrossCycles(t *testing.T) {
	b := newTestBridge(t, config.DefaultConfig().Worker)
	initQuery := tl.Encode(&tonapi.Init{Options: &tonapi.Options{
		Config:       &tonapi.Config{Config: "{}"},
		KeystoreType: &tonapi.KeyStoreTypeInMemory{},
	}})

	for cycle := 0; cycle < 20; cycle++ {
		h, err := b.CreateClient()
		require.NoError(t, err)

		for _, q := range [][]byte{initQuery, tl.Encode(&tonapi.Ping{PingID: int64(cycle)}), {1, 2, 3}, tl.Encode(&tonapi.Close{})} {
			r := collect(t, b, h, q)
			decode(t, r)
			require.NoError(t, b.DeleteResponse(r))
		}
		r := b.Execute(tl.Encode(&tonapi.GetLogTags{}))
		require.NoError(t, b.DeleteResponse(r))

		require.NoError(t, b.DeleteClient(h))
	}

	stats := b.Allocator().Stats()
	assert.Zero(t, stats.Outstanding)
	assert.Equal(t, stats.Allocated, stats.Released)
	assert.Zero(t, b.Pending())
}

func TestDeleteClientWaitsForInFlight(t *testing.T) {
	cfg := config.DefaultConfig().Worker
	cfg.PingDelay = 10 * time.Millisecond
	b := newTestBridge(t, cfg)

	h, err := b.CreateClient()
	require.NoError(t, err)

	const n = 50
	var fired atomic.Int32
	var mu sync.Mutex
	var results []ExecutionResult
	for i := 0; i < n; i++ {
		require.NoError(t, b.Run(h, tl.Encode(&tonapi.Ping{PingID: int64(i)}), func(r ExecutionResult) {
			fired.Add(1)
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		}))
	}

	require.NoError(t, b.DeleteClient(h))
	assert.Equal(t, int32(n), fired.Load())
	assert.Zero(t, b.Pending())

	for _, r := range results {
		// Each reply is either a pong or the cancellation error.
		switch obj := decode(t, r).(type) {
		case *tonapi.Pong:
		case *tonapi.Error:
			assert.Equal(t, tonapi.CodeInternal, obj.Code)
		default:
			t.Errorf("unexpected reply %T", obj)
		}
		require.NoError(t, b.DeleteResponse(r))
	}
	assert.Zero(t, b.Outstanding())
}

func TestConcurrentClients(t *testing.T) {
	b := newTestBridge(t, config.DefaultConfig().Worker)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			h, err := b.CreateClient()
			if !assert.NoError(t, err) {
				return
			}
			for i := 0; i < 25; i++ {
				id := int64(g*1000 + i)
				ch := make(chan ExecutionResult, 1)
				assert.NoError(t, b.Run(h, tl.Encode(&tonapi.Ping{PingID: id}), func(r ExecutionResult) { ch <- r }))
				r := <-ch
				obj, err := tl.DecodeObject(r.Data)
				assert.NoError(t, err)
				assert.Equal(t, &tonapi.Pong{PingID: id}, obj)
				assert.NoError(t, b.DeleteResponse(r))

				r = b.Execute(tl.Encode(&tonapi.GetLogVerbosityLevel{}))
				assert.NoError(t, b.DeleteResponse(r))
			}
			assert.NoError(t, b.DeleteClient(h))
		}(g)
	}
	wg.Wait()
	assert.Zero(t, b.Outstanding())
}
