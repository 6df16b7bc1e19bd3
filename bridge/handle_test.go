package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/najoast/tlbridge/client"
	"github.com/najoast/tlbridge/config"
	"github.com/najoast/tlbridge/worker"
)

func TestHandleManager(t *testing.T) {
	c, err := client.New(worker.NewLocal(config.DefaultConfig().Worker))
	require.NoError(t, err)
	defer c.Close()

	hm := NewHandleManager()
	h1 := hm.Allocate(c)
	h2 := hm.Allocate(c)
	assert.NotEqual(t, InvalidHandle, h1)
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, 2, hm.Len())

	got, ok := hm.Get(h1)
	require.True(t, ok)
	assert.Same(t, c, got)

	infos := hm.List()
	require.Len(t, infos, 2)
	assert.Equal(t, h1, infos[0].Handle)
	assert.Equal(t, c.ID(), infos[0].ClientID)

	_, err = hm.Release(h1)
	require.NoError(t, err)
	_, ok = hm.Get(h1)
	assert.False(t, ok)
	_, err = hm.Release(h1)
	assert.ErrorIs(t, err, ErrUnknownHandle)
}

func TestHandleManagerSkipsInvalidOnWrap(t *testing.T) {
	hm := NewHandleManager()
	hm.handleCounter = ^uint32(0)

	h1 := hm.Allocate(nil)
	h2 := hm.Allocate(nil)
	assert.Equal(t, Handle(^uint32(0)), h1)
	assert.Equal(t, Handle(1), h2)
}

func TestHandleString(t *testing.T) {
	assert.Equal(t, ":0000002a", Handle(42).String())
}
