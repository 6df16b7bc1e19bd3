package bridge

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/najoast/tlbridge/client"
)

// Handle is the opaque token a foreign caller holds for a client.
type Handle uint32

// InvalidHandle is never allocated.
const InvalidHandle Handle = 0

// String returns a string representation of the handle.
func (h Handle) String() string {
	return fmt.Sprintf(":%08x", uint32(h))
}

// handleEntry is a registered client.
type handleEntry struct {
	client    *client.Client
	createdAt time.Time
}

// HandleInfo describes a live handle.
type HandleInfo struct {
	Handle    Handle
	ClientID  string
	CreatedAt time.Time
}

// HandleManager maps handles to the clients they own.
type HandleManager struct {
	mu sync.RWMutex

	handles map[Handle]*handleEntry

	// Counter for generating handle values; skips InvalidHandle on wrap
	handleCounter uint32
}

// NewHandleManager creates an empty registry.
func NewHandleManager() *HandleManager {
	return &HandleManager{
		handles:       make(map[Handle]*handleEntry),
		handleCounter: 1,
	}
}

// Allocate registers c under a fresh handle.
func (hm *HandleManager) Allocate(c *client.Client) Handle {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	for {
		h := Handle(hm.handleCounter)
		hm.handleCounter++
		if h == InvalidHandle {
			continue
		}
		if _, taken := hm.handles[h]; taken {
			continue
		}
		hm.handles[h] = &handleEntry{client: c, createdAt: time.Now()}
		return h
	}
}

// Get returns the client behind h.
func (hm *HandleManager) Get(h Handle) (*client.Client, bool) {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	entry, ok := hm.handles[h]
	if !ok {
		return nil, false
	}
	return entry.client, true
}

// Release unregisters h and returns its client. The handle is invalid for
// every later call.
func (hm *HandleManager) Release(h Handle) (*client.Client, error) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	entry, ok := hm.handles[h]
	if !ok {
		return nil, fmt.Errorf("handle %s: %w", h, ErrUnknownHandle)
	}
	delete(hm.handles, h)
	return entry.client, nil
}

// Len returns the number of live handles.
func (hm *HandleManager) Len() int {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	return len(hm.handles)
}

// List returns every live handle ordered by value.
func (hm *HandleManager) List() []HandleInfo {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	infos := make([]HandleInfo, 0, len(hm.handles))
	for h, entry := range hm.handles {
		infos = append(infos, HandleInfo{
			Handle:    h,
			ClientID:  entry.client.ID(),
			CreatedAt: entry.createdAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Handle < infos[j].Handle })
	return infos
}
